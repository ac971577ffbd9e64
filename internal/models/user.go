package models

import (
	"time"
)

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Login        string `gorm:"type:varchar(50);not null;uniqueIndex"`
	PasswordHash string `gorm:"type:varchar(128);not null"`
	PasswordSalt string `gorm:"type:varchar(64);not null"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName    string `gorm:"type:varchar(100)"`
	LastName     string `gorm:"type:varchar(100)"`

	RegisteredAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt    time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
