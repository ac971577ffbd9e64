package models

import "time"

type Sector struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name        string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Sector) TableName() string {
	return "sectors"
}

type Exchange struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Code     string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name     string `gorm:"type:varchar(100);not null"`
	Country  string `gorm:"type:varchar(100)"`
	Currency string `gorm:"type:varchar(3)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Exchange) TableName() string {
	return "exchanges"
}
