package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`
	Name   string `gorm:"type:varchar(100);not null"`

	Currency    string          `gorm:"type:varchar(3);not null;default:'USD'"`
	CashBalance decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Portfolio) TableName() string {
	return "portfolios"
}
