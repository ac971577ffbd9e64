package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// Transaction is the immutable record of a single order fill.
type Transaction struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	OrderID      uint64 `gorm:"not null;index"`
	PortfolioID  uint64 `gorm:"not null;index"`
	InstrumentID uint64 `gorm:"not null;index"`

	Type TransactionType `gorm:"type:varchar(10);not null"`

	Quantity   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	GrossValue decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Commission decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	NetValue   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency   string          `gorm:"type:varchar(3);not null"`

	ExecutedAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
