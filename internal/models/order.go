package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit:
		return true
	}
	return false
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

func (s OrderSide) Valid() bool {
	switch s {
	case OrderSideBuy, OrderSideSell:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	// OrderStatusPartial is reserved; current flows fill whole orders only.
	OrderStatusPartial OrderStatus = "PARTIAL"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCanceled
}

type Order struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	PortfolioID  uint64 `gorm:"not null;index"`
	InstrumentID uint64 `gorm:"not null;index"`

	Type OrderType `gorm:"type:varchar(10);not null"`
	Side OrderSide `gorm:"type:varchar(10);not null"`

	Quantity   decimal.Decimal  `gorm:"type:numeric(18,4);not null"`
	LimitPrice *decimal.Decimal `gorm:"type:numeric(18,4)"`

	Status        OrderStatus `gorm:"type:varchar(10);not null;default:'PENDING';index"`
	FailureReason string      `gorm:"type:text"`

	ExpiresAt  *time.Time `gorm:"type:timestamptz"`
	ExecutedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}
