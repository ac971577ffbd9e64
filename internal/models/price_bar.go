package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one end-of-day OHLCV bar. Immutable once recorded; the
// "current price" of an instrument is the close of the most recent bar
// with trade_date <= the as-of date.
type PriceBar struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	InstrumentID uint64    `gorm:"not null;uniqueIndex:uq_price_bars_instrument_date"`
	TradeDate    time.Time `gorm:"type:date;not null;uniqueIndex:uq_price_bars_instrument_date;index"`

	Open   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	High   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Low    decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Close  decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Volume int64           `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PriceBar) TableName() string {
	return "price_bars"
}
