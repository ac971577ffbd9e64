package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the aggregated holding of one instrument within a portfolio.
// Quantity > 0 means the position is open; a sell that brings quantity to
// exactly zero closes it. AvgPrice is only ever recomputed on buys.
type Position struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	PortfolioID  uint64 `gorm:"not null;uniqueIndex:uq_positions_portfolio_instrument;index"`
	InstrumentID uint64 `gorm:"not null;uniqueIndex:uq_positions_portfolio_instrument;index"`

	Quantity decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	AvgPrice decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`

	// Refreshed by PositionRefreshService from the latest close; valuation
	// reads never depend on these columns being fresh.
	PurchaseValue decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	CurrentValue  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Gain          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	GainPercent   decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`

	FirstBoughtAt time.Time `gorm:"type:timestamptz;not null"`
	LastChangedAt time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Position) TableName() string {
	return "positions"
}
