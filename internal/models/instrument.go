package models

import (
	"time"

	"gorm.io/datatypes"
)

type InstrumentStatus string

const (
	InstrumentStatusActive   InstrumentStatus = "ACTIVE"
	InstrumentStatusInactive InstrumentStatus = "INACTIVE"
)

type Instrument struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Symbol string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(200);not null"`

	ExchangeID *uint64 `gorm:"index"`
	SectorID   *uint64 `gorm:"index"`

	Type     string           `gorm:"type:varchar(20);not null;default:'STOCK'"`
	Currency string           `gorm:"type:varchar(3);not null;default:'USD'"`
	Status   InstrumentStatus `gorm:"type:varchar(10);not null;default:'ACTIVE';index"`

	// Raw metadata from the market-data provider, kept as-is.
	ProviderMeta datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Instrument) TableName() string {
	return "instruments"
}
