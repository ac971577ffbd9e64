package db

import (
	"papertrader/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Sector{},
		&models.Exchange{},
		&models.Instrument{},
		&models.PriceBar{},
		&models.User{},
		&models.Portfolio{},
		&models.Position{},
		&models.Order{},
		&models.Transaction{},
	)
}
