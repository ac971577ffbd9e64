package gormrepo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"papertrader/internal/models"
	"papertrader/internal/repository"
)

// --- Instruments & reference data -------------------------------------------

func (s *Store) UpsertInstrument(ctx context.Context, item *models.Instrument) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Symbol) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"exchange_id",
			"sector_id",
			"type",
			"currency",
			"status",
			"provider_meta",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Instrument
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	return firstOrNil(err, &item)
}

func (s *Store) GetInstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Instrument
	err := s.db.WithContext(ctx).First(&item, "symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).Error
	return firstOrNil(err, &item)
}

func (s *Store) ListInstruments(ctx context.Context, params repository.ListInstrumentsParams) ([]models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Instrument{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.SectorID != nil {
		query = query.Where("sector_id = ?", *params.SectorID)
	}
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.Instrument
	if err := query.Order("symbol asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertSector(ctx context.Context, item *models.Sector) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description"}),
	}).Create(item).Error
}

func (s *Store) UpsertExchange(ctx context.Context, item *models.Exchange) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "country", "currency"}),
	}).Create(item).Error
}

func (s *Store) ListSectors(ctx context.Context) ([]models.Sector, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Sector
	if err := s.db.WithContext(ctx).Order("code asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListExchanges(ctx context.Context) ([]models.Exchange, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Exchange
	if err := s.db.WithContext(ctx).Order("code asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Price bars -------------------------------------------------------------

func (s *Store) UpsertPriceBars(ctx context.Context, items []models.PriceBar) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument_id"}, {Name: "trade_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "volume",
		}),
	}).CreateInBatches(items, 500).Error
}

func (s *Store) GetBarAsOf(ctx context.Context, instrumentID uint64, asOf time.Time) (*models.PriceBar, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceBar
	err := s.db.WithContext(ctx).
		Where("instrument_id = ? AND trade_date <= ?", instrumentID, asOf).
		Order("trade_date desc").
		First(&item).Error
	return firstOrNil(err, &item)
}

func (s *Store) GetLatestBar(ctx context.Context, instrumentID uint64) (*models.PriceBar, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceBar
	err := s.db.WithContext(ctx).
		Where("instrument_id = ?", instrumentID).
		Order("trade_date desc").
		First(&item).Error
	return firstOrNil(err, &item)
}

func (s *Store) ListBars(ctx context.Context, instrumentID uint64, start, end time.Time) ([]models.PriceBar, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("instrument_id = ?", instrumentID)
	if !start.IsZero() {
		query = query.Where("trade_date >= ?", start)
	}
	if !end.IsZero() {
		query = query.Where("trade_date <= ?", end)
	}
	var items []models.PriceBar
	if err := query.Order("trade_date asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListBarsForDate(ctx context.Context, day time.Time) ([]models.PriceBar, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PriceBar
	if err := s.db.WithContext(ctx).
		Where("trade_date = ?", day).
		Order("instrument_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListTradingDays returns the distinct dates with any price data in
// (after, until], ascending — the day walk used by the time-travel scanner.
func (s *Store) ListTradingDays(ctx context.Context, after, until time.Time) ([]time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var days []time.Time
	if err := s.db.WithContext(ctx).Model(&models.PriceBar{}).
		Distinct("trade_date").
		Where("trade_date > ? AND trade_date <= ?", after, until).
		Order("trade_date asc").
		Pluck("trade_date", &days).Error; err != nil {
		return nil, err
	}
	return days, nil
}

func (s *Store) GetPriceDateRange(ctx context.Context) (*time.Time, *time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil, nil
	}
	var row struct {
		Min *time.Time
		Max *time.Time
	}
	if err := s.db.WithContext(ctx).Model(&models.PriceBar{}).
		Select("MIN(trade_date) AS min, MAX(trade_date) AS max").
		Scan(&row).Error; err != nil {
		return nil, nil, err
	}
	return row.Min, row.Max, nil
}
