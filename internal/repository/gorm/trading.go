package gormrepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"papertrader/internal/models"
	"papertrader/internal/repository"
)

// --- Positions --------------------------------------------------------------

func (s *Store) GetPosition(ctx context.Context, portfolioID, instrumentID uint64) (*models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Position
	err := s.db.WithContext(ctx).
		First(&item, "portfolio_id = ? AND instrument_id = ?", portfolioID, instrumentID).Error
	return firstOrNil(err, &item)
}

// GetPositionForUpdateTx locks the position row for the duration of the
// enclosing settlement transaction.
func (s *Store) GetPositionForUpdateTx(ctx context.Context, tx *gorm.DB, portfolioID, instrumentID uint64) (*models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Position
	err := s.conn(ctx, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "portfolio_id = ? AND instrument_id = ?", portfolioID, instrumentID).Error
	return firstOrNil(err, &item)
}

func (s *Store) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Save(item).Error
}

func (s *Store) ListOpenPositions(ctx context.Context, portfolioID uint64) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	if err := s.db.WithContext(ctx).
		Where("portfolio_id = ? AND quantity > 0", portfolioID).
		Order("first_bought_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAllOpenPositions(ctx context.Context) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	if err := s.db.WithContext(ctx).
		Where("quantity > 0").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdatePositionValuation(ctx context.Context, id uint64, currentValue, gain, gainPercent decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_value": currentValue,
			"gain":          gain,
			"gain_percent":  gainPercent,
		}).Error
}

// --- Orders -----------------------------------------------------------------

func (s *Store) InsertOrder(ctx context.Context, item *models.Order) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetOrderByID(ctx context.Context, id uint64) (*models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Order
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	return firstOrNil(err, &item)
}

func (s *Store) ordersQuery(ctx context.Context, params repository.ListOrdersParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if params.PortfolioID > 0 {
		query = query.Where("portfolio_id = ?", params.PortfolioID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.InstrumentID != nil {
		query = query.Where("instrument_id = ?", *params.InstrumentID)
	}
	return query
}

func (s *Store) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.ordersQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Order
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.ordersQuery(ctx, params).Count(&total).Error
	return total, err
}

func (s *Store) ListPendingLimitOrders(ctx context.Context, portfolioID uint64) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Order
	if err := s.db.WithContext(ctx).
		Where("portfolio_id = ? AND type = ? AND status = ?",
			portfolioID, models.OrderTypeLimit, models.OrderStatusPending).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPendingLimitOrders(ctx context.Context, portfolioID uint64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("portfolio_id = ? AND type = ? AND status = ?",
			portfolioID, models.OrderTypeLimit, models.OrderStatusPending).
		Count(&total).Error
	return total, err
}

func (s *Store) UpdateOrderStatusIf(ctx context.Context, id uint64, from, to models.OrderStatus, updates map[string]any) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// --- Transactions -----------------------------------------------------------

func (s *Store) InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) transactionsQuery(ctx context.Context, params repository.ListTransactionsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("portfolio_id = ?", params.PortfolioID)
	if params.Start != nil && !params.Start.IsZero() {
		query = query.Where("executed_at >= ?", *params.Start)
	}
	if params.End != nil && !params.End.IsZero() {
		query = query.Where("executed_at <= ?", *params.End)
	}
	return query
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Transaction
	if err := s.transactionsQuery(ctx, params).
		Order("executed_at desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTransactions(ctx context.Context, params repository.ListTransactionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.transactionsQuery(ctx, params).Count(&total).Error
	return total, err
}
