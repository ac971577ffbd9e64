package gormrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"papertrader/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// conn resolves the connection for Tx-suffixed methods: the enclosing
// transaction when present, the base handle otherwise.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}

func firstOrNil[T any](err error, item *T) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// --- Users ------------------------------------------------------------------

func (s *Store) InsertUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	return firstOrNil(err, &item)
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).First(&item, "lower(login) = lower(?)", strings.TrimSpace(login)).Error
	return firstOrNil(err, &item)
}

// --- Portfolios -------------------------------------------------------------

func (s *Store) InsertPortfolio(ctx context.Context, item *models.Portfolio) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Portfolio
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	return firstOrNil(err, &item)
}

func (s *Store) ListPortfoliosByUserID(ctx context.Context, userID uint64) ([]models.Portfolio, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Portfolio
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Cash -------------------------------------------------------------------

func (s *Store) CreditCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.conn(ctx, tx).Model(&models.Portfolio{}).
		Where("id = ?", portfolioID).
		Update("cash_balance", gorm.Expr("cash_balance + ?", amount))
	return res.RowsAffected > 0, res.Error
}

// DebitCashTx decrements the balance only when it covers the amount; the
// WHERE guard is what keeps two concurrent settlements from driving cash
// negative.
func (s *Store) DebitCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.conn(ctx, tx).Model(&models.Portfolio{}).
		Where("id = ? AND cash_balance >= ?", portfolioID, amount).
		Update("cash_balance", gorm.Expr("cash_balance - ?", amount))
	return res.RowsAffected > 0, res.Error
}
