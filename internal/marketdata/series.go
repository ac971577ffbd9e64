package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"papertrader/internal/cache"
	"papertrader/internal/models"
	"papertrader/internal/trading"
)

// PriceSeries answers point-in-time price questions from the recorded daily
// bars. The price of an instrument as of a date is the close of the most
// recent bar on or before that date.
type PriceSeries interface {
	PriceAsOf(ctx context.Context, instrumentID uint64, asOf time.Time) (decimal.Decimal, error)
	LatestPrice(ctx context.Context, instrumentID uint64) (decimal.Decimal, error)
	TradingDaysBetween(ctx context.Context, after, until time.Time) ([]time.Time, error)
	DateRange(ctx context.Context) (*time.Time, *time.Time, error)
}

// Store is the persistence slice the series needs.
type Store interface {
	GetBarAsOf(ctx context.Context, instrumentID uint64, asOf time.Time) (*models.PriceBar, error)
	GetLatestBar(ctx context.Context, instrumentID uint64) (*models.PriceBar, error)
	ListTradingDays(ctx context.Context, after, until time.Time) ([]time.Time, error)
	GetPriceDateRange(ctx context.Context) (*time.Time, *time.Time, error)
}

type Series struct {
	Store    Store
	Quotes   cache.Store // optional latest-close cache
	QuoteTTL time.Duration
}

// Day truncates a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Series) PriceAsOf(ctx context.Context, instrumentID uint64, asOf time.Time) (decimal.Decimal, error) {
	bar, err := s.Store.GetBarAsOf(ctx, instrumentID, Day(asOf))
	if err != nil {
		return decimal.Zero, err
	}
	if bar == nil {
		return decimal.Zero, fmt.Errorf("instrument %d as of %s: %w",
			instrumentID, Day(asOf).Format("2006-01-02"), trading.ErrDataUnavailable)
	}
	return bar.Close, nil
}

func (s *Series) LatestPrice(ctx context.Context, instrumentID uint64) (decimal.Decimal, error) {
	key := fmt.Sprintf("quote:latest:%d", instrumentID)
	if s.Quotes != nil {
		if raw, ok, err := s.Quotes.Get(ctx, key); err == nil && ok {
			if price, perr := decimal.NewFromString(string(raw)); perr == nil {
				return price, nil
			}
		}
	}

	bar, err := s.Store.GetLatestBar(ctx, instrumentID)
	if err != nil {
		return decimal.Zero, err
	}
	if bar == nil {
		return decimal.Zero, fmt.Errorf("instrument %d: %w", instrumentID, trading.ErrDataUnavailable)
	}
	if s.Quotes != nil {
		_ = s.Quotes.Set(ctx, key, []byte(bar.Close.String()), s.QuoteTTL)
	}
	return bar.Close, nil
}

func (s *Series) TradingDaysBetween(ctx context.Context, after, until time.Time) ([]time.Time, error) {
	return s.Store.ListTradingDays(ctx, Day(after), Day(until))
}

func (s *Series) DateRange(ctx context.Context) (*time.Time, *time.Time, error) {
	return s.Store.GetPriceDateRange(ctx)
}
