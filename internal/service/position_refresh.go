package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrader/internal/marketdata"
	"papertrader/internal/models"
	"papertrader/internal/trading"
)

// PositionRefreshStore is the persistence slice the refresher touches.
type PositionRefreshStore interface {
	ListAllOpenPositions(ctx context.Context) ([]models.Position, error)
	UpdatePositionValuation(ctx context.Context, id uint64, currentValue, gain, gainPercent decimal.Decimal) error
}

// PositionRefreshService rewrites the cached valuation columns of open
// positions from the latest close. The columns are display caches; the
// valuation engine never reads them.
type PositionRefreshService struct {
	Store  PositionRefreshStore
	Prices marketdata.PriceSeries
	Logger *zap.Logger
}

type RefreshResult struct {
	Positions int `json:"positions"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

func (s *PositionRefreshService) Refresh(ctx context.Context) (RefreshResult, error) {
	positions, err := s.Store.ListAllOpenPositions(ctx)
	if err != nil {
		return RefreshResult{}, err
	}

	result := RefreshResult{Positions: len(positions)}
	for i := range positions {
		pos := &positions[i]
		if err := ctx.Err(); err != nil {
			return result, err
		}

		price, err := s.Prices.LatestPrice(ctx, pos.InstrumentID)
		if err != nil {
			if errors.Is(err, trading.ErrDataUnavailable) {
				result.Skipped++
				continue
			}
			return result, err
		}

		currentValue := trading.Round2(pos.Quantity.Mul(price))
		purchaseValue := trading.Round2(pos.Quantity.Mul(pos.AvgPrice))
		gain := currentValue.Sub(purchaseValue)
		gainPercent := trading.GainPercent(pos.AvgPrice, price)
		if err := s.Store.UpdatePositionValuation(ctx, pos.ID, currentValue, gain, gainPercent); err != nil {
			return result, err
		}
		result.Updated++
	}

	if s.Logger != nil {
		s.Logger.Info("position refresh finished",
			zap.Int("positions", result.Positions),
			zap.Int("updated", result.Updated),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result, nil
}
