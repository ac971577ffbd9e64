package valuation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"papertrader/internal/marketdata"
	"papertrader/internal/models"
	"papertrader/internal/trading"
)

// Store is the persistence slice the engine reads. It never writes.
type Store interface {
	GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error)
	ListOpenPositions(ctx context.Context, portfolioID uint64) ([]models.Position, error)
	GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error)
}

// Engine values portfolios at a point in time. Historical valuations are an
// approximation: today's quantities and average costs are priced with the
// close of the requested date, so past trades are not replayed.
type Engine struct {
	Store  Store
	Prices marketdata.PriceSeries
}

// PositionValue is one open position priced as of a date.
type PositionValue struct {
	InstrumentID  uint64          `json:"instrument_id"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	Price         decimal.Decimal `json:"price"`
	PurchaseValue decimal.Decimal `json:"purchase_value"`
	MarketValue   decimal.Decimal `json:"market_value"`
	Gain          decimal.Decimal `json:"gain"`
	GainPercent   decimal.Decimal `json:"gain_percent"`
	FirstBoughtAt time.Time       `json:"first_bought_at"`
}

// Summary is a portfolio's worth as of a date.
type Summary struct {
	PortfolioID   uint64          `json:"portfolio_id"`
	AsOf          time.Time       `json:"as_of"`
	Currency      string          `json:"currency"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	PositionValue decimal.Decimal `json:"position_value"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Positions     []PositionValue `json:"positions"`
}

// PositionsAsOf prices the portfolio's open positions with the closes of
// asOf. Positions first bought after asOf are excluded; positions whose
// instrument has no bar on or before asOf are skipped.
func (e *Engine) PositionsAsOf(ctx context.Context, portfolioID uint64, asOf time.Time) ([]PositionValue, error) {
	positions, err := e.Store.ListOpenPositions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	day := marketdata.Day(asOf)

	out := make([]PositionValue, 0, len(positions))
	for i := range positions {
		pos := &positions[i]
		if marketdata.Day(pos.FirstBoughtAt).After(day) {
			continue
		}
		price, err := e.Prices.PriceAsOf(ctx, pos.InstrumentID, day)
		if err != nil {
			if errors.Is(err, trading.ErrDataUnavailable) {
				continue
			}
			return nil, err
		}

		symbol := ""
		if instrument, err := e.Store.GetInstrumentByID(ctx, pos.InstrumentID); err == nil && instrument != nil {
			symbol = instrument.Symbol
		}

		marketValue := trading.Round2(pos.Quantity.Mul(price))
		purchaseValue := trading.Round2(pos.Quantity.Mul(pos.AvgPrice))
		out = append(out, PositionValue{
			InstrumentID:  pos.InstrumentID,
			Symbol:        symbol,
			Quantity:      pos.Quantity,
			AvgPrice:      pos.AvgPrice,
			Price:         price,
			PurchaseValue: purchaseValue,
			MarketValue:   marketValue,
			Gain:          marketValue.Sub(purchaseValue),
			GainPercent:   trading.GainPercent(pos.AvgPrice, price),
			FirstBoughtAt: pos.FirstBoughtAt,
		})
	}
	return out, nil
}

// PortfolioSummary is cash plus the market value of every priceable open
// position as of the date.
func (e *Engine) PortfolioSummary(ctx context.Context, portfolioID uint64, asOf time.Time) (*Summary, error) {
	portfolio, err := e.Store.GetPortfolioByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, fmt.Errorf("portfolio %d: %w", portfolioID, trading.ErrNotFound)
	}

	positions, err := e.PositionsAsOf(ctx, portfolioID, asOf)
	if err != nil {
		return nil, err
	}
	positionValue := decimal.Zero
	for i := range positions {
		positionValue = positionValue.Add(positions[i].MarketValue)
	}

	return &Summary{
		PortfolioID:   portfolioID,
		AsOf:          marketdata.Day(asOf),
		Currency:      portfolio.Currency,
		CashBalance:   portfolio.CashBalance,
		PositionValue: positionValue,
		TotalValue:    portfolio.CashBalance.Add(positionValue),
		Positions:     positions,
	}, nil
}
