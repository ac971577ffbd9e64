package timetravel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"papertrader/internal/marketdata"
	"papertrader/internal/orderbook"
)

// Store is the persistence slice the scanner consumes.
type Store interface {
	CountPendingLimitOrders(ctx context.Context, portfolioID uint64) (int64, error)
}

// Scanner replays the trading days a simulated clock jumps over, giving
// pending limit orders their chance to fill on each day they would have.
type Scanner struct {
	Store  Store
	Prices marketdata.PriceSeries
	Book   *orderbook.OrderBook
	Logger *zap.Logger
}

// Result reports one clock advance. DaysWithFills counts the trading days
// on which at least one order executed; DaysScanned counts every day swept.
type Result struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	DaysScanned   int       `json:"days_scanned"`
	DaysWithFills int       `json:"days_with_fills"`
	Executed      int       `json:"executed"`
	Canceled      int       `json:"canceled"`
	Messages      []string  `json:"messages,omitempty"`
}

// Advance sweeps the portfolio's pending limit orders across every trading
// day in (from, to]. Moving backwards or staying put is a no-op. The walk
// stops early once no pending limit orders remain.
func (s *Scanner) Advance(ctx context.Context, portfolioID uint64, from, to time.Time) (*Result, error) {
	result := &Result{From: marketdata.Day(from), To: marketdata.Day(to)}
	if !result.To.After(result.From) {
		return result, nil
	}

	pending, err := s.Store.CountPendingLimitOrders(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		return result, nil
	}

	days, err := s.Prices.TradingDaysBetween(ctx, result.From, result.To)
	if err != nil {
		return nil, err
	}

	for _, day := range days {
		sweep, err := s.Book.SweepLimitOrders(ctx, portfolioID, day)
		if err != nil {
			return nil, err
		}
		result.DaysScanned++
		result.Executed += sweep.Executed
		result.Canceled += sweep.Canceled
		if sweep.Executed > 0 {
			result.DaysWithFills++
		}
		for _, msg := range sweep.Messages {
			result.Messages = append(result.Messages, day.Format("2006-01-02")+": "+msg)
		}

		pending, err := s.Store.CountPendingLimitOrders(ctx, portfolioID)
		if err != nil {
			return nil, err
		}
		if pending == 0 {
			break
		}
	}

	if s.Logger != nil {
		s.Logger.Info("clock advanced",
			zap.Uint64("portfolio_id", portfolioID),
			zap.Time("from", result.From),
			zap.Time("to", result.To),
			zap.Int("days_scanned", result.DaysScanned),
			zap.Int("days_with_fills", result.DaysWithFills),
			zap.Int("executed", result.Executed),
			zap.Int("canceled", result.Canceled),
		)
	}
	return result, nil
}
