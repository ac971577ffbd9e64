package timetravel

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"papertrader/internal/ledger"
	"papertrader/internal/marketdata"
	"papertrader/internal/models"
	"papertrader/internal/orderbook"
	"papertrader/internal/trading"
)

// stubStore backs the scanner, the order book, and the ledger in memory.
type stubStore struct {
	portfolios   map[uint64]*models.Portfolio
	positions    map[[2]uint64]*models.Position
	transactions []models.Transaction
	instruments  map[uint64]*models.Instrument
	orders       map[uint64]*models.Order
	nextOrderID  uint64
}

func newStubStore() *stubStore {
	return &stubStore{
		portfolios:  map[uint64]*models.Portfolio{},
		positions:   map[[2]uint64]*models.Position{},
		instruments: map[uint64]*models.Instrument{},
		orders:      map[uint64]*models.Order{},
		nextOrderID: 1,
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubStore) GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error) {
	return s.portfolios[id], nil
}

func (s *stubStore) CreditCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error) {
	p, ok := s.portfolios[portfolioID]
	if !ok {
		return false, nil
	}
	p.CashBalance = p.CashBalance.Add(amount)
	return true, nil
}

func (s *stubStore) DebitCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error) {
	p, ok := s.portfolios[portfolioID]
	if !ok || p.CashBalance.LessThan(amount) {
		return false, nil
	}
	p.CashBalance = p.CashBalance.Sub(amount)
	return true, nil
}

func (s *stubStore) GetPositionForUpdateTx(ctx context.Context, tx *gorm.DB, portfolioID, instrumentID uint64) (*models.Position, error) {
	return s.positions[[2]uint64{portfolioID, instrumentID}], nil
}

func (s *stubStore) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	s.positions[[2]uint64{item.PortfolioID, item.InstrumentID}] = item
	return nil
}

func (s *stubStore) InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error {
	s.transactions = append(s.transactions, *item)
	return nil
}

func (s *stubStore) InsertOrder(ctx context.Context, item *models.Order) error {
	item.ID = s.nextOrderID
	s.nextOrderID++
	c := *item
	s.orders[item.ID] = &c
	return nil
}

func (s *stubStore) GetOrderByID(ctx context.Context, id uint64) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (s *stubStore) ListPendingLimitOrders(ctx context.Context, portfolioID uint64) ([]models.Order, error) {
	var out []models.Order
	for id := uint64(1); id < s.nextOrderID; id++ {
		o, ok := s.orders[id]
		if ok && o.PortfolioID == portfolioID &&
			o.Type == models.OrderTypeLimit && o.Status == models.OrderStatusPending {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubStore) CountPendingLimitOrders(ctx context.Context, portfolioID uint64) (int64, error) {
	orders, _ := s.ListPendingLimitOrders(ctx, portfolioID)
	return int64(len(orders)), nil
}

func (s *stubStore) UpdateOrderStatusIf(ctx context.Context, id uint64, from, to models.OrderStatus, updates map[string]any) (bool, error) {
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if reason, ok := updates["failure_reason"].(string); ok {
		o.FailureReason = reason
	}
	if at, ok := updates["executed_at"].(time.Time); ok {
		o.ExecutedAt = &at
	}
	return true, nil
}

func (s *stubStore) GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error) {
	return s.instruments[id], nil
}

// stubPrices serves closes keyed by instrument and date and records which
// days were swept via the book.
type stubPrices struct {
	closes map[uint64]map[string]decimal.Decimal
	days   []time.Time
	asked  []time.Time
}

func (p *stubPrices) PriceAsOf(ctx context.Context, instrumentID uint64, asOf time.Time) (decimal.Decimal, error) {
	p.asked = append(p.asked, marketdata.Day(asOf))
	if c, ok := p.closes[instrumentID][marketdata.Day(asOf).Format("2006-01-02")]; ok {
		return c, nil
	}
	return decimal.Zero, fmt.Errorf("instrument %d: %w", instrumentID, trading.ErrDataUnavailable)
}

func (p *stubPrices) LatestPrice(ctx context.Context, instrumentID uint64) (decimal.Decimal, error) {
	return decimal.Zero, trading.ErrDataUnavailable
}

func (p *stubPrices) TradingDaysBetween(ctx context.Context, after, until time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range p.days {
		if d.After(after) && !d.After(until) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (p *stubPrices) DateRange(ctx context.Context) (*time.Time, *time.Time, error) {
	return nil, nil, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func day(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }

func newScanner(cash string, prices *stubPrices) (*Scanner, *stubStore) {
	store := newStubStore()
	store.portfolios[1] = &models.Portfolio{
		ID: 1, UserID: 1, Name: "Main", Currency: "USD",
		CashBalance: dec(cash),
	}
	store.instruments[42] = &models.Instrument{ID: 42, Symbol: "AAPL", Status: models.InstrumentStatusActive}
	book := &orderbook.OrderBook{
		Store:  store,
		Ledger: &ledger.Ledger{Store: store},
		Prices: prices,
	}
	return &Scanner{Store: store, Prices: prices, Book: book}, store
}

func pendingLimitBuy(t *testing.T, store *stubStore, qty, limit string) *models.Order {
	t.Helper()
	order := &models.Order{
		PortfolioID: 1, InstrumentID: 42,
		Type: models.OrderTypeLimit, Side: models.OrderSideBuy,
		Quantity: dec(qty), LimitPrice: ptr(dec(limit)),
		Status: models.OrderStatusPending,
	}
	if err := store.InsertOrder(context.Background(), order); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	return order
}

func TestAdvance_BackwardsOrSameDayIsNoop(t *testing.T) {
	prices := &stubPrices{days: []time.Time{day(2), day(3)}}
	scanner, store := newScanner("100000.00", prices)
	pendingLimitBuy(t, store, "10", "150")

	for _, to := range []time.Time{day(2), day(1)} {
		result, err := scanner.Advance(context.Background(), 1, day(2), to)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if result.DaysScanned != 0 || result.Executed != 0 {
			t.Fatalf("result=%+v want no-op", result)
		}
	}
	if len(prices.asked) != 0 {
		t.Fatalf("prices were consulted on a no-op advance")
	}
}

func TestAdvance_FillsOnTheDayTheLimitTriggers(t *testing.T) {
	// Close drops to 145 on June 4th only; a buy limit of 150 fills there.
	prices := &stubPrices{
		days: []time.Time{day(3), day(4), day(5)},
		closes: map[uint64]map[string]decimal.Decimal{42: {
			"2025-06-03": dec("160"),
			"2025-06-04": dec("145"),
			"2025-06-05": dec("170"),
		}},
	}
	scanner, store := newScanner("100000.00", prices)
	order := pendingLimitBuy(t, store, "10", "150")

	result, err := scanner.Advance(context.Background(), 1, day(2), day(5))
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Executed != 1 {
		t.Fatalf("executed=%d want 1", result.Executed)
	}
	if result.DaysWithFills != 1 {
		t.Fatalf("days with fills=%d want 1", result.DaysWithFills)
	}
	// Each message names the day it happened on.
	if len(result.Messages) != 1 || !strings.HasPrefix(result.Messages[0], "2025-06-04: ") {
		t.Fatalf("messages=%v want one message dated June 4th", result.Messages)
	}
	stored := store.orders[order.ID]
	if stored.Status != models.OrderStatusFilled {
		t.Fatalf("status=%s want FILLED", stored.Status)
	}
	if stored.ExecutedAt == nil || !stored.ExecutedAt.Equal(day(4)) {
		t.Fatalf("executed_at=%v want June 4th", stored.ExecutedAt)
	}
	if tx := store.transactions[0]; tx.UnitPrice.Cmp(dec("145")) != 0 {
		t.Fatalf("fill price=%s want 145", tx.UnitPrice)
	}
}

func TestAdvance_StopsEarlyWhenNothingPending(t *testing.T) {
	prices := &stubPrices{
		days: []time.Time{day(3), day(4), day(5), day(6)},
		closes: map[uint64]map[string]decimal.Decimal{42: {
			"2025-06-03": dec("145"),
			"2025-06-04": dec("145"),
			"2025-06-05": dec("145"),
			"2025-06-06": dec("145"),
		}},
	}
	scanner, store := newScanner("100000.00", prices)
	pendingLimitBuy(t, store, "10", "150")

	result, err := scanner.Advance(context.Background(), 1, day(2), day(6))
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	// The only order fills on the first day; later days are not swept.
	if result.DaysScanned != 1 || result.DaysWithFills != 1 || result.Executed != 1 {
		t.Fatalf("result=%+v want 1 day scanned, 1 executed", result)
	}
	if len(prices.asked) != 1 {
		t.Fatalf("asked=%v want a single price lookup", prices.asked)
	}
}

func TestAdvance_NoPendingOrdersSkipsTheWalk(t *testing.T) {
	prices := &stubPrices{days: []time.Time{day(3), day(4)}}
	scanner, _ := newScanner("100000.00", prices)

	result, err := scanner.Advance(context.Background(), 1, day(2), day(4))
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.DaysScanned != 0 {
		t.Fatalf("result=%+v want no days scanned", result)
	}
}

func TestAdvance_SkipsNonTradingDays(t *testing.T) {
	// June 7th and 8th are a weekend; only the 6th and 9th are trading days.
	prices := &stubPrices{
		days: []time.Time{day(6), day(9)},
		closes: map[uint64]map[string]decimal.Decimal{42: {
			"2025-06-06": dec("160"),
			"2025-06-09": dec("160"),
		}},
	}
	scanner, store := newScanner("100000.00", prices)
	pendingLimitBuy(t, store, "10", "150")

	result, err := scanner.Advance(context.Background(), 1, day(5), day(9))
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.DaysScanned != 2 {
		t.Fatalf("days scanned=%d want 2", result.DaysScanned)
	}
	if result.DaysWithFills != 0 {
		t.Fatalf("days with fills=%d want 0", result.DaysWithFills)
	}
}
