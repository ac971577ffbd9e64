package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"papertrader/internal/models"
	"papertrader/internal/trading"

	"errors"
)

// stubStore is an in-memory ledger.Store. InTx snapshots state and rolls
// back on error, mirroring the transactional guarantees of the real store.
type stubStore struct {
	portfolios   map[uint64]*models.Portfolio
	positions    map[[2]uint64]*models.Position
	transactions []models.Transaction
}

func newStubStore() *stubStore {
	return &stubStore{
		portfolios: map[uint64]*models.Portfolio{},
		positions:  map[[2]uint64]*models.Position{},
	}
}

func (s *stubStore) snapshot() *stubStore {
	cp := newStubStore()
	for id, p := range s.portfolios {
		c := *p
		cp.portfolios[id] = &c
	}
	for k, p := range s.positions {
		c := *p
		cp.positions[k] = &c
	}
	cp.transactions = append([]models.Transaction{}, s.transactions...)
	return cp
}

func (s *stubStore) restore(from *stubStore) {
	s.portfolios = from.portfolios
	s.positions = from.positions
	s.transactions = from.transactions
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	saved := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

func (s *stubStore) GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error) {
	p, ok := s.portfolios[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
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
	p, ok := s.positions[[2]uint64{portfolioID, instrumentID}]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (s *stubStore) SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	s.positions[[2]uint64{item.PortfolioID, item.InstrumentID}] = item
	return nil
}

func (s *stubStore) InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error {
	s.transactions = append(s.transactions, *item)
	return nil
}

func newLedger(store *stubStore) *Ledger {
	return &Ledger{Store: store}
}

func seedPortfolio(store *stubStore, cash string) {
	store.portfolios[1] = &models.Portfolio{
		ID:          1,
		UserID:      1,
		Name:        "Main",
		Currency:    "USD",
		CashBalance: decimal.RequireFromString(cash),
	}
}

var asOf = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestDeposit(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "100.00")
	l := newLedger(store)

	if err := l.Deposit(context.Background(), 1, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := store.portfolios[1].CashBalance; got.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Fatalf("balance=%s want 150", got)
	}
}

func TestDeposit_NonPositive(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "100.00")
	l := newLedger(store)

	err := l.Deposit(context.Background(), 1, decimal.Zero)
	if !errors.Is(err, trading.ErrValidation) {
		t.Fatalf("err=%v want ErrValidation", err)
	}
	if got := store.portfolios[1].CashBalance; got.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("balance changed: %s", got)
	}
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "100.00")
	l := newLedger(store)

	err := l.Withdraw(context.Background(), 1, decimal.NewFromInt(101))
	if !errors.Is(err, trading.ErrInsufficientFunds) {
		t.Fatalf("err=%v want ErrInsufficientFunds", err)
	}
	if got := store.portfolios[1].CashBalance; got.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("balance changed: %s", got)
	}
}

func TestSettleBuy_NewPosition(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "2000.00")
	l := newLedger(store)

	res, err := l.SettleBuy(context.Background(), 7, 1, 42,
		decimal.NewFromInt(10), decimal.NewFromInt(100), asOf)
	if err != nil {
		t.Fatalf("settle buy: %v", err)
	}
	if res.Net.StringFixed(2) != "1003.90" {
		t.Fatalf("net=%s want 1003.90", res.Net)
	}
	if got := store.portfolios[1].CashBalance; got.StringFixed(2) != "996.10" {
		t.Fatalf("balance=%s want 996.10", got)
	}
	pos := store.positions[[2]uint64{1, 42}]
	if pos == nil || pos.Quantity.Cmp(decimal.NewFromInt(10)) != 0 {
		t.Fatalf("position=%+v want quantity 10", pos)
	}
	if pos.AvgPrice.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("avg=%s want 100", pos.AvgPrice)
	}
	if !pos.FirstBoughtAt.Equal(asOf) {
		t.Fatalf("first bought %s want %s", pos.FirstBoughtAt, asOf)
	}
	if len(store.transactions) != 1 || store.transactions[0].Type != models.TransactionTypeBuy {
		t.Fatalf("transactions=%+v want one BUY", store.transactions)
	}
	if store.transactions[0].OrderID != 7 {
		t.Fatalf("order id=%d want 7", store.transactions[0].OrderID)
	}
}

func TestSettleBuy_WeightedAverage(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "10000.00")
	l := newLedger(store)
	ctx := context.Background()

	if _, err := l.SettleBuy(ctx, 1, 1, 42, decimal.NewFromInt(10), decimal.NewFromInt(100), asOf); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := l.SettleBuy(ctx, 2, 1, 42, decimal.NewFromInt(10), decimal.NewFromInt(200), asOf.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	pos := store.positions[[2]uint64{1, 42}]
	if pos.Quantity.Cmp(decimal.NewFromInt(20)) != 0 {
		t.Fatalf("quantity=%s want 20", pos.Quantity)
	}
	if pos.AvgPrice.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Fatalf("avg=%s want 150", pos.AvgPrice)
	}
	if !pos.FirstBoughtAt.Equal(asOf) {
		t.Fatalf("first bought moved: %s", pos.FirstBoughtAt)
	}
}

func TestSettleBuy_InsufficientFunds_NoPartialState(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "500.00")
	l := newLedger(store)

	_, err := l.SettleBuy(context.Background(), 1, 1, 42,
		decimal.NewFromInt(10), decimal.NewFromInt(100), asOf)
	if !errors.Is(err, trading.ErrInsufficientFunds) {
		t.Fatalf("err=%v want ErrInsufficientFunds", err)
	}
	if got := store.portfolios[1].CashBalance; got.Cmp(decimal.NewFromInt(500)) != 0 {
		t.Fatalf("balance changed: %s", got)
	}
	if len(store.positions) != 0 || len(store.transactions) != 0 {
		t.Fatalf("partial state: positions=%d transactions=%d", len(store.positions), len(store.transactions))
	}
}

func TestSettleSell_InsufficientShares(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "1000.00")
	l := newLedger(store)
	ctx := context.Background()

	if _, err := l.SettleBuy(ctx, 1, 1, 42, decimal.NewFromInt(5), decimal.NewFromInt(100), asOf); err != nil {
		t.Fatalf("buy: %v", err)
	}
	balanceAfterBuy := store.portfolios[1].CashBalance

	_, err := l.SettleSell(ctx, 2, 1, 42, decimal.NewFromInt(6), decimal.NewFromInt(100), asOf)
	if !errors.Is(err, trading.ErrInsufficientShares) {
		t.Fatalf("err=%v want ErrInsufficientShares", err)
	}
	if got := store.portfolios[1].CashBalance; got.Cmp(balanceAfterBuy) != 0 {
		t.Fatalf("balance changed: %s", got)
	}
	if got := store.positions[[2]uint64{1, 42}].Quantity; got.Cmp(decimal.NewFromInt(5)) != 0 {
		t.Fatalf("quantity changed: %s", got)
	}
}

func TestSettleSell_UnknownInstrument(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "1000.00")
	l := newLedger(store)

	_, err := l.SettleSell(context.Background(), 1, 1, 99,
		decimal.NewFromInt(1), decimal.NewFromInt(100), asOf)
	if !errors.Is(err, trading.ErrInsufficientShares) {
		t.Fatalf("err=%v want ErrInsufficientShares", err)
	}
}

func TestRoundTrip_CostsExactlyTwoCommissions(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "2000.00")
	l := newLedger(store)
	ctx := context.Background()

	qty := decimal.NewFromInt(10)
	price := decimal.NewFromInt(100)

	if _, err := l.SettleBuy(ctx, 1, 1, 42, qty, price, asOf); err != nil {
		t.Fatalf("buy: %v", err)
	}
	sell, err := l.SettleSell(ctx, 2, 1, 42, qty, price, asOf)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}

	// Started at 2000, bought and sold at the same price: down 2x 3.90.
	if got := store.portfolios[1].CashBalance; got.StringFixed(2) != "1992.20" {
		t.Fatalf("balance=%s want 1992.20", got)
	}
	if sell.PositionQuantity.Sign() != 0 {
		t.Fatalf("position quantity=%s want 0", sell.PositionQuantity)
	}
	// Closed position stays as a zero-quantity row with its average intact.
	pos := store.positions[[2]uint64{1, 42}]
	if pos.AvgPrice.Cmp(price) != 0 {
		t.Fatalf("avg changed on sell: %s", pos.AvgPrice)
	}
}

func TestSettleSell_AverageUnchangedOnPartialSell(t *testing.T) {
	store := newStubStore()
	seedPortfolio(store, "10000.00")
	l := newLedger(store)
	ctx := context.Background()

	if _, err := l.SettleBuy(ctx, 1, 1, 42, decimal.NewFromInt(10), decimal.NewFromInt(100), asOf); err != nil {
		t.Fatalf("buy 1: %v", err)
	}
	if _, err := l.SettleBuy(ctx, 2, 1, 42, decimal.NewFromInt(10), decimal.NewFromInt(200), asOf); err != nil {
		t.Fatalf("buy 2: %v", err)
	}
	if _, err := l.SettleSell(ctx, 3, 1, 42, decimal.NewFromInt(15), decimal.NewFromInt(300), asOf); err != nil {
		t.Fatalf("sell: %v", err)
	}

	pos := store.positions[[2]uint64{1, 42}]
	if pos.Quantity.Cmp(decimal.NewFromInt(5)) != 0 {
		t.Fatalf("quantity=%s want 5", pos.Quantity)
	}
	if pos.AvgPrice.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Fatalf("avg=%s want 150", pos.AvgPrice)
	}
}
