package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"papertrader/internal/models"
)

// Repository is the full persistence surface. Domain packages (ledger,
// orderbook, valuation, timetravel, marketdata) each declare the narrow
// subset they consume; *gormrepo.Store satisfies all of them.
//
// Methods with a Tx suffix take the enclosing *gorm.DB transaction from
// InTx; passing nil runs them on the base connection.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users
	InsertUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// Portfolios
	InsertPortfolio(ctx context.Context, item *models.Portfolio) error
	GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error)
	ListPortfoliosByUserID(ctx context.Context, userID uint64) ([]models.Portfolio, error)

	// Cash. Debit is conditional: it only applies when the balance covers
	// the amount, and reports whether it did.
	CreditCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error)
	DebitCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error)

	// Positions
	GetPosition(ctx context.Context, portfolioID, instrumentID uint64) (*models.Position, error)
	GetPositionForUpdateTx(ctx context.Context, tx *gorm.DB, portfolioID, instrumentID uint64) (*models.Position, error)
	SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error
	ListOpenPositions(ctx context.Context, portfolioID uint64) ([]models.Position, error)
	ListAllOpenPositions(ctx context.Context) ([]models.Position, error)
	UpdatePositionValuation(ctx context.Context, id uint64, currentValue, gain, gainPercent decimal.Decimal) error

	// Orders
	InsertOrder(ctx context.Context, item *models.Order) error
	GetOrderByID(ctx context.Context, id uint64) (*models.Order, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]models.Order, error)
	CountOrders(ctx context.Context, params ListOrdersParams) (int64, error)
	ListPendingLimitOrders(ctx context.Context, portfolioID uint64) ([]models.Order, error)
	CountPendingLimitOrders(ctx context.Context, portfolioID uint64) (int64, error)
	// UpdateOrderStatusIf transitions id from -> to and applies updates in
	// one guarded statement; reports false when the order was not in from.
	UpdateOrderStatusIf(ctx context.Context, id uint64, from, to models.OrderStatus, updates map[string]any) (bool, error)

	// Transactions
	InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error
	ListTransactions(ctx context.Context, params ListTransactionsParams) ([]models.Transaction, error)
	CountTransactions(ctx context.Context, params ListTransactionsParams) (int64, error)

	// Instruments & reference data
	UpsertInstrument(ctx context.Context, item *models.Instrument) error
	GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error)
	GetInstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error)
	ListInstruments(ctx context.Context, params ListInstrumentsParams) ([]models.Instrument, error)
	UpsertSector(ctx context.Context, item *models.Sector) error
	UpsertExchange(ctx context.Context, item *models.Exchange) error
	ListSectors(ctx context.Context) ([]models.Sector, error)
	ListExchanges(ctx context.Context) ([]models.Exchange, error)

	// Price bars
	UpsertPriceBars(ctx context.Context, items []models.PriceBar) error
	GetBarAsOf(ctx context.Context, instrumentID uint64, asOf time.Time) (*models.PriceBar, error)
	GetLatestBar(ctx context.Context, instrumentID uint64) (*models.PriceBar, error)
	ListBars(ctx context.Context, instrumentID uint64, start, end time.Time) ([]models.PriceBar, error)
	ListBarsForDate(ctx context.Context, day time.Time) ([]models.PriceBar, error)
	ListTradingDays(ctx context.Context, after, until time.Time) ([]time.Time, error)
	GetPriceDateRange(ctx context.Context) (*time.Time, *time.Time, error)
}

type ListOrdersParams struct {
	PortfolioID  uint64
	Status       *models.OrderStatus
	InstrumentID *uint64
	Limit        int
	Offset       int
	OrderBy      string
	Asc          *bool
}

type ListTransactionsParams struct {
	PortfolioID uint64
	Start       *time.Time
	End         *time.Time
	Limit       int
	Offset      int
}

type ListInstrumentsParams struct {
	Status   *models.InstrumentStatus
	SectorID *uint64
	Limit    int
	Offset   int
}
