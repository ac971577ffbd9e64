package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"papertrader/internal/models"
	"papertrader/internal/trading"
)

// Store is the persistence slice the ledger mutates. Settlements run inside
// InTx; the cash guards and the position row lock are what make concurrent
// settlements against one portfolio safe.
type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error)
	CreditCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error)
	DebitCashTx(ctx context.Context, tx *gorm.DB, portfolioID uint64, amount decimal.Decimal) (bool, error)
	GetPositionForUpdateTx(ctx context.Context, tx *gorm.DB, portfolioID, instrumentID uint64) (*models.Position, error)
	SavePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error
	InsertTransactionTx(ctx context.Context, tx *gorm.DB, item *models.Transaction) error
}

// Ledger is the sole mutator of cash balances and positions. Every
// settlement either commits in full (cash, position, transaction record) or
// leaves no trace.
type Ledger struct {
	Store          Store
	Logger         *zap.Logger
	CommissionRate decimal.Decimal
}

func (l *Ledger) rate() decimal.Decimal {
	if l.CommissionRate.IsZero() {
		return trading.DefaultCommissionRate
	}
	return l.CommissionRate
}

// Settlement reports what a completed buy or sell did.
type Settlement struct {
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Gross      decimal.Decimal `json:"gross"`
	Commission decimal.Decimal `json:"commission"`
	// Net is the cash movement: total debit for buys, net credit for sells.
	Net              decimal.Decimal `json:"net"`
	PositionQuantity decimal.Decimal `json:"position_quantity"`
	ExecutedAt       time.Time       `json:"executed_at"`
}

func (l *Ledger) Deposit(ctx context.Context, portfolioID uint64, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("deposit amount must be positive: %w", trading.ErrValidation)
	}
	ok, err := l.Store.CreditCashTx(ctx, nil, portfolioID, trading.Round2(amount))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("portfolio %d: %w", portfolioID, trading.ErrNotFound)
	}
	return nil
}

func (l *Ledger) Withdraw(ctx context.Context, portfolioID uint64, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("withdrawal amount must be positive: %w", trading.ErrValidation)
	}
	portfolio, err := l.Store.GetPortfolioByID(ctx, portfolioID)
	if err != nil {
		return err
	}
	if portfolio == nil {
		return fmt.Errorf("portfolio %d: %w", portfolioID, trading.ErrNotFound)
	}
	ok, err := l.Store.DebitCashTx(ctx, nil, portfolioID, trading.Round2(amount))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("withdrawal of %s exceeds balance %s: %w",
			trading.Round2(amount), portfolio.CashBalance, trading.ErrInsufficientFunds)
	}
	return nil
}

// SettleBuy debits gross+commission, creates or grows the position at the
// weighted-average cost, and records the BUY transaction, atomically.
func (l *Ledger) SettleBuy(ctx context.Context, orderID, portfolioID, instrumentID uint64, quantity, price decimal.Decimal, asOf time.Time) (*Settlement, error) {
	if err := validateQuantityPrice(quantity, price); err != nil {
		return nil, err
	}
	portfolio, err := l.Store.GetPortfolioByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, fmt.Errorf("portfolio %d: %w", portfolioID, trading.ErrNotFound)
	}

	cost := trading.CalculateOrderCost(quantity, price, l.rate())
	result := &Settlement{
		Quantity:   quantity,
		Price:      price,
		Gross:      cost.Value,
		Commission: cost.Commission,
		Net:        cost.Total,
		ExecutedAt: asOf,
	}

	err = l.Store.InTx(ctx, func(tx *gorm.DB) error {
		ok, err := l.Store.DebitCashTx(ctx, tx, portfolioID, cost.Total)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("buy needs %s, balance is %s: %w",
				cost.Total, portfolio.CashBalance, trading.ErrInsufficientFunds)
		}

		position, err := l.Store.GetPositionForUpdateTx(ctx, tx, portfolioID, instrumentID)
		if err != nil {
			return err
		}
		if position == nil {
			position = &models.Position{
				PortfolioID:   portfolioID,
				InstrumentID:  instrumentID,
				FirstBoughtAt: asOf,
			}
		}
		position.AvgPrice = trading.WeightedAvgPrice(position.Quantity, position.AvgPrice, quantity, price)
		position.Quantity = position.Quantity.Add(quantity)
		position.PurchaseValue = trading.Round2(position.Quantity.Mul(position.AvgPrice))
		position.LastChangedAt = asOf
		if err := l.Store.SavePositionTx(ctx, tx, position); err != nil {
			return err
		}
		result.PositionQuantity = position.Quantity

		return l.Store.InsertTransactionTx(ctx, tx, &models.Transaction{
			OrderID:      orderID,
			PortfolioID:  portfolioID,
			InstrumentID: instrumentID,
			Type:         models.TransactionTypeBuy,
			Quantity:     quantity,
			UnitPrice:    price,
			GrossValue:   cost.Value,
			Commission:   cost.Commission,
			NetValue:     cost.Total,
			Currency:     portfolio.Currency,
			ExecutedAt:   asOf,
		})
	})
	if err != nil {
		return nil, err
	}

	if l.Logger != nil {
		l.Logger.Info("buy settled",
			zap.Uint64("portfolio_id", portfolioID),
			zap.Uint64("instrument_id", instrumentID),
			zap.String("quantity", quantity.String()),
			zap.String("total", cost.Total.String()),
		)
	}
	return result, nil
}

// SettleSell reduces the position (average cost untouched), credits
// gross-commission, and records the SELL transaction, atomically. Selling
// the full quantity closes the position.
func (l *Ledger) SettleSell(ctx context.Context, orderID, portfolioID, instrumentID uint64, quantity, price decimal.Decimal, asOf time.Time) (*Settlement, error) {
	if err := validateQuantityPrice(quantity, price); err != nil {
		return nil, err
	}
	portfolio, err := l.Store.GetPortfolioByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, fmt.Errorf("portfolio %d: %w", portfolioID, trading.ErrNotFound)
	}

	proceeds := trading.CalculateOrderProceeds(quantity, price, l.rate())
	result := &Settlement{
		Quantity:   quantity,
		Price:      price,
		Gross:      proceeds.Value,
		Commission: proceeds.Commission,
		Net:        proceeds.Net,
		ExecutedAt: asOf,
	}

	err = l.Store.InTx(ctx, func(tx *gorm.DB) error {
		position, err := l.Store.GetPositionForUpdateTx(ctx, tx, portfolioID, instrumentID)
		if err != nil {
			return err
		}
		held := decimal.Zero
		if position != nil {
			held = position.Quantity
		}
		if quantity.GreaterThan(held) {
			return fmt.Errorf("sell of %s exceeds held %s: %w",
				quantity, held, trading.ErrInsufficientShares)
		}

		position.Quantity = position.Quantity.Sub(quantity)
		position.PurchaseValue = trading.Round2(position.Quantity.Mul(position.AvgPrice))
		position.LastChangedAt = asOf
		if err := l.Store.SavePositionTx(ctx, tx, position); err != nil {
			return err
		}
		result.PositionQuantity = position.Quantity

		if _, err := l.Store.CreditCashTx(ctx, tx, portfolioID, proceeds.Net); err != nil {
			return err
		}

		return l.Store.InsertTransactionTx(ctx, tx, &models.Transaction{
			OrderID:      orderID,
			PortfolioID:  portfolioID,
			InstrumentID: instrumentID,
			Type:         models.TransactionTypeSell,
			Quantity:     quantity,
			UnitPrice:    price,
			GrossValue:   proceeds.Value,
			Commission:   proceeds.Commission,
			NetValue:     proceeds.Net,
			Currency:     portfolio.Currency,
			ExecutedAt:   asOf,
		})
	})
	if err != nil {
		return nil, err
	}

	if l.Logger != nil {
		l.Logger.Info("sell settled",
			zap.Uint64("portfolio_id", portfolioID),
			zap.Uint64("instrument_id", instrumentID),
			zap.String("quantity", quantity.String()),
			zap.String("net", proceeds.Net.String()),
		)
	}
	return result, nil
}

func validateQuantityPrice(quantity, price decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return fmt.Errorf("quantity must be positive: %w", trading.ErrValidation)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("price must be positive: %w", trading.ErrValidation)
	}
	return nil
}
