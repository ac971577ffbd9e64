package orderbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrader/internal/ledger"
	"papertrader/internal/marketdata"
	"papertrader/internal/models"
	"papertrader/internal/trading"
)

// Store is the persistence slice the order book consumes.
type Store interface {
	InsertOrder(ctx context.Context, item *models.Order) error
	GetOrderByID(ctx context.Context, id uint64) (*models.Order, error)
	ListPendingLimitOrders(ctx context.Context, portfolioID uint64) ([]models.Order, error)
	UpdateOrderStatusIf(ctx context.Context, id uint64, from, to models.OrderStatus, updates map[string]any) (bool, error)
	GetInstrumentByID(ctx context.Context, id uint64) (*models.Instrument, error)
}

// OrderBook owns the order lifecycle: PENDING at creation, FILLED once the
// ledger settles it, CANCELED by the owner or by expiry. Settlement is
// delegated to the ledger; the book never touches cash or positions itself.
type OrderBook struct {
	Store  Store
	Ledger *ledger.Ledger
	Prices marketdata.PriceSeries
	Logger *zap.Logger
}

// CreateParams describes a new order. LimitPrice is required for LIMIT
// orders and must be absent for MARKET orders.
type CreateParams struct {
	PortfolioID  uint64
	InstrumentID uint64
	Type         models.OrderType
	Side         models.OrderSide
	Quantity     decimal.Decimal
	LimitPrice   *decimal.Decimal
	ExpiresAt    *time.Time
}

func (p CreateParams) validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("unknown order type %q: %w", p.Type, trading.ErrValidation)
	}
	if !p.Side.Valid() {
		return fmt.Errorf("unknown order side %q: %w", p.Side, trading.ErrValidation)
	}
	if p.Quantity.Sign() <= 0 {
		return fmt.Errorf("quantity must be positive: %w", trading.ErrValidation)
	}
	switch p.Type {
	case models.OrderTypeLimit:
		if p.LimitPrice == nil || p.LimitPrice.Sign() <= 0 {
			return fmt.Errorf("limit order requires a positive limit price: %w", trading.ErrValidation)
		}
	case models.OrderTypeMarket:
		if p.LimitPrice != nil {
			return fmt.Errorf("market order must not carry a limit price: %w", trading.ErrValidation)
		}
	}
	return nil
}

// CreateOrder records a PENDING order. Funds and holdings are not checked
// here; they are checked at settlement, against the balances of that moment.
func (b *OrderBook) CreateOrder(ctx context.Context, params CreateParams) (*models.Order, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	instrument, err := b.Store.GetInstrumentByID(ctx, params.InstrumentID)
	if err != nil {
		return nil, err
	}
	if instrument == nil {
		return nil, fmt.Errorf("instrument %d: %w", params.InstrumentID, trading.ErrNotFound)
	}

	order := &models.Order{
		PortfolioID:  params.PortfolioID,
		InstrumentID: params.InstrumentID,
		Type:         params.Type,
		Side:         params.Side,
		Quantity:     params.Quantity,
		LimitPrice:   params.LimitPrice,
		Status:       models.OrderStatusPending,
		ExpiresAt:    params.ExpiresAt,
	}
	if err := b.Store.InsertOrder(ctx, order); err != nil {
		return nil, err
	}
	if b.Logger != nil {
		b.Logger.Info("order created",
			zap.Uint64("order_id", order.ID),
			zap.Uint64("portfolio_id", order.PortfolioID),
			zap.String("type", string(order.Type)),
			zap.String("side", string(order.Side)),
		)
	}
	return order, nil
}

// ExecuteMarketOrder settles a pending order at the instrument's price as of
// asOf. On settlement failure the order stays PENDING and the error is
// returned; the caller decides whether to retry or cancel.
func (b *OrderBook) ExecuteMarketOrder(ctx context.Context, orderID uint64, asOf time.Time) (*models.Order, *ledger.Settlement, error) {
	order, err := b.Store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, fmt.Errorf("order %d: %w", orderID, trading.ErrNotFound)
	}
	if order.Status != models.OrderStatusPending {
		return nil, nil, fmt.Errorf("order %d is %s: %w", orderID, order.Status, trading.ErrInvalidState)
	}

	price, err := b.Prices.PriceAsOf(ctx, order.InstrumentID, asOf)
	if err != nil {
		return nil, nil, err
	}
	settlement, err := b.settle(ctx, order, price, asOf)
	if err != nil {
		return nil, nil, err
	}
	return order, settlement, nil
}

// CreateAndExecute creates a market order and settles it immediately. When
// settlement fails the freshly created order is canceled with the failure
// recorded, so no orphan PENDING order is left behind.
func (b *OrderBook) CreateAndExecute(ctx context.Context, params CreateParams, asOf time.Time) (*models.Order, *ledger.Settlement, error) {
	if params.Type != models.OrderTypeMarket {
		return nil, nil, fmt.Errorf("immediate execution is for market orders: %w", trading.ErrValidation)
	}
	order, err := b.CreateOrder(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	price, err := b.Prices.PriceAsOf(ctx, order.InstrumentID, asOf)
	if err != nil {
		b.cancelFailed(ctx, order, err)
		return nil, nil, err
	}
	settlement, err := b.settle(ctx, order, price, asOf)
	if err != nil {
		b.cancelFailed(ctx, order, err)
		return nil, nil, err
	}
	return order, settlement, nil
}

// CancelOrder transitions PENDING -> CANCELED. Any other starting status is
// rejected; terminal orders never change again.
func (b *OrderBook) CancelOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	order, err := b.Store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %d: %w", orderID, trading.ErrNotFound)
	}
	ok, err := b.Store.UpdateOrderStatusIf(ctx, orderID, models.OrderStatusPending, models.OrderStatusCanceled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("order %d is %s, only PENDING orders can be canceled: %w",
			orderID, order.Status, trading.ErrInvalidState)
	}
	order.Status = models.OrderStatusCanceled
	return order, nil
}

// SweepResult reports one sweep of a portfolio's pending limit orders.
type SweepResult struct {
	Executed int      `json:"executed"`
	Canceled int      `json:"canceled"`
	Messages []string `json:"messages,omitempty"`
}

// SweepLimitOrders walks the portfolio's pending limit orders in creation
// order and, as of the given date: cancels expired orders, skips instruments
// with no price, and fills triggered orders at the market price. A BUY
// triggers when market <= limit, a SELL when market >= limit; both bounds
// are inclusive. A triggered order whose settlement fails stays PENDING and
// is retried on a later sweep, same as a failed market-order execution.
func (b *OrderBook) SweepLimitOrders(ctx context.Context, portfolioID uint64, asOf time.Time) (*SweepResult, error) {
	orders, err := b.Store.ListPendingLimitOrders(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	day := marketdata.Day(asOf)
	for i := range orders {
		order := &orders[i]

		if order.ExpiresAt != nil && order.ExpiresAt.Before(day) {
			ok, err := b.Store.UpdateOrderStatusIf(ctx, order.ID,
				models.OrderStatusPending, models.OrderStatusCanceled,
				map[string]any{"failure_reason": "expired"})
			if err != nil {
				return nil, err
			}
			if ok {
				result.Canceled++
				result.Messages = append(result.Messages,
					fmt.Sprintf("order %d expired on %s", order.ID, order.ExpiresAt.Format("2006-01-02")))
			}
			continue
		}

		price, err := b.Prices.PriceAsOf(ctx, order.InstrumentID, asOf)
		if err != nil {
			if errors.Is(err, trading.ErrDataUnavailable) {
				continue
			}
			return nil, err
		}
		if !limitTriggered(order, price) {
			continue
		}

		if _, err := b.settle(ctx, order, price, asOf); err != nil {
			if errors.Is(err, trading.ErrInsufficientFunds) ||
				errors.Is(err, trading.ErrInsufficientShares) ||
				errors.Is(err, trading.ErrInvalidState) {
				result.Messages = append(result.Messages,
					fmt.Sprintf("order %d not filled: %v", order.ID, err))
				continue
			}
			return nil, err
		}
		result.Executed++
		result.Messages = append(result.Messages,
			fmt.Sprintf("order %d filled at %s", order.ID, price))
	}

	if b.Logger != nil && (result.Executed > 0 || result.Canceled > 0) {
		b.Logger.Info("limit sweep",
			zap.Uint64("portfolio_id", portfolioID),
			zap.Time("as_of", day),
			zap.Int("executed", result.Executed),
			zap.Int("canceled", result.Canceled),
		)
	}
	return result, nil
}

func limitTriggered(order *models.Order, market decimal.Decimal) bool {
	if order.LimitPrice == nil {
		return false
	}
	switch order.Side {
	case models.OrderSideBuy:
		return market.LessThanOrEqual(*order.LimitPrice)
	case models.OrderSideSell:
		return market.GreaterThanOrEqual(*order.LimitPrice)
	}
	return false
}

// settle runs the ledger settlement and flips the order to FILLED. The
// status transition is guarded on PENDING so a concurrent cancel or sweep
// cannot double-fill.
func (b *OrderBook) settle(ctx context.Context, order *models.Order, price decimal.Decimal, asOf time.Time) (*ledger.Settlement, error) {
	var (
		settlement *ledger.Settlement
		err        error
	)
	switch order.Side {
	case models.OrderSideBuy:
		settlement, err = b.Ledger.SettleBuy(ctx, order.ID, order.PortfolioID, order.InstrumentID, order.Quantity, price, asOf)
	case models.OrderSideSell:
		settlement, err = b.Ledger.SettleSell(ctx, order.ID, order.PortfolioID, order.InstrumentID, order.Quantity, price, asOf)
	default:
		return nil, fmt.Errorf("unknown order side %q: %w", order.Side, trading.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	ok, err := b.Store.UpdateOrderStatusIf(ctx, order.ID,
		models.OrderStatusPending, models.OrderStatusFilled,
		map[string]any{"executed_at": asOf})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("order %d changed state during settlement: %w", order.ID, trading.ErrInvalidState)
	}
	order.Status = models.OrderStatusFilled
	order.ExecutedAt = &asOf
	return settlement, nil
}

func (b *OrderBook) cancelFailed(ctx context.Context, order *models.Order, cause error) {
	ok, err := b.Store.UpdateOrderStatusIf(ctx, order.ID,
		models.OrderStatusPending, models.OrderStatusCanceled,
		map[string]any{"failure_reason": cause.Error()})
	if err != nil && b.Logger != nil {
		b.Logger.Warn("cancel after failed settlement",
			zap.Uint64("order_id", order.ID), zap.Error(err))
	}
	if ok {
		order.Status = models.OrderStatusCanceled
		order.FailureReason = cause.Error()
	}
}
