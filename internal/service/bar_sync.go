package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"papertrader/internal/client/yahoo"
	"papertrader/internal/models"
)

// BarSyncStore is the persistence slice bar sync writes.
type BarSyncStore interface {
	UpsertInstrument(ctx context.Context, item *models.Instrument) error
	GetInstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error)
	UpsertExchange(ctx context.Context, item *models.Exchange) error
	ListExchanges(ctx context.Context) ([]models.Exchange, error)
	UpsertPriceBars(ctx context.Context, items []models.PriceBar) error
	GetLatestBar(ctx context.Context, instrumentID uint64) (*models.PriceBar, error)
}

// BarSyncService pulls daily candles from the market-data provider and
// keeps the instrument catalog and the price history current.
type BarSyncService struct {
	Store        BarSyncStore
	Yahoo        *yahoo.Client
	Logger       *zap.Logger
	Symbols      []string
	LookbackDays int
}

type SyncOptions struct {
	// Symbols overrides the configured watchlist for one run.
	Symbols []string
	// Start overrides the lookback window.
	Start *time.Time
}

type SyncResult struct {
	Symbols     int      `json:"symbols"`
	Instruments int      `json:"instruments"`
	Bars        int      `json:"bars"`
	Errors      []string `json:"errors,omitempty"`
}

// Sync fetches bars for every symbol on the watchlist. Provider failures on
// one symbol are recorded and the rest continue.
func (s *BarSyncService) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	symbols := opts.Symbols
	if len(symbols) == 0 {
		symbols = s.Symbols
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -s.lookbackDays())
	if opts.Start != nil {
		start = opts.Start.UTC()
	}

	result := SyncResult{Symbols: len(symbols)}
	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := s.syncSymbol(ctx, symbol, start, now)
		if err != nil {
			result.Errors = append(result.Errors, symbol+": "+err.Error())
			if s.Logger != nil {
				s.Logger.Warn("bar sync failed", zap.String("symbol", symbol), zap.Error(err))
			}
			continue
		}
		result.Instruments++
		result.Bars += n
	}

	if s.Logger != nil {
		s.Logger.Info("bar sync finished",
			zap.Int("symbols", result.Symbols),
			zap.Int("instruments", result.Instruments),
			zap.Int("bars", result.Bars),
			zap.Int("errors", len(result.Errors)),
		)
	}
	return result, nil
}

func (s *BarSyncService) syncSymbol(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	quote, bars, err := s.Yahoo.GetDailyBars(ctx, symbol, start, end)
	if err != nil {
		return 0, err
	}
	if quote == nil {
		return 0, nil
	}

	instrument, err := s.upsertInstrument(ctx, symbol, quote)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	// Skip bars we already hold; the provider window usually overlaps.
	latest, err := s.Store.GetLatestBar(ctx, instrument.ID)
	if err != nil {
		return 0, err
	}
	items := make([]models.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if latest != nil && !bar.Date.After(latest.TradeDate) {
			continue
		}
		items = append(items, models.PriceBar{
			InstrumentID: instrument.ID,
			TradeDate:    bar.Date,
			Open:         bar.Open,
			High:         bar.High,
			Low:          bar.Low,
			Close:        bar.Close,
			Volume:       bar.Volume,
		})
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := s.Store.UpsertPriceBars(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *BarSyncService) upsertInstrument(ctx context.Context, symbol string, quote *yahoo.Quote) (*models.Instrument, error) {
	name := quote.LongName
	if name == "" {
		name = symbol
	}
	currency := strings.ToUpper(quote.Currency)
	if len(currency) != 3 {
		currency = "USD"
	}

	exchangeID, err := s.ensureExchange(ctx, quote.ExchangeName, currency)
	if err != nil {
		return nil, err
	}

	meta, _ := json.Marshal(quote)
	item := &models.Instrument{
		Symbol:       symbol,
		Name:         name,
		ExchangeID:   exchangeID,
		Type:         "STOCK",
		Currency:     currency,
		Status:       models.InstrumentStatusActive,
		ProviderMeta: datatypes.JSON(meta),
	}

	// Keep the sector a previous sync or an admin assigned.
	if existing, err := s.Store.GetInstrumentBySymbol(ctx, symbol); err != nil {
		return nil, err
	} else if existing != nil {
		item.SectorID = existing.SectorID
	}

	if err := s.Store.UpsertInstrument(ctx, item); err != nil {
		return nil, err
	}
	stored, err := s.Store.GetInstrumentBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *BarSyncService) ensureExchange(ctx context.Context, name, currency string) (*uint64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	code := exchangeCode(name)

	exchanges, err := s.Store.ListExchanges(ctx)
	if err != nil {
		return nil, err
	}
	for i := range exchanges {
		if exchanges[i].Code == code {
			return &exchanges[i].ID, nil
		}
	}

	item := &models.Exchange{Code: code, Name: name, Currency: currency}
	if err := s.Store.UpsertExchange(ctx, item); err != nil {
		return nil, err
	}
	exchanges, err = s.Store.ListExchanges(ctx)
	if err != nil {
		return nil, err
	}
	for i := range exchanges {
		if exchanges[i].Code == code {
			return &exchanges[i].ID, nil
		}
	}
	return nil, nil
}

func exchangeCode(name string) string {
	code := strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
	if len(code) > 20 {
		code = code[:20]
	}
	return code
}

func (s *BarSyncService) lookbackDays() int {
	if s.LookbackDays <= 0 {
		return 365
	}
	return s.LookbackDays
}
