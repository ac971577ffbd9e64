package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"papertrader/internal/auth"
	"papertrader/internal/marketdata"
	"papertrader/internal/models"
	"papertrader/internal/repository"
	"papertrader/internal/service"
)

type MarketHandler struct {
	Repo    repository.Repository
	Prices  marketdata.PriceSeries
	BarSync *service.BarSyncService
}

// Register mounts the routes on the authenticated API group.
func (h *MarketHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/market")
	g.GET("/instruments", h.listInstruments)
	g.GET("/instruments/:symbol", h.getInstrument)
	g.GET("/instruments/:symbol/bars", h.listBars)
	g.GET("/instruments/:symbol/price", h.price)
	g.GET("/quotes", h.quotes)
	g.GET("/sectors", h.listSectors)
	g.GET("/exchanges", h.listExchanges)
	g.GET("/dates", h.dates)
	g.POST("/sync", h.sync)
}

func (h *MarketHandler) listInstruments(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var status *models.InstrumentStatus
	if v := strQueryPtr(c, "status"); v != nil {
		st := models.InstrumentStatus(strings.ToUpper(*v))
		status = &st
	}
	var sectorID *uint64
	if v := intQuery(c, "sector_id", 0); v > 0 {
		id := uint64(v)
		sectorID = &id
	}
	items, err := h.Repo.ListInstruments(c.Request.Context(), repository.ListInstrumentsParams{
		Status:   status,
		SectorID: sectorID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *MarketHandler) instrumentBySymbol(c *gin.Context) *models.Instrument {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if err := auth.ValidateSymbol(symbol); err != nil {
		Fail(c, err)
		return nil
	}
	item, err := h.Repo.GetInstrumentBySymbol(c.Request.Context(), symbol)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil
	}
	if item == nil {
		Error(c, http.StatusNotFound, "instrument not found", nil)
		return nil
	}
	return item
}

func (h *MarketHandler) getInstrument(c *gin.Context) {
	item := h.instrumentBySymbol(c)
	if item == nil {
		return
	}
	Ok(c, item, nil)
}

func (h *MarketHandler) listBars(c *gin.Context) {
	item := h.instrumentBySymbol(c)
	if item == nil {
		return
	}
	end := time.Now().UTC()
	if v := timeQueryPtr(c, "end"); v != nil {
		end = *v
	}
	start := end.AddDate(0, -3, 0)
	if v := timeQueryPtr(c, "start"); v != nil {
		start = *v
	}
	bars, err := h.Repo.ListBars(c.Request.Context(), item.ID, start, end)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, bars, nil)
}

// price is the close as of the simulated date, or the date given in as_of.
func (h *MarketHandler) price(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.instrumentBySymbol(c)
	if item == nil {
		return
	}
	asOf := s.SimulationDate
	if v := timeQueryPtr(c, "as_of"); v != nil {
		asOf = *v
	}
	price, err := h.Prices.PriceAsOf(c.Request.Context(), item.ID, asOf)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{
		"symbol": item.Symbol,
		"as_of":  marketdata.Day(asOf).Format("2006-01-02"),
		"price":  price,
	}, nil)
}

type quoteView struct {
	InstrumentID  uint64          `json:"instrument_id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	Volume        int64           `json:"volume"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// quotes lists every instrument that traded on the session (or given) date
// with its candle and the open-to-close move.
func (h *MarketHandler) quotes(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	day := marketdata.Day(s.SimulationDate)
	if v := timeQueryPtr(c, "date"); v != nil {
		day = marketdata.Day(*v)
	}

	bars, err := h.Repo.ListBarsForDate(c.Request.Context(), day)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}

	out := make([]quoteView, 0, len(bars))
	for i := range bars {
		bar := &bars[i]
		instrument, err := h.Repo.GetInstrumentByID(c.Request.Context(), bar.InstrumentID)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		if instrument == nil || instrument.Status != models.InstrumentStatusActive {
			continue
		}
		change := bar.Close.Sub(bar.Open)
		changePercent := decimal.Zero
		if bar.Open.Sign() > 0 {
			changePercent = change.Div(bar.Open).Mul(decimal.NewFromInt(100)).Round(2)
		}
		out = append(out, quoteView{
			InstrumentID:  bar.InstrumentID,
			Symbol:        instrument.Symbol,
			Name:          instrument.Name,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			Volume:        bar.Volume,
			Change:        change,
			ChangePercent: changePercent,
		})
	}
	Ok(c, out, map[string]any{"date": day.Format("2006-01-02")})
}

func (h *MarketHandler) listSectors(c *gin.Context) {
	items, err := h.Repo.ListSectors(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *MarketHandler) listExchanges(c *gin.Context) {
	items, err := h.Repo.ListExchanges(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// dates reports the span of recorded history, so clients can bound the
// simulated clock.
func (h *MarketHandler) dates(c *gin.Context) {
	min, max, err := h.Prices.DateRange(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	resp := gin.H{}
	if min != nil {
		resp["min_date"] = min.Format("2006-01-02")
	}
	if max != nil {
		resp["max_date"] = max.Format("2006-01-02")
	}
	Ok(c, resp, nil)
}

func (h *MarketHandler) sync(c *gin.Context) {
	if h.BarSync == nil {
		Error(c, http.StatusServiceUnavailable, "bar sync unavailable", nil)
		return
	}
	var req struct {
		Symbols []string `json:"symbols"`
		Start   *string  `json:"start"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}
	opts := service.SyncOptions{Symbols: req.Symbols}
	if req.Start != nil && *req.Start != "" {
		t, err := time.Parse("2006-01-02", *req.Start)
		if err != nil {
			Error(c, http.StatusBadRequest, "start must be YYYY-MM-DD", nil)
			return
		}
		t = t.UTC()
		opts.Start = &t
	}
	result, err := h.BarSync.Sync(c.Request.Context(), opts)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}
