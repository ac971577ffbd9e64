package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"papertrader/internal/models"
	"papertrader/internal/orderbook"
	"papertrader/internal/repository"
	"papertrader/internal/session"
)

type OrderHandler struct {
	Repo repository.Repository
	Book *orderbook.OrderBook
}

// Register mounts the routes on the authenticated API group.
func (h *OrderHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/portfolios/:id/orders")
	g.POST("", h.create)
	g.POST("/market", h.createAndExecute)
	g.GET("", h.list)
	g.POST("/sweep", h.sweep)
	g.POST("/:orderID/execute", h.execute)
	g.POST("/:orderID/cancel", h.cancel)
}

type orderRequest struct {
	Symbol       string           `json:"symbol"`
	InstrumentID uint64           `json:"instrument_id"`
	Type         string           `json:"type"`
	Side         string           `json:"side"`
	Quantity     decimal.Decimal  `json:"quantity"`
	LimitPrice   *decimal.Decimal `json:"limit_price"`
	ExpiresAt    *string          `json:"expires_at"`
}

func (h *OrderHandler) ownedPortfolio(c *gin.Context, s session.Session) uint64 {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return 0
	}
	item, err := h.Repo.GetPortfolioByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return 0
	}
	if item == nil || item.UserID != s.UserID {
		Error(c, http.StatusNotFound, "portfolio not found", nil)
		return 0
	}
	return id
}

func (h *OrderHandler) buildParams(c *gin.Context, portfolioID uint64, req orderRequest) (orderbook.CreateParams, bool) {
	instrumentID := req.InstrumentID
	if instrumentID == 0 && strings.TrimSpace(req.Symbol) != "" {
		instrument, err := h.Repo.GetInstrumentBySymbol(c.Request.Context(),
			strings.ToUpper(strings.TrimSpace(req.Symbol)))
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return orderbook.CreateParams{}, false
		}
		if instrument == nil {
			Error(c, http.StatusNotFound, "instrument not found", nil)
			return orderbook.CreateParams{}, false
		}
		instrumentID = instrument.ID
	}

	params := orderbook.CreateParams{
		PortfolioID:  portfolioID,
		InstrumentID: instrumentID,
		Type:         models.OrderType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Side:         models.OrderSide(strings.ToUpper(strings.TrimSpace(req.Side))),
		Quantity:     req.Quantity,
		LimitPrice:   req.LimitPrice,
	}
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := time.Parse("2006-01-02", *req.ExpiresAt)
		if err != nil {
			Error(c, http.StatusBadRequest, "expires_at must be YYYY-MM-DD", nil)
			return orderbook.CreateParams{}, false
		}
		t = t.UTC()
		params.ExpiresAt = &t
	}
	return params, true
}

func (h *OrderHandler) create(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	portfolioID := h.ownedPortfolio(c, s)
	if portfolioID == 0 {
		return
	}
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	params, ok := h.buildParams(c, portfolioID, req)
	if !ok {
		return
	}
	order, err := h.Book.CreateOrder(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, order, nil)
}

func (h *OrderHandler) createAndExecute(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	portfolioID := h.ownedPortfolio(c, s)
	if portfolioID == 0 {
		return
	}
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Type == "" {
		req.Type = string(models.OrderTypeMarket)
	}
	params, ok := h.buildParams(c, portfolioID, req)
	if !ok {
		return
	}
	order, settlement, err := h.Book.CreateAndExecute(c.Request.Context(), params, s.SimulationDate)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"order": order, "settlement": settlement}, nil)
}

func (h *OrderHandler) list(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	portfolioID := h.ownedPortfolio(c, s)
	if portfolioID == 0 {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var status *models.OrderStatus
	if v := strQueryPtr(c, "status"); v != nil {
		st := models.OrderStatus(strings.ToUpper(*v))
		status = &st
	}
	params := repository.ListOrdersParams{
		PortfolioID: portfolioID,
		Status:      status,
		Limit:       limit,
		Offset:      offset,
		OrderBy:     "created_at",
		Asc:         boolPtr(false),
	}
	items, err := h.Repo.ListOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// ownedOrder resolves :orderID within the portfolio from the URL.
func (h *OrderHandler) ownedOrder(c *gin.Context, portfolioID uint64) *models.Order {
	orderID := uint64Param(c, "orderID")
	if orderID == 0 {
		Error(c, http.StatusBadRequest, "invalid order id", nil)
		return nil
	}
	order, err := h.Repo.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil
	}
	if order == nil || order.PortfolioID != portfolioID {
		Error(c, http.StatusNotFound, "order not found", nil)
		return nil
	}
	return order
}

func (h *OrderHandler) execute(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	portfolioID := h.ownedPortfolio(c, s)
	if portfolioID == 0 {
		return
	}
	order := h.ownedOrder(c, portfolioID)
	if order == nil {
		return
	}
	executed, settlement, err := h.Book.ExecuteMarketOrder(c.Request.Context(), order.ID, s.SimulationDate)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"order": executed, "settlement": settlement}, nil)
}

func (h *OrderHandler) cancel(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	portfolioID := h.ownedPortfolio(c, s)
	if portfolioID == 0 {
		return
	}
	order := h.ownedOrder(c, portfolioID)
	if order == nil {
		return
	}
	canceled, err := h.Book.CancelOrder(c.Request.Context(), order.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, canceled, nil)
}

func (h *OrderHandler) sweep(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	portfolioID := h.ownedPortfolio(c, s)
	if portfolioID == 0 {
		return
	}
	asOf := s.SimulationDate
	if v := timeQueryPtr(c, "as_of"); v != nil {
		asOf = *v
	}
	result, err := h.Book.SweepLimitOrders(c.Request.Context(), portfolioID, asOf)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, result, nil)
}
