package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"papertrader/internal/auth"
	"papertrader/internal/ledger"
	"papertrader/internal/models"
	"papertrader/internal/repository"
	"papertrader/internal/session"
	"papertrader/internal/timetravel"
	"papertrader/internal/valuation"
)

type PortfolioHandler struct {
	Repo            repository.Repository
	Ledger          *ledger.Ledger
	Valuation       *valuation.Engine
	Scanner         *timetravel.Scanner
	DefaultCurrency string
}

// Register mounts the routes on the authenticated API group.
func (h *PortfolioHandler) Register(api *gin.RouterGroup) {
	g := api.Group("/portfolios")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/summary", h.summary)
	g.GET("/:id/positions", h.positions)
	g.GET("/:id/transactions", h.transactions)
	g.POST("/:id/deposit", h.deposit)
	g.POST("/:id/withdraw", h.withdraw)
	g.POST("/:id/advance", h.advance)
}

// owned loads the portfolio and rejects access across users.
func (h *PortfolioHandler) owned(c *gin.Context, s session.Session) *models.Portfolio {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return nil
	}
	item, err := h.Repo.GetPortfolioByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil
	}
	if item == nil || item.UserID != s.UserID {
		Error(c, http.StatusNotFound, "portfolio not found", nil)
		return nil
	}
	return item
}

func (h *PortfolioHandler) create(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req struct {
		Name           string          `json:"name"`
		Currency       string          `json:"currency"`
		InitialBalance decimal.Decimal `json:"initial_balance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		Error(c, http.StatusBadRequest, "name is required", nil)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.DefaultCurrency
	}
	if err := auth.ValidateCurrency(currency); err != nil {
		Fail(c, err)
		return
	}

	item := &models.Portfolio{
		UserID:      s.UserID,
		Name:        req.Name,
		Currency:    currency,
		CashBalance: decimal.Zero,
	}
	if err := h.Repo.InsertPortfolio(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if req.InitialBalance.Sign() > 0 {
		if err := h.Ledger.Deposit(c.Request.Context(), item.ID, req.InitialBalance); err != nil {
			Fail(c, err)
			return
		}
		item, err := h.Repo.GetPortfolioByID(c.Request.Context(), item.ID)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Ok(c, item, nil)
		return
	}
	Ok(c, item, nil)
}

func (h *PortfolioHandler) list(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListPortfoliosByUserID(c.Request.Context(), s.UserID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *PortfolioHandler) get(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.owned(c, s)
	if item == nil {
		return
	}
	Ok(c, item, nil)
}

func (h *PortfolioHandler) summary(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.owned(c, s)
	if item == nil {
		return
	}
	asOf := s.SimulationDate
	if v := timeQueryPtr(c, "as_of"); v != nil {
		asOf = *v
	}
	summary, err := h.Valuation.PortfolioSummary(c.Request.Context(), item.ID, asOf)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, summary, nil)
}

func (h *PortfolioHandler) positions(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.owned(c, s)
	if item == nil {
		return
	}
	asOf := s.SimulationDate
	if v := timeQueryPtr(c, "as_of"); v != nil {
		asOf = *v
	}
	positions, err := h.Valuation.PositionsAsOf(c.Request.Context(), item.ID, asOf)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, positions, nil)
}

func (h *PortfolioHandler) transactions(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.owned(c, s)
	if item == nil {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTransactionsParams{
		PortfolioID: item.ID,
		Start:       timeQueryPtr(c, "start"),
		End:         timeQueryPtr(c, "end"),
		Limit:       limit,
		Offset:      offset,
	}
	items, err := h.Repo.ListTransactions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTransactions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type cashRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *PortfolioHandler) deposit(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.owned(c, s)
	if item == nil {
		return
	}
	var req cashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.Ledger.Deposit(c.Request.Context(), item.ID, req.Amount); err != nil {
		Fail(c, err)
		return
	}
	updated, err := h.Repo.GetPortfolioByID(c.Request.Context(), item.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, updated, nil)
}

func (h *PortfolioHandler) withdraw(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.owned(c, s)
	if item == nil {
		return
	}
	var req cashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.Ledger.Withdraw(c.Request.Context(), item.ID, req.Amount); err != nil {
		Fail(c, err)
		return
	}
	updated, err := h.Repo.GetPortfolioByID(c.Request.Context(), item.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, updated, nil)
}

func (h *PortfolioHandler) advance(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	item := h.owned(c, s)
	if item == nil {
		return
	}
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		Error(c, http.StatusBadRequest, "from must be YYYY-MM-DD", nil)
		return
	}
	to := s.SimulationDate
	if req.To != "" {
		to, err = time.Parse("2006-01-02", req.To)
		if err != nil {
			Error(c, http.StatusBadRequest, "to must be YYYY-MM-DD", nil)
			return
		}
	}

	result, err := h.Scanner.Advance(c.Request.Context(), item.ID, from.UTC(), to.UTC())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, result, nil)
}
