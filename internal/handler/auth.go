package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"papertrader/internal/auth"
	"papertrader/internal/session"
)

type AuthHandler struct {
	Service *auth.Service
}

func (h *AuthHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
}

type userView struct {
	ID           uint64    `json:"id"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (h *AuthHandler) register(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusServiceUnavailable, "auth unavailable", nil)
		return
	}
	var req auth.RegisterParams
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	user, err := h.Service.Register(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, userView{
		ID:           user.ID,
		Login:        user.Login,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		RegisteredAt: user.RegisteredAt,
	}, nil)
}

func (h *AuthHandler) login(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusServiceUnavailable, "auth unavailable", nil)
		return
	}
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	token, expiresAt, user, err := h.Service.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	Ok(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": userView{
			ID:           user.ID,
			Login:        user.Login,
			Email:        user.Email,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			RegisteredAt: user.RegisteredAt,
		},
	}, nil)
}

// requireSession pulls the installed session or writes 401.
func requireSession(c *gin.Context) (session.Session, bool) {
	s, ok := session.Get(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "no session", nil)
	}
	return s, ok
}
