package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"papertrader/internal/trading"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps domain errors onto HTTP statuses and writes the envelope.
func Fail(c *gin.Context, err error) {
	Error(c, statusFor(err), err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, trading.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, trading.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trading.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, trading.ErrInsufficientFunds),
		errors.Is(err, trading.ErrInsufficientShares),
		errors.Is(err, trading.ErrDataUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
