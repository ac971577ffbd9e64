package session

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"papertrader/internal/trading"
)

// Session is the per-request simulation context: who is asking, and what
// "today" is on their simulated clock. Absent a header the clock is the
// real current date.
type Session struct {
	UserID         uint64
	Login          string
	SimulationDate time.Time
}

const ginKey = "papertrader.session"

// HeaderSimulationDate carries the simulated date as YYYY-MM-DD.
const HeaderSimulationDate = "X-Simulation-Date"

func Set(c *gin.Context, s Session) {
	c.Set(ginKey, s)
}

func Get(c *gin.Context) (Session, bool) {
	v, ok := c.Get(ginKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// ParseSimulationDate reads the header value; empty means now.
func ParseSimulationDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("simulation date must be YYYY-MM-DD: %w", trading.ErrValidation)
	}
	return t.UTC(), nil
}
