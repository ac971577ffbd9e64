package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client fetches daily OHLCV history from the Yahoo Finance chart API.
type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://query1.finance.yahoo.com"
	}
	host = strings.TrimRight(host, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

// Bar is one daily candle. Date is the UTC calendar date of the session.
type Bar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Quote is the instrument description the chart endpoint reports alongside
// the candles.
type Quote struct {
	Symbol       string
	LongName     string
	Currency     string
	ExchangeName string
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol           string `json:"symbol"`
				Currency         string `json:"currency"`
				FullExchangeName string `json:"fullExchangeName"`
				LongName         string `json:"longName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "papertrader/1.0")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetDailyBars returns the daily candles for symbol between start and end,
// oldest first. A symbol with no data in the window yields an empty slice,
// not an error. Sessions with null fields (halted or incomplete) are
// skipped.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) (*Quote, []Bar, error) {
	if symbol == "" {
		return nil, nil, fmt.Errorf("symbol is required")
	}
	query := url.Values{}
	query.Set("period1", fmt.Sprintf("%d", start.UTC().Unix()))
	query.Set("period2", fmt.Sprintf("%d", end.UTC().Unix()))
	query.Set("interval", "1d")
	query.Set("events", "history")

	body, err := c.doRequest(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), query)
	if err != nil {
		return nil, nil, err
	}
	return parseChart(body)
}

func parseChart(body []byte) (*Quote, []Bar, error) {
	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, nil, fmt.Errorf("chart API error %s: %s",
			parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, nil, nil
	}
	result := parsed.Chart.Result[0]
	quote := &Quote{
		Symbol:       result.Meta.Symbol,
		LongName:     result.Meta.LongName,
		Currency:     result.Meta.Currency,
		ExchangeName: result.Meta.FullExchangeName,
	}
	if len(result.Indicators.Quote) == 0 {
		return quote, nil, nil
	}
	series := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Each series can be shorter than the timestamp axis; never index
		// past the end of any of them.
		if i >= len(series.Open) || i >= len(series.High) ||
			i >= len(series.Low) || i >= len(series.Close) {
			continue
		}
		if series.Open[i] == nil || series.High[i] == nil ||
			series.Low[i] == nil || series.Close[i] == nil {
			continue
		}
		day := time.Unix(ts, 0).UTC()
		bar := Bar{
			Date:  time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:  decimal.NewFromFloat(*series.Open[i]).Round(4),
			High:  decimal.NewFromFloat(*series.High[i]).Round(4),
			Low:   decimal.NewFromFloat(*series.Low[i]).Round(4),
			Close: decimal.NewFromFloat(*series.Close[i]).Round(4),
		}
		if i < len(series.Volume) && series.Volume[i] != nil {
			bar.Volume = *series.Volume[i]
		}
		bars = append(bars, bar)
	}
	return quote, bars, nil
}
