package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {
        "symbol": "AAPL",
        "currency": "USD",
        "fullExchangeName": "NasdaqGS",
        "longName": "Apple Inc."
      },
      "timestamp": [1748854800, 1748941200, 1749027600],
      "indicators": {
        "quote": [{
          "open":   [200.1, 201.5, null],
          "high":   [203.0, 204.2, null],
          "low":    [199.0, 200.8, null],
          "close":  [202.5, 203.9, null],
          "volume": [1000000, 1100000, null]
        }]
      }
    }],
    "error": null
  }
}`

func TestGetDailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Fatalf("path=%s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Fatalf("interval=%s want 1d", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartFixture))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL)
	quote, bars, err := client.GetDailyBars(context.Background(),
		"AAPL", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("get daily bars: %v", err)
	}
	if quote.Symbol != "AAPL" || quote.Currency != "USD" || quote.LongName != "Apple Inc." {
		t.Fatalf("quote=%+v", quote)
	}
	// The third session has null candles and is dropped.
	if len(bars) != 2 {
		t.Fatalf("bars=%d want 2", len(bars))
	}
	if bars[0].Close.String() != "202.5" {
		t.Fatalf("close=%s want 202.5", bars[0].Close)
	}
	if bars[0].Volume != 1000000 {
		t.Fatalf("volume=%d", bars[0].Volume)
	}
	if bars[0].Date.Hour() != 0 || bars[0].Date.Location() != time.UTC {
		t.Fatalf("date not truncated to UTC day: %s", bars[0].Date)
	}
}

func TestGetDailyBars_RaggedSeries(t *testing.T) {
	// Some sessions come back with OHLC arrays shorter than the timestamp
	// axis; the trailing sessions are dropped, not indexed.
	fixture := `{
	  "chart": {
	    "result": [{
	      "meta": {"symbol": "AAPL", "currency": "USD"},
	      "timestamp": [1748854800, 1748941200, 1749027600],
	      "indicators": {
	        "quote": [{
	          "open":   [200.1],
	          "high":   [203.0, 204.2],
	          "low":    [199.0, 200.8],
	          "close":  [202.5, 203.9, 205.0],
	          "volume": [1000000]
	        }]
	      }
	    }],
	    "error": null
	  }
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL)
	_, bars, err := client.GetDailyBars(context.Background(),
		"AAPL", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("get daily bars: %v", err)
	}
	// Only the first session has all four candle fields.
	if len(bars) != 1 {
		t.Fatalf("bars=%d want 1", len(bars))
	}
	if bars[0].Open.String() != "200.1" || bars[0].Close.String() != "202.5" {
		t.Fatalf("bar=%+v", bars[0])
	}
}

func TestGetDailyBars_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL)
	quote, bars, err := client.GetDailyBars(context.Background(),
		"UNKNOWN", time.Now().Add(-24*time.Hour), time.Now())
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if quote != nil || len(bars) != 0 {
		t.Fatalf("quote=%v bars=%d want empty", quote, len(bars))
	}
}

func TestGetDailyBars_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`not found`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL)
	_, _, err := client.GetDailyBars(context.Background(), "AAPL", time.Now().Add(-24*time.Hour), time.Now())
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status != http.StatusNotFound {
		t.Fatalf("err=%v want *APIError 404", err)
	}
}
