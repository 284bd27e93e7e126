package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finsight-labs/research-gateway/internal/faults"
)

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "A", "BRK.B", "GOOGL"}
	for _, s := range valid {
		if err := ValidateSymbol(s); err != nil {
			t.Errorf("ValidateSymbol(%s) = %v", s, err)
		}
	}
	invalid := []string{"", "toolongsym", "123", "AAPL!", "brk.b"}
	for _, s := range invalid {
		err := ValidateSymbol(s)
		if err == nil {
			t.Errorf("ValidateSymbol(%s) should fail", s)
			continue
		}
		if !faults.IsPermanent(err) {
			t.Errorf("ValidateSymbol(%s) should classify permanent, got %v", s, err)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  aapl "); got != "AAPL" {
		t.Errorf("NormalizeSymbol = %q", got)
	}
}

func TestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"chart": {"result": [{"meta": {
			"symbol": "AAPL",
			"regularMarketPrice": 189.42,
			"previousClose": 187.00,
			"currency": "USD",
			"regularMarketTime": 1700000000
		}}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	q, err := c.Quote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Symbol != "AAPL" || q.Price != 189.42 {
		t.Errorf("quote = %+v", q)
	}
	if change := q.Change(); change < 1.29 || change > 1.30 {
		t.Errorf("change = %v", change)
	}
}

func TestQuoteServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Quote(context.Background(), "AAPL")
	if !faults.IsTransient(err) {
		t.Fatalf("503 should classify transient, got %v", err)
	}
}

func TestQuoteUnknownSymbolIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart": {"result": [], "error": {"code": "Not Found", "description": "No data found"}}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Quote(context.Background(), "ZZZZZ")
	if !faults.IsPermanent(err) {
		t.Fatalf("unknown symbol should classify permanent, got %v", err)
	}
}

func TestMarketOpen(t *testing.T) {
	// Tuesday 2026-08-25 12:00 ET — mid regular session.
	open := time.Date(2026, 8, 25, 12+4, 0, 0, 0, time.UTC) // EDT is UTC-4
	if !MarketOpen(open) {
		t.Error("expected market open midday Tuesday")
	}

	// Tuesday 03:00 ET — pre-market.
	closed := time.Date(2026, 8, 25, 3+4, 0, 0, 0, time.UTC)
	if MarketOpen(closed) {
		t.Error("expected market closed at 3am ET")
	}

	// Saturday midday.
	weekend := time.Date(2026, 8, 29, 16, 0, 0, 0, time.UTC)
	if MarketOpen(weekend) {
		t.Error("expected market closed Saturday")
	}
}

func TestQuoteTTL(t *testing.T) {
	open := time.Date(2026, 8, 25, 16, 0, 0, 0, time.UTC)
	if QuoteTTL(open) != QuoteTTLTrading {
		t.Errorf("trading TTL = %v", QuoteTTL(open))
	}
	weekend := time.Date(2026, 8, 29, 16, 0, 0, 0, time.UTC)
	if QuoteTTL(weekend) != QuoteTTLClosed {
		t.Errorf("closed TTL = %v", QuoteTTL(weekend))
	}
}
