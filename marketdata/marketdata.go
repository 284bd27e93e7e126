// Package marketdata is the quote-fetching collaborator of the research
// gateway. It retrieves price data over HTTP, classifies failures into the
// shared fault taxonomy, and owns the freshness policy: how long a quote
// may be cached depends on whether the market is trading, and that decision
// belongs here, not in the cache.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/finsight-labs/research-gateway/internal/faults"
)

// Quote is a point-in-time price snapshot for one symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	Currency      string    `json:"currency"`
	MarketTime    time.Time `json:"market_time"`
}

// Change returns the percentage move from the previous close.
func (q *Quote) Change() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return (q.Price - q.PreviousClose) / q.PreviousClose * 100
}

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z]{1,2})?$`)

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol checks ticker format (1-5 letters, optional .XX class
// suffix, e.g. AAPL or BRK.B). Invalid symbols are permanent failures:
// retrying never helps.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return faults.Permanent(fmt.Errorf("symbol cannot be empty"))
	}
	if !symbolPattern.MatchString(symbol) {
		return faults.Permanent(fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}

// Client fetches quotes from a chart-style market data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a quote client. baseURL defaults to the public Yahoo
// chart endpoint when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				Currency           string  `json:"currency"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the latest price snapshot for symbol. Failures are
// classified: malformed symbols and 4xx responses are permanent, network
// trouble and 429/5xx responses are transient.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.Permanent(err)
	}
	req.Header.Set("User-Agent", "research-gateway/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, faults.Transient(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("quote %s: status %d: %s", symbol, resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, faults.Transient(statusErr)
		}
		return nil, faults.Permanent(statusErr)
	}

	var chart chartResponse
	if err := json.Unmarshal(raw, &chart); err != nil {
		return nil, faults.Transient(fmt.Errorf("quote %s: decode: %w", symbol, err))
	}
	if chart.Chart.Error != nil {
		return nil, faults.Permanent(fmt.Errorf("quote %s: %s", symbol, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return nil, faults.Permanent(fmt.Errorf("quote %s: no data", symbol))
	}

	meta := chart.Chart.Result[0].Meta
	return &Quote{
		Symbol:        meta.Symbol,
		Price:         meta.RegularMarketPrice,
		PreviousClose: meta.PreviousClose,
		Currency:      meta.Currency,
		MarketTime:    time.Unix(meta.RegularMarketTime, 0).UTC(),
	}, nil
}
