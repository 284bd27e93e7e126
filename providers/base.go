package providers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/finsight-labs/research-gateway/internal/faults"
)

// Base provides common fields shared by REST-based provider
// implementations. Embed it to avoid repeating name, apiKey, and baseURL
// handling across providers.
type Base struct {
	name    string
	apiKey  string
	baseURL string
}

// Name returns the provider name.
func (b *Base) Name() string { return b.name }

// defaultHTTPClient bounds per-attempt latency; context deadlines still
// apply on top.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// classifyStatus maps an HTTP status from a backend into the shared fault
// taxonomy: 408/429/5xx are transient (retry may help), every other
// non-2xx status is permanent (bad request, bad credentials).
func classifyStatus(status int, detail string) error {
	err := fmt.Errorf("status %d: %s", status, detail)
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		return faults.Transient(err)
	}
	return faults.Permanent(err)
}
