package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/finsight-labs/research-gateway/internal/faults"
)

// DefaultAnthropicModel is used when a request does not name a model.
const DefaultAnthropicModel = "claude-3-5-sonnet-20241022"

const anthropicVersion = "2023-06-01"

// AnthropicProvider implements the Provider interface for Anthropic's
// Messages API.
type AnthropicProvider struct {
	Base
	httpClient *http.Client
	model      string
}

// NewAnthropic creates a new Anthropic provider. baseURL overrides the API
// endpoint when non-empty.
func NewAnthropic(apiKey, baseURL, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicProvider{
		Base:       Base{name: "anthropic", apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/")},
		httpClient: defaultHTTPClient(),
		model:      model,
	}, nil
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	// Temperature is a pointer so 0 can be sent explicitly.
	Temperature *float64 `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a chat completion request to Anthropic.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	system, messages := ResolveSystem(req.Messages)

	body := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    messages,
		Temperature: &req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, faults.Permanent(fmt.Errorf("anthropic: marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, faults.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, faults.Transient(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, faults.Transient(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		detail := string(raw)
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
			detail = errResp.Error.Message
		}
		return nil, fmt.Errorf("anthropic: %w", classifyStatus(httpResp.StatusCode, detail))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, faults.Transient(fmt.Errorf("anthropic: decode response: %w", err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &Response{
		ID:      resp.ID,
		Model:   resp.Model,
		Content: content.String(),
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
