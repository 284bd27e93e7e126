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

// DefaultOllamaModel is used when a request does not name a model.
const DefaultOllamaModel = "llama3"

// OllamaProvider implements the Provider interface for a local Ollama
// daemon. No API key is required.
type OllamaProvider struct {
	Base
	httpClient *http.Client
	model      string
}

// NewOllama creates a new Ollama provider pointed at host
// (e.g. http://localhost:11434).
func NewOllama(host, model string) (*OllamaProvider, error) {
	if host == "" {
		return nil, fmt.Errorf("ollama: host is required")
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		Base:       Base{name: "ollama", baseURL: strings.TrimRight(host, "/")},
		httpClient: defaultHTTPClient(),
		model:      model,
	}, nil
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Complete sends a chat request to the Ollama daemon.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body := ollamaChatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
	}
	body.Options.Temperature = req.Temperature
	body.Options.NumPredict = req.MaxTokens

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, faults.Permanent(fmt.Errorf("ollama: marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, faults.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		// Local daemon unreachable counts as transient: it may be starting up.
		return nil, faults.Transient(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, faults.Transient(err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: %w", classifyStatus(httpResp.StatusCode, string(raw)))
	}

	var resp ollamaChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, faults.Transient(fmt.Errorf("ollama: decode response: %w", err))
	}

	return &Response{
		Model:   resp.Model,
		Content: resp.Message.Content,
		Usage: Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}
