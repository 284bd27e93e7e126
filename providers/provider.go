// Package providers defines the Provider interface and shared data types
// for the interchangeable computation backends the chain arbitrates over.
//
// A provider is opaque beyond success/failure/latency: it takes a Request,
// returns a Response or an error classified via internal/faults so the
// retry executor and circuit breakers can tell transient trouble from
// permanent misconfiguration.
package providers

import "context"

// Message role constants shared by all providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Provider is the interface every computation backend must implement.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request routed through the provider chain.
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Usage carries token consumption reported by a backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed request.
type Response struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// ResolveSystem splits system messages out of a conversation for backends
// that take the system prompt as a separate field.
func ResolveSystem(msgs []Message) (system string, rest []Message) {
	rest = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
