package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/finsight-labs/research-gateway/internal/faults"
)

// DefaultBedrockModel is used when a request does not name a model.
const DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// BedrockProvider implements the Provider interface for Anthropic Claude
// models served through the AWS Bedrock runtime InvokeModel API.
type BedrockProvider struct {
	Base
	client *bedrockruntime.Client
	model  string
}

// NewBedrock creates a new AWS Bedrock provider. region defaults to
// us-east-1. When accessKey/secretKey are non-empty they are used as static
// credentials; otherwise the default AWS credential chain applies.
func NewBedrock(ctx context.Context, region, accessKey, secretKey, model string) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}
	if model == "" {
		model = DefaultBedrockModel
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}

	return &BedrockProvider{
		Base:   Base{name: "bedrock"},
		client: bedrockruntime.NewFromConfig(cfg),
		model:  model,
	}, nil
}

type bedrockAnthropicRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
}

type bedrockAnthropicResponse struct {
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

// Complete sends a request to AWS Bedrock and returns the response.
func (p *BedrockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = p.model
	}
	if !strings.HasPrefix(modelID, "anthropic.") {
		return nil, faults.Permanent(fmt.Errorf("bedrock: unsupported model %s (anthropic.* only)", modelID))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	system, messages := ResolveSystem(req.Messages)

	body := bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           system,
		Messages:         messages,
		Temperature:      &req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, faults.Permanent(fmt.Errorf("bedrock: marshal request: %w", err))
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, classifyBedrockError(err)
	}

	var resp bedrockAnthropicResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, faults.Transient(fmt.Errorf("bedrock: decode response: %w", err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &Response{
		ID:      resp.ID,
		Model:   modelID,
		Content: content.String(),
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// classifyBedrockError maps Bedrock runtime error types into the shared
// fault taxonomy.
func classifyBedrockError(err error) error {
	var (
		throttled   *types.ThrottlingException
		unavailable *types.ServiceUnavailableException
		timeout     *types.ModelTimeoutException
		internal    *types.InternalServerException
	)
	if errors.As(err, &throttled) || errors.As(err, &unavailable) ||
		errors.As(err, &timeout) || errors.As(err, &internal) {
		return faults.Transient(err)
	}

	var (
		validation *types.ValidationException
		denied     *types.AccessDeniedException
		notFound   *types.ResourceNotFoundException
	)
	if errors.As(err, &validation) || errors.As(err, &denied) || errors.As(err, &notFound) {
		return faults.Permanent(err)
	}

	// Unrecognized SDK/transport error: assume retryable.
	return faults.Transient(err)
}
