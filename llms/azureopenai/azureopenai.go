// Package azureopenai calls the chat completions API of an Azure OpenAI
// deployment.
package azureopenai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/sevigo/searchrag/internal/azpipeline"
	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/schema"
)

const DefaultAPIVersion = "2024-06-01"

var (
	ErrNoEndpoint   = errors.New("azureopenai: endpoint is required")
	ErrNoDeployment = errors.New("azureopenai: deployment is required")
	ErrNoMessages   = errors.New("azureopenai: no messages to send")
)

// LLM implements llms.Model for one deployment.
type LLM struct {
	endpoint   string
	deployment string
	pipeline   runtime.Pipeline
	options    options
	logger     *slog.Logger
}

var _ llms.Model = (*LLM)(nil)

// New creates a client for deployment on the Azure OpenAI account at endpoint.
func New(endpoint, deployment string, opts ...Option) (*LLM, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("azureopenai: invalid endpoint %q", endpoint)
	}
	if deployment == "" {
		return nil, ErrNoDeployment
	}

	o := applyOptions(opts...)

	llm := &LLM{
		endpoint:   endpoint,
		deployment: deployment,
		pipeline: azpipeline.New(azpipeline.Options{
			TokenSource: o.tokenSource,
			RequestID:   o.requestID,
			Transport:   o.transport,
		}),
		options: o,
		logger:  o.logger.With("component", "azure_openai", "deployment", deployment),
	}
	return llm, nil
}

// Call is a convenience method for a single-turn conversation.
func (a *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, a, prompt, options...)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateContent sends messages as one chat completion request. Sampling
// parameters other than an explicit temperature are left to the service.
func (a *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*schema.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	start := time.Now()
	callOpts := llms.ApplyCallOptions(options...)

	deployment := a.deployment
	if callOpts.Model != "" {
		deployment = callOpts.Model
	}

	body := chatRequest{Messages: convertMessages(messages)}
	if callOpts.Temperature > 0 {
		body.Temperature = &callOpts.Temperature
	}

	req, err := runtime.NewRequest(ctx, http.MethodPost, runtime.JoinPaths(a.endpoint,
		"openai", "deployments", url.PathEscape(deployment), "chat", "completions"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, err)
	}
	req.Raw().URL.RawQuery = url.Values{"api-version": {a.options.apiVersion}}.Encode()
	req.Raw().Header.Set("Accept", "application/json")
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, err)
	}

	resp, err := a.pipeline.Do(req)
	if err != nil {
		a.logger.ErrorContext(ctx, "Chat completion request failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		a.logger.ErrorContext(ctx, "Chat completion returned an error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, runtime.NewResponseError(resp))
	}

	var result chatResponse
	if err := runtime.UnmarshalAsJSON(resp, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", llms.ErrCompletion, err)
	}

	return a.responseToSchema(ctx, &result, time.Since(start))
}

func (a *LLM) responseToSchema(ctx context.Context, resp *chatResponse, duration time.Duration) (*schema.ContentResponse, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		a.logger.WarnContext(ctx, "Chat completion returned no answer", "choices", len(resp.Choices))
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, llms.ErrNoAnswer)
	}

	out := &schema.ContentResponse{Choices: make([]*schema.ContentChoice, 0, len(resp.Choices))}
	for _, c := range resp.Choices {
		var content string
		if c.Message.Content != nil {
			content = *c.Message.Content
		}
		out.Choices = append(out.Choices, &schema.ContentChoice{
			Content:    content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"TotalTokens": resp.Usage.TotalTokens,
				"Duration":    duration,
				"Model":       resp.Model,
			},
		})
	}

	a.logger.DebugContext(ctx, "Chat completion finished",
		"total_tokens", resp.Usage.TotalTokens, "duration", duration)
	return out, nil
}

func convertMessages(messages []schema.MessageContent) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case schema.ChatMessageTypeSystem:
			role = "system"
		case schema.ChatMessageTypeAI:
			role = "assistant"
		default:
			role = "user"
		}
		out = append(out, chatMessage{Role: role, Content: msg.GetTextContent()})
	}
	return out
}
