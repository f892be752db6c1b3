package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/schema"
)

var (
	ErrNoAPIKey      = errors.New("gemini: API key is required")
	ErrNoContent     = fmt.Errorf("gemini: no content generated: %w", llms.ErrNoAnswer)
	ErrSystemMessage = errors.New("gemini: system message must be the first message in the conversation")
	ErrNoMessages    = errors.New("gemini: no messages to send")
)

// LLM implements llms.Model for Gemini.
type LLM struct {
	client  *genai.Client
	options options
	logger  *slog.Logger
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Gemini LLM client.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)

	if o.apiKey == "" {
		o.apiKey = o.getenv(o.apiKeyEnv)
	}
	if o.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      o.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "gemini_llm", "model", o.model),
	}

	llm.logger.Debug("Gemini LLM initialized")
	return llm, nil
}

// Call is a convenience method for a single-turn conversation.
func (g *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

// GenerateContent sends one non-streaming generation request.
func (g *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*schema.ContentResponse, error) {
	start := time.Now()
	callOpts := llms.ApplyCallOptions(options...)

	model := g.options.model
	if callOpts.Model != "" {
		model = callOpts.Model
	}

	genConfig := &genai.GenerateContentConfig{}
	if callOpts.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(callOpts.Temperature))
	}

	history, systemInstruction, err := convertToGeminiMessages(messages)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrNoMessages
	}
	genConfig.SystemInstruction = systemInstruction

	resp, err := g.client.Models.GenerateContent(ctx, model, history, genConfig)
	duration := time.Since(start)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini client failed", "error", err, "duration", duration)
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, err)
	}
	return responseToSchema(resp, model, duration)
}

// convertToGeminiMessages converts the generic schema to Gemini's native types.
func convertToGeminiMessages(messages []schema.MessageContent) ([]*genai.Content, *genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemInstruction *genai.Content

	for i, msg := range messages {
		var role genai.Role
		switch msg.Role {
		case schema.ChatMessageTypeAI:
			role = genai.RoleModel
		case schema.ChatMessageTypeSystem:
			if i != 0 {
				return nil, nil, ErrSystemMessage
			}
			systemInstruction = genai.NewContentFromText(msg.GetTextContent(), genai.RoleUser)
			continue
		default:
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(msg.GetTextContent(), role))
	}
	return contents, systemInstruction, nil
}

// responseToSchema converts Gemini's response to the generic schema.
func responseToSchema(resp *genai.GenerateContentResponse, model string, duration time.Duration) (*schema.ContentResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, ErrNoContent)
	}

	choice := resp.Candidates[0]
	if choice.Content == nil || len(choice.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, ErrNoContent)
	}

	var builder strings.Builder
	for _, part := range choice.Content.Parts {
		builder.WriteString(part.Text)
	}

	var totalTokens int32
	if resp.UsageMetadata != nil {
		totalTokens = resp.UsageMetadata.TotalTokenCount
	}

	return &schema.ContentResponse{
		Choices: []*schema.ContentChoice{
			{
				Content:    builder.String(),
				StopReason: string(choice.FinishReason),
				GenerationInfo: map[string]any{
					"TotalTokens": totalTokens,
					"Duration":    duration,
					"Model":       model,
				},
			},
		},
	}, nil
}
