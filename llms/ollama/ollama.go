package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/schema"
)

// Common errors returned by the Ollama LLM implementation.
var (
	ErrEmptyResponse = fmt.Errorf("ollama: empty response received: %w", llms.ErrNoAnswer)
	ErrNoMessages    = errors.New("ollama: no messages provided")
	ErrInvalidModel  = errors.New("ollama: invalid model specified")
)

// LLM answers chat requests with a model served by Ollama.
type LLM struct {
	client  *api.Client
	options options
	logger  *slog.Logger
}

var _ llms.Model = (*LLM)(nil)

// DefaultServerURL is used when neither WithServerURL nor OLLAMA_HOST is set.
const DefaultServerURL = "http://127.0.0.1:11434"

// New creates a new Ollama LLM. Without WithServerURL the server address comes
// from OLLAMA_HOST.
func New(opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)

	if o.model == "" {
		return nil, ErrInvalidModel
	}

	serverURL := o.ollamaServerURL
	if serverURL == nil {
		var err error
		serverURL, err = hostURL(o.getenv("OLLAMA_HOST"))
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := api.NewClient(serverURL, httpClient)

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "ollama_llm", "model", o.model),
	}

	llm.logger.Debug("Ollama LLM initialized")
	return llm, nil
}

// Call implements simple prompt-based text generation.
func (o *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)
}

// GenerateContent sends one non-streaming chat request.
func (o *LLM) GenerateContent(
	ctx context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*schema.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	start := time.Now()
	opts := llms.ApplyCallOptions(options...)

	model := o.options.model
	if opts.Model != "" {
		model = opts.Model
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: convertToOllamaMessages(messages),
		Stream:   &stream,
	}
	if opts.Temperature > 0 {
		req.Options = map[string]any{"temperature": opts.Temperature}
	}

	var content strings.Builder
	var finalResp api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			finalResp = resp
		}
		return nil
	})
	duration := time.Since(start)
	if err != nil {
		o.logger.ErrorContext(ctx, "Ollama chat failed", "error", err, "duration", duration)
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, err)
	}

	if content.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", llms.ErrCompletion, ErrEmptyResponse)
	}

	o.logger.DebugContext(ctx, "Ollama chat completed", "duration", duration, "eval_count", finalResp.EvalCount)
	return &schema.ContentResponse{
		Choices: []*schema.ContentChoice{
			{
				Content:    content.String(),
				StopReason: finalResp.DoneReason,
				GenerationInfo: map[string]any{
					"EvalCount": finalResp.EvalCount,
					"Duration":  duration,
					"Model":     model,
				},
			},
		},
	}, nil
}

// hostURL parses an OLLAMA_HOST value. A bare host gets the http scheme and
// the default port.
func hostURL(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return url.Parse(DefaultServerURL)
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), "11434")
	}
	return u, nil
}

func convertToOllamaMessages(messages []schema.MessageContent) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		switch msg.Role {
		case schema.ChatMessageTypeSystem:
			role = "system"
		case schema.ChatMessageTypeAI:
			role = "assistant"
		}
		out = append(out, api.Message{Role: role, Content: msg.GetTextContent()})
	}
	return out
}
