package chains

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/prompts"
	"github.com/sevigo/searchrag/schema"
)

// ErrRetrieval marks a failed retrieval step.
var ErrRetrieval = errors.New("document retrieval failed")

// GroundedQA answers a query from retrieved documents only. It runs one
// retrieval, composes prompts.GroundedPrompt and makes one completion call.
type GroundedQA struct {
	Retriever schema.Retriever
	LLM       llms.Model

	callOptions []llms.CallOption
	onSources   func([]schema.Document)
	logger      *slog.Logger
}

type GroundedQAOption func(*GroundedQA)

func WithLogger(logger *slog.Logger) GroundedQAOption {
	return func(c *GroundedQA) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSourcesHook registers fn to be called with the retrieved documents
// before the prompt is composed.
func WithSourcesHook(fn func([]schema.Document)) GroundedQAOption {
	return func(c *GroundedQA) {
		c.onSources = fn
	}
}

// WithCallOptions sets options passed to every completion call.
func WithCallOptions(options ...llms.CallOption) GroundedQAOption {
	return func(c *GroundedQA) {
		c.callOptions = append(c.callOptions, options...)
	}
}

func NewGroundedQA(retriever schema.Retriever, llm llms.Model, opts ...GroundedQAOption) (*GroundedQA, error) {
	if retriever == nil {
		return nil, errors.New("retriever cannot be nil")
	}
	if llm == nil {
		return nil, errors.New("LLM cannot be nil")
	}

	chain := &GroundedQA{
		Retriever: retriever,
		LLM:       llm,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(chain)
	}
	chain.logger = chain.logger.With("component", "grounded_qa")

	return chain, nil
}

// Call returns the model's answer to query. An empty query is passed through
// unchanged. The first failing stage aborts the call.
func (c *GroundedQA) Call(ctx context.Context, query string) (string, error) {
	start := time.Now()
	c.logger.DebugContext(ctx, "Starting document retrieval", "query_length", len(query))

	docs, err := c.Retriever.GetRelevantDocuments(ctx, query)
	if err != nil {
		c.logger.ErrorContext(ctx, "Document retrieval failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	c.logger.InfoContext(ctx, "Documents retrieved", "count", len(docs), "duration", time.Since(start))

	if c.onSources != nil {
		c.onSources(docs)
	}

	prompt := prompts.Compose(query, docs)
	c.logger.DebugContext(ctx, "Composed grounded prompt",
		"template", prompts.GroundedPromptVersion, "prompt_length", len(prompt))

	start = time.Now()
	answer, err := c.LLM.Call(ctx, prompt, c.callOptions...)
	if err != nil {
		c.logger.ErrorContext(ctx, "Completion failed", "error", err)
		if errors.Is(err, llms.ErrCompletion) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", llms.ErrCompletion, err)
	}
	c.logger.InfoContext(ctx, "Completion received", "answer_length", len(answer), "duration", time.Since(start))

	return answer, nil
}
