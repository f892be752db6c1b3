package llms

import (
	"context"
	"time"

	"github.com/sevigo/searchrag/schema"
)

// TimeoutModel bounds every call of the wrapped model with a deadline.
type TimeoutModel struct {
	Model
	Timeout time.Duration
}

// NewTimeoutModel wraps m. A non-positive d returns m unchanged.
func NewTimeoutModel(m Model, d time.Duration) Model {
	if d <= 0 {
		return m
	}
	return TimeoutModel{Model: m, Timeout: d}
}

func (t TimeoutModel) GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...CallOption) (*schema.ContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	return t.Model.GenerateContent(ctx, messages, options...)
}

func (t TimeoutModel) Call(ctx context.Context, prompt string, options ...CallOption) (string, error) {
	return GenerateFromSinglePrompt(ctx, t, prompt, options...)
}
