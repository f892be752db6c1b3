package llms

import (
	"context"
	"errors"
	"fmt"

	"github.com/sevigo/searchrag/schema"
)

var (
	// ErrCompletion marks any failure of the completion stage.
	ErrCompletion = errors.New("completion failed")
	// ErrNoAnswer is returned when the model responds without a usable choice.
	ErrNoAnswer = errors.New("no answer in model response")
)

type Model interface {
	GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...CallOption) (*schema.ContentResponse, error)
	Call(ctx context.Context, prompt string, options ...CallOption) (string, error)
}

// GenerateFromSinglePrompt sends prompt as the only user message and returns
// the text of the first choice.
func GenerateFromSinglePrompt(ctx context.Context, llm Model, prompt string, options ...CallOption) (string, error) {
	msg := schema.NewHumanMessage(prompt)

	resp, err := llm.GenerateContent(ctx, []schema.MessageContent{msg}, options...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) < 1 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: empty choices", ErrNoAnswer)
	}
	return resp.Choices[0].Content, nil
}
