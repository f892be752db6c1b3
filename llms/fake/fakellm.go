package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/schema"
)

// LLM is a scripted model. Responses are returned in order and cycle.
type LLM struct {
	mu           sync.Mutex
	responses    []string
	index        int
	lastMessages []schema.MessageContent
	lastOptions  llms.CallOptions
	callCount    int
	noChoices    bool
	err          error
}

var _ llms.Model = (*LLM)(nil)

func NewFakeLLM(responses []string) *LLM {
	return &LLM{
		responses: responses,
	}
}

// NewEmptyLLM returns a model that answers every call with zero choices.
func NewEmptyLLM() *LLM {
	return &LLM{noChoices: true}
}

// NewFailingLLM returns a model that fails every call with err.
func NewFailingLLM(err error) *LLM {
	return &LLM{err: err}
}

// GenerateContent returns the next predefined response in the cycle.
func (f *LLM) GenerateContent(
	_ context.Context,
	messages []schema.MessageContent,
	options ...llms.CallOption,
) (*schema.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount++
	f.lastMessages = append([]schema.MessageContent(nil), messages...)
	f.lastOptions = llms.ApplyCallOptions(options...)

	if f.err != nil {
		return nil, f.err
	}
	if f.noChoices {
		return &schema.ContentResponse{}, nil
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no responses configured")
	}

	response := f.responses[f.index]
	f.index = (f.index + 1) % len(f.responses)

	return &schema.ContentResponse{
		Choices: []*schema.ContentChoice{
			{Content: response},
		},
	}, nil
}

// Call is a simplified interface for generating responses from a string prompt.
func (f *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

// Reset resets the response index and call count.
func (f *LLM) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.callCount = 0
	f.lastMessages = nil
	f.lastOptions = llms.CallOptions{}
}

// LastPrompt returns the text of the first message of the last call.
func (f *LLM) LastPrompt() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lastMessages) == 0 {
		return "", false
	}
	return f.lastMessages[0].GetTextContent(), true
}

// LastMessages returns the messages of the last call.
func (f *LLM) LastMessages() []schema.MessageContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]schema.MessageContent(nil), f.lastMessages...)
}

// LastCallOptions returns the options of the last call.
func (f *LLM) LastCallOptions() llms.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}

// GetCallCount returns the number of times the LLM was called.
func (f *LLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}
