package llms_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/schema"
)

type scriptedModel struct {
	resp     *schema.ContentResponse
	messages []schema.MessageContent
	deadline time.Time
	hasDL    bool
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []schema.MessageContent, _ ...llms.CallOption) (*schema.ContentResponse, error) {
	m.messages = messages
	m.deadline, m.hasDL = ctx.Deadline()
	return m.resp, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestGenerateFromSinglePrompt(t *testing.T) {
	ctx := context.Background()

	t.Run("first choice wins", func(t *testing.T) {
		m := &scriptedModel{resp: &schema.ContentResponse{Choices: []*schema.ContentChoice{
			{Content: "first"}, {Content: "second"},
		}}}

		got, err := llms.GenerateFromSinglePrompt(ctx, m, "hi")
		require.NoError(t, err)
		assert.Equal(t, "first", got)
		require.Len(t, m.messages, 1)
		assert.Equal(t, schema.ChatMessageTypeHuman, m.messages[0].Role)
		assert.Equal(t, "hi", m.messages[0].GetTextContent())
	})

	tests := []struct {
		name string
		resp *schema.ContentResponse
	}{
		{name: "nil response", resp: nil},
		{name: "zero choices", resp: &schema.ContentResponse{}},
		{name: "nil first choice", resp: &schema.ContentResponse{Choices: []*schema.ContentChoice{nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := llms.GenerateFromSinglePrompt(ctx, &scriptedModel{resp: tt.resp}, "hi")
			assert.ErrorIs(t, err, llms.ErrNoAnswer)
		})
	}
}

func TestNewTimeoutModel(t *testing.T) {
	inner := &scriptedModel{resp: &schema.ContentResponse{Choices: []*schema.ContentChoice{{Content: "ok"}}}}

	assert.Same(t, inner, llms.NewTimeoutModel(inner, 0))

	m := llms.NewTimeoutModel(inner, time.Minute)
	got, err := m.Call(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.True(t, inner.hasDL)
	assert.WithinDuration(t, time.Now().Add(time.Minute), inner.deadline, 5*time.Second)
}
