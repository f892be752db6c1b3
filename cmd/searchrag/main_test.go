package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/searchrag/auth"
	"github.com/sevigo/searchrag/chains"
	"github.com/sevigo/searchrag/config"
	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/llms/fake"
	"github.com/sevigo/searchrag/llms/gemini"
	"github.com/sevigo/searchrag/prompts"
	"github.com/sevigo/searchrag/retrievers/azuresearch"
	"github.com/sevigo/searchrag/schema"
	fakeretriever "github.com/sevigo/searchrag/schema/fake"
)

type staticCredential struct{}

func (staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// harness records which collaborators a run built.
type harness struct {
	retriever *fakeretriever.Retriever
	model     *fake.LLM

	credentialCalls int
	retrieverCalls  int
	modelCalls      int
	credentialErr   error
}

func (h *harness) factories() factories {
	return factories{
		credential: func() (azcore.TokenCredential, error) {
			h.credentialCalls++
			if h.credentialErr != nil {
				return nil, h.credentialErr
			}
			return staticCredential{}, nil
		},
		retriever: func(context.Context, components) (schema.Retriever, error) {
			h.retrieverCalls++
			return h.retriever, nil
		},
		model: func(context.Context, components) (llms.Model, error) {
			h.modelCalls++
			return h.model, nil
		},
	}
}

func fullEnv() map[string]string {
	return map[string]string{
		config.EnvOpenAIAccount:   "https://openai.example.com",
		config.EnvSearchService:   "https://search.example.com",
		config.EnvDeploymentModel: "gpt-4o",
		config.EnvConfigPath:      "/nonexistent/searchrag.yaml",
	}
}

func getenvFrom(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

var headphoneDocs = []schema.Document{
	{Name: "A", Content: "noise-cancelling", Keyphrases: []string{"audio"}, URL: "http://a", Products: []string{"H100"}},
	{Name: "B", Content: "budget earbuds", Keyphrases: []string{"audio"}, URL: "http://b", Products: []string{"E50"}},
}

func TestRun_EndToEnd(t *testing.T) {
	const answer = "- H100: noise-cancelling\n- E50: budget earbuds"
	h := &harness{
		retriever: fakeretriever.NewRetriever(headphoneDocs...),
		model:     fake.NewFakeLLM([]string{answer}),
	}
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), getenvFrom(fullEnv()), strings.NewReader("wireless headphones\n"), &stdout, &stderr, h.factories())
	require.NoError(t, err)

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out,
		"AZURE_OPENAI_ACCOUNT: https://openai.example.com\n"+
			"AZURE_SEARCH_SERVICE: https://search.example.com\n"+
			"AZURE_DEPLOYMENT_MODEL: gpt-4o\n"), out)
	assert.Contains(t, out, questionPrompt+"Search results returned:\n")
	assert.True(t, strings.HasSuffix(out, answer+"\n"), out)

	assert.Equal(t, []string{"wireless headphones"}, h.retriever.Queries())
	prompt, _ := h.model.LastPrompt()
	assert.Equal(t, prompts.Compose("wireless headphones", headphoneDocs), prompt)
	assert.Contains(t, prompt, "A:noise-cancelling:[\"audio\"]:http://a:[\"H100\"]\nB:budget earbuds")
}

func TestRun_MissingConfiguration(t *testing.T) {
	for _, key := range []string{config.EnvOpenAIAccount, config.EnvSearchService, config.EnvDeploymentModel} {
		for _, value := range []string{"", "absent"} {
			t.Run(key+"/"+value, func(t *testing.T) {
				env := fullEnv()
				if value == "absent" {
					delete(env, key)
				} else {
					env[key] = value
				}
				h := &harness{
					retriever: fakeretriever.NewRetriever(headphoneDocs...),
					model:     fake.NewFakeLLM([]string{"unused"}),
				}
				var stdout bytes.Buffer

				err := run(context.Background(), getenvFrom(env), strings.NewReader("q\n"), &stdout, io.Discard, h.factories())
				require.Error(t, err)
				assert.ErrorIs(t, err, config.ErrMissingConfiguration)
				assert.Contains(t, err.Error(), key)
				assert.Equal(t, "MissingConfiguration", failureKind(err))

				assert.Zero(t, h.credentialCalls)
				assert.Zero(t, h.retrieverCalls)
				assert.Zero(t, h.modelCalls)
				assert.Empty(t, h.retriever.Queries(), "no search call")
				assert.Zero(t, h.model.GetCallCount(), "no completion call")
				assert.Empty(t, stdout.String())
			})
		}
	}
}

func TestRun_ZeroChoices(t *testing.T) {
	h := &harness{
		retriever: fakeretriever.NewRetriever(headphoneDocs...),
		model:     fake.NewEmptyLLM(),
	}
	var stdout bytes.Buffer

	err := run(context.Background(), getenvFrom(fullEnv()), strings.NewReader("wireless headphones\n"), &stdout, io.Discard, h.factories())
	require.Error(t, err)
	assert.ErrorIs(t, err, llms.ErrCompletion)
	assert.ErrorIs(t, err, llms.ErrNoAnswer)
	assert.Equal(t, "CompletionFailure", failureKind(err))
	assert.True(t, strings.HasSuffix(stdout.String(), "Search results returned:\n"), "no answer text is printed")
}

func TestRun_AuthenticationFailure(t *testing.T) {
	h := &harness{
		retriever:     fakeretriever.NewRetriever(),
		model:         fake.NewFakeLLM([]string{"unused"}),
		credentialErr: errors.Join(auth.ErrAuthentication, errors.New("no login context")),
	}

	err := run(context.Background(), getenvFrom(fullEnv()), strings.NewReader("q\n"), io.Discard, io.Discard, h.factories())
	assert.ErrorIs(t, err, auth.ErrAuthentication)
	assert.Equal(t, "AuthenticationFailure", failureKind(err))
	assert.Zero(t, h.retrieverCalls)
	assert.Zero(t, h.modelCalls)
}

func TestRun_RetrievalFailure(t *testing.T) {
	retriever := fakeretriever.NewRetriever()
	retriever.ErrToReturn = errors.New("search unavailable")
	h := &harness{retriever: retriever, model: fake.NewFakeLLM([]string{"unused"})}
	var stdout bytes.Buffer

	err := run(context.Background(), getenvFrom(fullEnv()), strings.NewReader("q\n"), &stdout, io.Discard, h.factories())
	require.Error(t, err)
	assert.ErrorIs(t, err, chains.ErrRetrieval)
	assert.Equal(t, "RetrievalFailure", failureKind(err))
	assert.Zero(t, h.model.GetCallCount())
	assert.NotContains(t, stdout.String(), "Search results returned:")
}

func TestRun_EmptyQuery(t *testing.T) {
	h := &harness{
		retriever: fakeretriever.NewRetriever(),
		model:     fake.NewFakeLLM([]string{"I don't know."}),
	}

	err := run(context.Background(), getenvFrom(fullEnv()), strings.NewReader(""), io.Discard, io.Discard, h.factories())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, h.retriever.Queries())
}

func TestReadQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims newline and spaces", input: "  wireless headphones \r\n", want: "wireless headphones"},
		{name: "only first line", input: "first\nsecond\n", want: "first"},
		{name: "no trailing newline", input: "earbuds", want: "earbuds"},
		{name: "empty input", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := readQuery(strings.NewReader(tt.input), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, questionPrompt, out.String())
		})
	}
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "RetrievalFailure", failureKind(fmt.Errorf("%w: %w", chains.ErrRetrieval, azuresearch.ErrRetrieval)))
	assert.Equal(t, "AuthenticationFailure",
		failureKind(fmt.Errorf("%w: %w", chains.ErrRetrieval, auth.ErrAuthentication)), "token failures during search are authentication failures")
	assert.Equal(t, "Failure", failureKind(errors.New("other")))
}

func TestNewCompletionModel_UsesInjectedEnv(t *testing.T) {
	ctx := context.Background()
	env := fullEnv()
	cfg, err := config.FromEnv(getenvFrom(env))
	require.NoError(t, err)

	c := components{cfg: cfg, cred: staticCredential{}, requestID: "run-1", getenv: getenvFrom(env), logger: slog.New(slog.DiscardHandler)}

	t.Run("gemini key is looked up through getenv", func(t *testing.T) {
		cfg.Completion.Provider = config.ProviderGemini
		_, err := newCompletionModel(ctx, c)
		assert.ErrorIs(t, err, gemini.ErrNoAPIKey)

		env[cfg.Completion.APIKeyEnv] = "test-key"
		model, err := newCompletionModel(ctx, c)
		require.NoError(t, err)
		assert.NotNil(t, model)
	})

	t.Run("azure is the default", func(t *testing.T) {
		cfg.Completion.Provider = config.ProviderAzure
		model, err := newCompletionModel(ctx, c)
		require.NoError(t, err)
		assert.IsType(t, llms.TimeoutModel{}, model)
	})
}
