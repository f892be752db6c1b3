// Command searchrag answers one product question from an Azure AI Search
// index, grounded through a hosted chat model.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sevigo/searchrag/auth"
	"github.com/sevigo/searchrag/chains"
	"github.com/sevigo/searchrag/config"
	"github.com/sevigo/searchrag/llms"
	"github.com/sevigo/searchrag/llms/azureopenai"
	"github.com/sevigo/searchrag/llms/gemini"
	"github.com/sevigo/searchrag/llms/ollama"
	"github.com/sevigo/searchrag/retrievers/azuresearch"
	"github.com/sevigo/searchrag/schema"
)

const questionPrompt = "Enter your product-related question: "

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to load .env", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Getenv, os.Stdin, os.Stdout, os.Stderr, defaultFactories())
	stop()
	if err != nil {
		slog.Error("searchrag failed", "kind", failureKind(err), "error", err)
		os.Exit(1)
	}
}

// components is what the factories build collaborators from.
type components struct {
	cfg       *config.Config
	cred      azcore.TokenCredential
	requestID string
	getenv    func(string) string
	logger    *slog.Logger
}

// factories builds the network-facing collaborators. Tests replace them.
type factories struct {
	credential func() (azcore.TokenCredential, error)
	retriever  func(ctx context.Context, c components) (schema.Retriever, error)
	model      func(ctx context.Context, c components) (llms.Model, error)
}

func defaultFactories() factories {
	return factories{
		credential: func() (azcore.TokenCredential, error) {
			return auth.NewDefaultCredential(nil)
		},
		retriever: newSearchRetriever,
		model:     newCompletionModel,
	}
}

func run(ctx context.Context, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer, f factories) error {
	cfgPath := getenv(config.EnvConfigPath)
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath
	}
	cfg, err := config.Load(cfgPath, getenv)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()
	logger := newLogger(stderr, cfg.Logging).With("run_id", requestID)

	fmt.Fprintf(stdout, "%s: %s\n", config.EnvOpenAIAccount, cfg.Endpoints.OpenAIAccount)
	fmt.Fprintf(stdout, "%s: %s\n", config.EnvSearchService, cfg.Endpoints.SearchService)
	fmt.Fprintf(stdout, "%s: %s\n", config.EnvDeploymentModel, cfg.Endpoints.DeploymentModel)

	cred, err := f.credential()
	if err != nil {
		return err
	}
	c := components{cfg: cfg, cred: cred, requestID: requestID, getenv: getenv, logger: logger}

	retriever, err := f.retriever(ctx, c)
	if err != nil {
		return fmt.Errorf("create retriever: %w", err)
	}
	model, err := f.model(ctx, c)
	if err != nil {
		return fmt.Errorf("create completion model: %w", err)
	}

	query, err := readQuery(stdin, stdout)
	if err != nil {
		return err
	}

	chain, err := chains.NewGroundedQA(retriever, model,
		chains.WithLogger(logger),
		chains.WithCallOptions(llms.WithTemperature(cfg.Completion.Temperature)),
		chains.WithSourcesHook(func([]schema.Document) {
			fmt.Fprintln(stdout, "Search results returned:")
		}),
	)
	if err != nil {
		return err
	}

	answer, err := chain.Call(ctx, query)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, answer)
	return nil
}

// readQuery prompts on out and reads one line from in. EOF ends the line;
// an empty query is legal.
func readQuery(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, questionPrompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read query: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newSearchRetriever(ctx context.Context, c components) (schema.Retriever, error) {
	return azuresearch.New(c.cfg.Endpoints.SearchService,
		azuresearch.WithIndex(c.cfg.Search.Index),
		azuresearch.WithAPIVersion(c.cfg.Search.APIVersion),
		azuresearch.WithTimeout(c.cfg.Search.Timeout),
		azuresearch.WithTokenSource(auth.NewTokenSource(c.cred, auth.SearchScope)),
		azuresearch.WithRequestID(c.requestID),
		azuresearch.WithLogger(c.logger),
	)
}

func newCompletionModel(ctx context.Context, c components) (llms.Model, error) {
	var (
		model llms.Model
		err   error
	)
	switch c.cfg.Completion.Provider {
	case config.ProviderGemini:
		model, err = gemini.New(ctx,
			gemini.WithModel(c.cfg.CompletionModel()),
			gemini.WithAPIKeyEnv(c.cfg.Completion.APIKeyEnv),
			gemini.WithGetenv(c.getenv),
			gemini.WithLogger(c.logger),
		)
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(c.cfg.CompletionModel()),
			ollama.WithServerURL(c.cfg.Completion.OllamaURL),
			ollama.WithGetenv(c.getenv),
			ollama.WithLogger(c.logger),
		)
	default:
		model, err = azureopenai.New(c.cfg.Endpoints.OpenAIAccount, c.cfg.CompletionModel(),
			azureopenai.WithAPIVersion(c.cfg.Completion.APIVersion),
			azureopenai.WithTokenSource(auth.NewTokenSource(c.cred, auth.CognitiveServicesScope)),
			azureopenai.WithRequestID(c.requestID),
			azureopenai.WithLogger(c.logger),
		)
	}
	if err != nil {
		return nil, err
	}
	return llms.NewTimeoutModel(model, c.cfg.Completion.Timeout), nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// failureKind names the stage an error came from.
func failureKind(err error) string {
	switch {
	case errors.Is(err, config.ErrMissingConfiguration):
		return "MissingConfiguration"
	case errors.Is(err, auth.ErrAuthentication):
		return "AuthenticationFailure"
	case errors.Is(err, chains.ErrRetrieval), errors.Is(err, azuresearch.ErrRetrieval):
		return "RetrievalFailure"
	case errors.Is(err, llms.ErrCompletion):
		return "CompletionFailure"
	default:
		return "Failure"
	}
}
