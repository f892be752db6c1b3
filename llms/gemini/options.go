package gemini

import (
	"log/slog"
	"os"
)

// options holds configuration for the Gemini client.
type options struct {
	model     string
	apiKey    string
	apiKeyEnv string
	baseURL   string
	getenv    func(string) string
	logger    *slog.Logger
}

// Option is a function type for configuring the client.
type Option func(*options)

// applyOptions creates a new options instance with defaults and applies the provided options.
func applyOptions(opts ...Option) options {
	o := options{
		model:     "gemini-2.5-flash",
		apiKeyEnv: "GEMINI_API_KEY",
		getenv:    os.Getenv,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(opts *options) {
		if model != "" {
			opts.model = model
		}
	}
}

// WithAPIKey sets the Gemini API key.
func WithAPIKey(apiKey string) Option {
	return func(opts *options) {
		opts.apiKey = apiKey
	}
}

// WithAPIKeyEnv names the environment variable read when no key is set.
func WithAPIKeyEnv(name string) Option {
	return func(opts *options) {
		if name != "" {
			opts.apiKeyEnv = name
		}
	}
}

// WithGetenv sets the lookup used for the API key variable.
func WithGetenv(getenv func(string) string) Option {
	return func(opts *options) {
		if getenv != nil {
			opts.getenv = getenv
		}
	}
}

// WithBaseURL overrides the Gemini API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}
