package azureopenai

import (
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/oauth2"
)

// options holds configuration for the Azure OpenAI client.
type options struct {
	apiVersion  string
	tokenSource oauth2.TokenSource
	requestID   string
	transport   policy.Transporter
	logger      *slog.Logger
}

// Option is a function type for configuring the client.
type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		apiVersion: DefaultAPIVersion,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAPIVersion sets the REST API version.
func WithAPIVersion(version string) Option {
	return func(o *options) {
		if version != "" {
			o.apiVersion = version
		}
	}
}

// WithTokenSource authorizes requests with Microsoft Entra tokens from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) {
		o.tokenSource = ts
	}
}

// WithRequestID sends id as the client request id.
func WithRequestID(id string) Option {
	return func(o *options) {
		o.requestID = id
	}
}

// WithTransport overrides the HTTP transport.
func WithTransport(t policy.Transporter) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
