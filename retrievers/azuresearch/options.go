package azuresearch

import (
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/oauth2"
)

// options holds configuration for the search retriever.
type options struct {
	index       string
	apiVersion  string
	timeout     time.Duration
	tokenSource oauth2.TokenSource
	requestID   string
	transport   policy.Transporter
	logger      *slog.Logger
}

// Option is a function type for configuring the retriever.
type Option func(*options)

func applyOptions(opts ...Option) options {
	o := options{
		index:      DefaultIndex,
		apiVersion: DefaultAPIVersion,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithIndex sets the index to query.
func WithIndex(index string) Option {
	return func(o *options) {
		if index != "" {
			o.index = index
		}
	}
}

// WithAPIVersion sets the search REST API version.
func WithAPIVersion(version string) Option {
	return func(o *options) {
		if version != "" {
			o.apiVersion = version
		}
	}
}

// WithTimeout bounds each search call. Zero means no deadline beyond the caller's.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithTokenSource authorizes requests with bearer tokens from ts.
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
