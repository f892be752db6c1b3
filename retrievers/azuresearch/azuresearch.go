// Package azuresearch retrieves product documents from an Azure AI Search
// index with a single full-text query.
package azuresearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/sevigo/searchrag/internal/azpipeline"
	"github.com/sevigo/searchrag/schema"
)

const (
	DefaultIndex      = "product-index"
	DefaultAPIVersion = "2024-07-01"

	// MaxResults is the number of documents requested for every query.
	MaxResults = 10
)

// SelectFields is the field projection sent with every query.
var SelectFields = []string{"keyphrases", "content", "products", "url", "metadata_storage_name"}

var (
	ErrNoEndpoint = errors.New("azuresearch: endpoint is required")
	// ErrRetrieval marks any failure of a search call.
	ErrRetrieval = errors.New("azuresearch: retrieval failed")
)

// Retriever implements schema.Retriever against one search index.
type Retriever struct {
	endpoint string
	pipeline runtime.Pipeline
	options  options
	logger   *slog.Logger
}

var _ schema.Retriever = (*Retriever)(nil)

// New creates a retriever for the search service at endpoint.
func New(endpoint string, opts ...Option) (*Retriever, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("azuresearch: invalid endpoint %q", endpoint)
	}

	o := applyOptions(opts...)

	return &Retriever{
		endpoint: endpoint,
		pipeline: azpipeline.New(azpipeline.Options{
			TokenSource: o.tokenSource,
			RequestID:   o.requestID,
			Transport:   o.transport,
		}),
		options: o,
		logger:  o.logger.With("component", "azure_search", "index", o.index),
	}, nil
}

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
	Select string `json:"select"`
}

type searchResponse struct {
	Value []schema.Document `json:"value"`
}

// GetRelevantDocuments runs one search for query and returns at most
// MaxResults documents in service ranking order. No retry is attempted.
func (r *Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	if r.options.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.options.timeout)
		defer cancel()
	}
	start := time.Now()

	req, err := runtime.NewRequest(ctx, http.MethodPost,
		runtime.JoinPaths(r.endpoint, "indexes", url.PathEscape(r.options.index), "docs", "search"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	req.Raw().URL.RawQuery = url.Values{"api-version": {r.options.apiVersion}}.Encode()
	req.Raw().Header.Set("Accept", "application/json")

	body := searchRequest{
		Search: query,
		Top:    MaxResults,
		Select: strings.Join(SelectFields, ","),
	}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	resp, err := r.pipeline.Do(req)
	if err != nil {
		r.logger.ErrorContext(ctx, "Search request failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		err := runtime.NewResponseError(resp)
		r.logger.ErrorContext(ctx, "Search returned an error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	var result searchResponse
	if err := runtime.UnmarshalAsJSON(resp, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrRetrieval, err)
	}

	docs := result.Value
	if len(docs) > MaxResults {
		docs = docs[:MaxResults]
	}

	r.logger.DebugContext(ctx, "Search completed", "count", len(docs), "duration", time.Since(start))
	return docs, nil
}
