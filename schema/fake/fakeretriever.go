package fake

import (
	"context"
	"sync"

	"github.com/sevigo/searchrag/schema"
)

// Retriever is a stand-in retriever for testing purposes. It records every
// query it receives.
type Retriever struct {
	DocsToReturn []schema.Document
	ErrToReturn  error

	mu      sync.Mutex
	queries []string
}

// NewRetriever creates a new fake retriever that returns docs.
func NewRetriever(docs ...schema.Document) *Retriever {
	return &Retriever{DocsToReturn: docs}
}

// GetRelevantDocuments returns the pre-configured documents and error.
func (r *Retriever) GetRelevantDocuments(_ context.Context, query string) ([]schema.Document, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
	return r.DocsToReturn, r.ErrToReturn
}

// Queries returns the queries received so far, in call order.
func (r *Retriever) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}
