package schema

import (
	"context"
)

// Document is a single record returned by a search index, projected onto the
// fields the grounded prompt consumes.
type Document struct {
	Name       string   `json:"metadata_storage_name"`
	Content    string   `json:"content"`
	Keyphrases []string `json:"keyphrases"`
	URL        string   `json:"url"`
	Products   []string `json:"products"`

	// Score is the relevance score reported by the search service.
	Score float64 `json:"@search.score,omitempty"`
}

// Retriever returns documents relevant to a query, most relevant first.
type Retriever interface {
	GetRelevantDocuments(ctx context.Context, query string) ([]Document, error)
}
