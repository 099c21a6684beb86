package models

import (
	"errors"
	"strings"
)

// ErrInvalidQuery is returned when a query fails boundary validation.
var ErrInvalidQuery = errors.New("query must be at least 2 characters long")

// Document is a stored, deduplicated unit of crawled content. Once a
// Document has been written to the repository it is never updated.
type Document struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
}

// SearchResult is a Document scored against a query. Produced by the
// retriever only; never persisted.
type SearchResult struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Domain  string  `json:"domain"`
	Score   float64 `json:"score"`
	Source  Source  `json:"source"`
}

// Source identifies where a search result came from.
type Source string

const (
	SourceLocal Source = "local"
)

// Query is a validated search request.
type Query struct {
	Text       string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// NewQuery trims and validates query text at the pipeline boundary.
func NewQuery(text string, maxResults int) (Query, error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return Query{}, ErrInvalidQuery
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return Query{Text: text, MaxResults: maxResults}, nil
}

// Stats describes the knowledge base for observability. Informational
// only; never drives control flow.
type Stats struct {
	TotalDocuments    int    `json:"total_documents"`
	DocumentsForQuery int    `json:"documents_found_for_query"`
	AnswerLength      int    `json:"answer_length"`
	StorageType       string `json:"storage_type"`
	GenerationUsed    bool   `json:"generation_used"`
}
