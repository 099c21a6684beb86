package rag

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/safequery/internal/repository"
	"github.com/mohammad-safakhou/safequery/models"
)

// Embedder embeds query text for similarity search.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever answers similarity queries against the document repository.
// Stateless; safe for concurrent use.
type Retriever struct {
	repo     *repository.Repository
	embedder Embedder
	logger   *log.Logger
}

func NewRetriever(repo *repository.Repository, embedder Embedder, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Retriever{repo: repo, embedder: embedder, logger: logger}
}

// Retrieve embeds the query and returns up to k results ordered by
// descending score. An empty repository short-circuits to an empty result
// before any embedding call.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, k int) ([]models.SearchResult, error) {
	count, err := r.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		r.logger.Printf("knowledge base is empty, nothing to search")
		return nil, nil
	}

	vectors, err := r.embedder.CreateEmbedding(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: provider returned no vectors")
	}

	matches, err := r.repo.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]models.SearchResult, 0, len(matches))
	for _, m := range matches {
		// score = 1 - distance; a normalized metric keeps this in [0,1]
		// for reasonable inputs, degenerate embeddings may fall outside.
		results = append(results, models.SearchResult{
			Title:   m.Metadata["title"],
			Content: m.Content,
			URL:     m.Metadata["url"],
			Domain:  m.Metadata["domain"],
			Score:   1 - m.Distance,
			Source:  models.SourceLocal,
		})
	}
	return results, nil
}
