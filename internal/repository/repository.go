package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/safequery/internal/helpers"
	"github.com/mohammad-safakhou/safequery/internal/vectorstore"
	"github.com/mohammad-safakhou/safequery/models"
)

// Embedder is the narrow embedding capability the repository depends on.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Repository is a deduplicating, idempotent write/read interface over the
// vector store. Documents are written once and never updated.
type Repository struct {
	store    vectorstore.Store
	embedder Embedder
	minLen   int
	logger   *log.Logger
}

func New(store vectorstore.Store, embedder Embedder, minContentLength int, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.New(log.Writer(), "[REPO] ", log.LstdFlags)
	}
	return &Repository{store: store, embedder: embedder, minLen: minContentLength, logger: logger}
}

// DocumentID computes the stable identity key for a document: the
// fingerprint of its canonical URL when present, else of its content.
// The same source never produces two entries.
func DocumentID(doc models.Document) string {
	if doc.URL != "" {
		if id, err := helpers.URLFingerprint(doc.URL); err == nil {
			return id
		}
	}
	return helpers.ContentFingerprint(doc.Content)
}

// Store writes new documents and skips ones already present. The embedding
// call is batched across all new documents. Returns the number actually
// stored.
func (r *Repository) Store(ctx context.Context, docs []models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	// Resolve ids first so the existence check is one round trip.
	candidates := make([]models.Document, 0, len(docs))
	ids := make([]string, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if len(doc.Content) < r.minLen {
			r.logger.Printf("warn: skipping short document %s (%d chars)", docRef(doc), len(doc.Content))
			continue
		}
		id := DocumentID(doc)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		doc.ID = id
		candidates = append(candidates, doc)
		ids = append(ids, id)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	existing, err := r.store.Get(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("existence check: %w", err)
	}
	exists := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		exists[id] = struct{}{}
	}

	var fresh []models.Document
	for _, doc := range candidates {
		if _, ok := exists[doc.ID]; ok {
			continue
		}
		fresh = append(fresh, doc)
	}
	if len(fresh) == 0 {
		r.logger.Printf("all %d documents already stored", len(candidates))
		return 0, nil
	}

	texts := make([]string, len(fresh))
	for i, doc := range fresh {
		texts[i] = doc.Content
	}
	vectors, err := r.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(fresh) {
		return 0, fmt.Errorf("embed documents: expected %d vectors, got %d", len(fresh), len(vectors))
	}

	stored := 0
	for i, doc := range fresh {
		meta := map[string]string{"title": doc.Title, "url": doc.URL, "domain": doc.Domain}
		if err := r.store.Upsert(ctx, doc.ID, vectors[i], doc.Content, meta); err != nil {
			return stored, fmt.Errorf("upsert %s: %w", doc.ID, err)
		}
		stored++
	}
	r.logger.Printf("stored %d new documents (%d skipped as duplicates)", stored, len(candidates)-stored)
	return stored, nil
}

// Count returns the total number of stored documents.
func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// Search delegates nearest-neighbour lookup to the vector store. An empty
// store yields an empty result, not an error.
func (r *Repository) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Match, error) {
	return r.store.Query(ctx, vector, k)
}

func docRef(doc models.Document) string {
	if doc.URL != "" {
		return doc.URL
	}
	return "(no url)"
}
