package vectorstore

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/safequery/config"
)

// Match is a ranked nearest-neighbour hit. Distance follows the backend's
// metric; for the backends here a distance of 0 means identical.
type Match struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// Store is the narrow capability interface over an external vector index.
// Upsert with an existing id replaces the entry, so concurrent writers with
// overlapping ids converge to one entry per id.
type Store interface {
	Upsert(ctx context.Context, id string, vector []float32, content string, metadata map[string]string) error
	Get(ctx context.Context, ids []string) ([]string, error)
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

// New creates the configured vector store backend.
func New(cfg config.VectorStoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "inmemory":
		return NewInMemory(), nil
	case "chroma":
		return NewChroma(cfg.URL, cfg.Collection, cfg.Timeout)
	default:
		return nil, errors.New("unsupported vector store backend")
	}
}
