package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/safequery/internal/vectorstore"
	"github.com/mohammad-safakhou/safequery/models"
)

type countingEmbedder struct {
	batches [][]string
	fail    bool
}

func (e *countingEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("embedding service down")
	}
	e.batches = append(e.batches, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func longContent(tag string) string {
	base := "This document discusses " + tag + " in enough detail to clear the minimum content length gate. "
	return base + base
}

func TestStoreIsIdempotent(t *testing.T) {
	t.Parallel()
	embedder := &countingEmbedder{}
	repo := New(vectorstore.NewInMemory(), embedder, 100, nil)
	docs := []models.Document{
		{Title: "One", Content: longContent("solar energy"), URL: "https://example.com/one"},
		{Title: "Two", Content: longContent("wind energy"), URL: "https://example.com/two"},
	}

	stored, err := repo.Store(context.Background(), docs)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if stored != 2 {
		t.Fatalf("first Store() = %d, want 2", stored)
	}

	stored, err = repo.Store(context.Background(), docs)
	if err != nil {
		t.Fatalf("second Store() error = %v", err)
	}
	if stored != 0 {
		t.Fatalf("second Store() = %d, want 0", stored)
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}
	// Only the first call had fresh documents to embed.
	if len(embedder.batches) != 1 {
		t.Fatalf("embedder saw %d batches, want 1", len(embedder.batches))
	}
}

func TestStoreDeduplicatesEquivalentURLs(t *testing.T) {
	t.Parallel()
	repo := New(vectorstore.NewInMemory(), &countingEmbedder{}, 100, nil)
	docs := []models.Document{
		{Title: "A", Content: longContent("ocean currents"), URL: "https://Example.com/article?utm_source=feed&id=7"},
		{Title: "B", Content: longContent("ocean currents again"), URL: "https://example.com:443/article?id=7"},
	}

	stored, err := repo.Store(context.Background(), docs)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if stored != 1 {
		t.Fatalf("Store() = %d, want 1 after url dedup", stored)
	}
}

func TestStoreSkipsShortDocuments(t *testing.T) {
	t.Parallel()
	repo := New(vectorstore.NewInMemory(), &countingEmbedder{}, 100, nil)
	docs := []models.Document{
		{Title: "Short", Content: "too small", URL: "https://example.com/short"},
		{Title: "Long", Content: longContent("geothermal heat"), URL: "https://example.com/long"},
	}

	stored, err := repo.Store(context.Background(), docs)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if stored != 1 {
		t.Fatalf("Store() = %d, want 1 with short doc skipped", stored)
	}
}

func TestStoreEmbeddingFailureIsAtomic(t *testing.T) {
	t.Parallel()
	embedder := &countingEmbedder{fail: true}
	repo := New(vectorstore.NewInMemory(), embedder, 100, nil)
	docs := []models.Document{
		{Title: "One", Content: longContent("hydrogen fuel"), URL: "https://example.com/h2"},
	}

	if _, err := repo.Store(context.Background(), docs); err == nil {
		t.Fatalf("expected error when embedding fails")
	}
	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Count() = %d after failed store, want 0", count)
	}
}

func TestDocumentID(t *testing.T) {
	t.Parallel()
	withURL := models.Document{Content: "body", URL: "https://example.com/a"}
	if DocumentID(withURL) == DocumentID(models.Document{Content: "body"}) {
		t.Fatalf("url-bearing document should not use content fingerprint")
	}
	noURL := models.Document{Content: "identical"}
	if DocumentID(noURL) != DocumentID(models.Document{Content: "identical"}) {
		t.Fatalf("content fingerprint not stable")
	}
}
