package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/safequery/internal/repository"
	"github.com/mohammad-safakhou/safequery/internal/vectorstore"
	"github.com/mohammad-safakhou/safequery/models"
)

type fakeGenerator struct {
	answer string
	err    error
	delay  time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, _ string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

func newTestPipeline(t *testing.T, gen Generator, timeout time.Duration) (*Pipeline, models.Query) {
	t.Helper()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"machine learning is a field of study in artificial intelligence": {1, 0},
		"machine learning": {1, 0},
	}}
	repo := repository.New(vectorstore.NewInMemory(), embedder, 1, nil)
	docs := []models.Document{{
		Title:   "ML Overview",
		Content: "machine learning is a field of study in artificial intelligence",
		URL:     "https://example.com/ml",
	}}
	if _, err := repo.Store(context.Background(), docs); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	retriever := NewRetriever(repo, embedder, nil)
	synth := NewSynthesizer(DefaultSynthesizerConfig())
	p := NewPipeline(retriever, synth, gen, repo, timeout, 2, nil)

	query, err := models.NewQuery("machine learning", 5)
	if err != nil {
		t.Fatalf("NewQuery() error = %v", err)
	}
	return p, query
}

func TestAnswerUsesGenerator(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{answer: "Based on the context, ML studies patterns in data."}
	p, query := newTestPipeline(t, gen, time.Second)

	results, answer, stats, err := p.Answer(context.Background(), query)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !stats.GenerationUsed {
		t.Fatalf("stats say generation was not used")
	}
	if strings.HasPrefix(answer, "Based on the context,") {
		t.Fatalf("boilerplate prefix not stripped: %q", answer)
	}
	if stats.TotalDocuments != 1 || stats.DocumentsForQuery != 1 {
		t.Fatalf("stats counts wrong: %+v", stats)
	}
	if stats.AnswerLength != len(answer) {
		t.Fatalf("answer length %d recorded as %d", len(answer), stats.AnswerLength)
	}
}

func TestAnswerFallsBackOnGeneratorError(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{err: errors.New("model offline")}
	p, query := newTestPipeline(t, gen, time.Second)

	_, answer, stats, err := p.Answer(context.Background(), query)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if stats.GenerationUsed {
		t.Fatalf("stats claim generation despite failure")
	}
	if answer == "" || answer == InsufficientInfoMessage {
		t.Fatalf("extractive fallback produced no usable answer: %q", answer)
	}
}

func TestAnswerFallsBackOnGeneratorTimeout(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{answer: "too late", delay: 500 * time.Millisecond}
	p, query := newTestPipeline(t, gen, 20*time.Millisecond)

	_, answer, stats, err := p.Answer(context.Background(), query)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if stats.GenerationUsed {
		t.Fatalf("stats claim generation despite timeout")
	}
	if answer == "" {
		t.Fatalf("no fallback answer after timeout")
	}
}

func TestCleanGenerated(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "leading phrase",
			in:   "Based on the context, ML studies patterns.",
			want: "ML studies patterns.",
		},
		{
			name: "mid-text phrase",
			in:   "ML studies patterns. based on the provided context, it needs data.",
			want: "ML studies patterns. it needs data.",
		},
		{
			name: "case insensitive",
			in:   "BASED ON THE INFORMATION PROVIDED, answers vary.",
			want: "answers vary.",
		},
		{
			name: "multiple occurrences",
			in:   "According to the context, A. Based on the context, B.",
			want: "A. B.",
		},
		{
			name: "clean text untouched",
			in:   "Plain answer with no boilerplate.",
			want: "Plain answer with no boilerplate.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanGenerated(tt.in); got != tt.want {
				t.Fatalf("cleanGenerated(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnswerNoGeneratorConfigured(t *testing.T) {
	t.Parallel()
	p, query := newTestPipeline(t, nil, time.Second)

	_, answer, stats, err := p.Answer(context.Background(), query)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if stats.GenerationUsed {
		t.Fatalf("stats claim generation with no generator")
	}
	if !strings.Contains(strings.ToLower(answer), "machine learning") {
		t.Fatalf("extractive answer off-topic: %q", answer)
	}
}
