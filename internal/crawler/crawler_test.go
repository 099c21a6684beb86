package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	seeninmemory "github.com/mohammad-safakhou/safequery/internal/crawler/seen/inmemory"
	"github.com/mohammad-safakhou/safequery/internal/privacy"
	"github.com/mohammad-safakhou/safequery/models"
	searchmodels "github.com/mohammad-safakhou/safequery/tools/web_search/models"
)

type captureStore struct {
	docs []models.Document
}

func (c *captureStore) Store(_ context.Context, docs []models.Document) (int, error) {
	c.docs = append(c.docs, docs...)
	return len(docs), nil
}

func TestCrawlerRunStoresSanitizedDocuments(t *testing.T) {
	t.Parallel()
	page := `<html><head><title>Cloud Computing Basics</title></head><body><article>
Cloud computing delivers on-demand computing resources over the internet.
For questions email support@example.com or call 555-123-4567 at any time.
Providers operate large data centers distributed across many regions worldwide.
</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	searcher := &fakeSearcher{results: []searchmodels.Result{
		{URL: srv.URL + "/cloud"},
		{URL: "https://facebook.com/blocked"},
	}}
	discoverer := NewDiscoverer(searcher, []string{"facebook.com"}, nil)
	extractor := NewExtractor(&http.Client{}, ExtractorConfig{
		MinContentLength: 50,
		MaxContentLength: 4000,
		MaxTitleLength:   200,
	}, nil)
	store := &captureStore{}
	seenStore := seeninmemory.NewSeenStore()

	c := New(discoverer, extractor, &privacy.Sanitizer{}, store, seenStore, Config{
		Topics:      []string{"cloud computing"},
		MaxArticles: 1,
	}, nil)

	stored, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stored != 1 {
		t.Fatalf("Run() stored %d, want 1", stored)
	}
	if len(store.docs) != 1 {
		t.Fatalf("store received %d documents", len(store.docs))
	}
	doc := store.docs[0]
	if doc.Title != "Cloud Computing Basics" {
		t.Fatalf("title = %q", doc.Title)
	}
	if strings.Contains(doc.Content, "support@example.com") || strings.Contains(doc.Content, "555-123-4567") {
		t.Fatalf("PII survived sanitization: %q", doc.Content)
	}

	// A second run sees the same URLs as already visited.
	stored, err = c.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if stored != 0 {
		t.Fatalf("second Run() stored %d, want 0", stored)
	}
}

// flakyStore fails its first write and accepts the rest.
type flakyStore struct {
	calls int
	docs  []models.Document
}

func (f *flakyStore) Store(_ context.Context, docs []models.Document) (int, error) {
	f.calls++
	if f.calls == 1 {
		return 0, errors.New("write unavailable")
	}
	f.docs = append(f.docs, docs...)
	return len(docs), nil
}

func TestCrawlerRetriesURLsAfterFailedStore(t *testing.T) {
	t.Parallel()
	page := `<html><head><title>Retry Me</title></head><body><article>
A page that extracts cleanly must be fetched again on the next run when the
storage layer rejected the batch it was part of the first time around.
</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	target := srv.URL + "/retry"
	searcher := &fakeSearcher{results: []searchmodels.Result{{URL: target}}}
	discoverer := NewDiscoverer(searcher, nil, nil)
	extractor := NewExtractor(&http.Client{}, ExtractorConfig{
		MinContentLength: 50,
		MaxContentLength: 4000,
	}, nil)
	store := &flakyStore{}
	seenStore := seeninmemory.NewSeenStore()

	c := New(discoverer, extractor, &privacy.Sanitizer{}, store, seenStore, Config{
		Topics:      []string{"retry topic"},
		MaxArticles: 1,
	}, nil)

	stored, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stored != 0 {
		t.Fatalf("first Run() stored %d, want 0", stored)
	}
	seen, err := seenStore.Seen(context.Background(), target)
	if err != nil {
		t.Fatalf("Seen() error = %v", err)
	}
	if seen {
		t.Fatalf("url marked seen despite failed store")
	}

	stored, err = c.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if stored != 1 {
		t.Fatalf("second Run() stored %d, want 1", stored)
	}
}

func TestCrawlerTopicFailureIsolation(t *testing.T) {
	t.Parallel()
	page := `<html><head><title>Working Topic</title></head><body><article>
This page extracts cleanly and carries more than enough content to pass the
minimum quality threshold used by the extractor configuration in this test.
</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/broken") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	searcher := &routingSearcher{srvURL: srv.URL}
	discoverer := NewDiscoverer(searcher, nil, nil)
	extractor := NewExtractor(&http.Client{}, ExtractorConfig{
		MinContentLength: 50,
		MaxContentLength: 4000,
	}, nil)
	store := &captureStore{}

	c := New(discoverer, extractor, &privacy.Sanitizer{}, store, nil, Config{
		Topics:      []string{"broken topic", "working topic"},
		MaxArticles: 1,
	}, nil)

	stored, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stored != 1 {
		t.Fatalf("Run() stored %d, want 1 from the working topic", stored)
	}
}

// routingSearcher maps the "broken" topic to a failing path on the test
// server and everything else to the good page.
type routingSearcher struct {
	srvURL string
}

func (r *routingSearcher) Search(_ context.Context, topic string, _ int) ([]searchmodels.Result, error) {
	if strings.HasPrefix(topic, "broken") {
		return []searchmodels.Result{{URL: r.srvURL + "/broken"}}, nil
	}
	return []searchmodels.Result{{URL: r.srvURL + "/ok"}}, nil
}
