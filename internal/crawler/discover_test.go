package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/safequery/tools/web_search/models"
)

type fakeSearcher struct {
	results []models.Result
	err     error
	lastK   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, k int) ([]models.Result, error) {
	f.lastK = k
	return f.results, f.err
}

func TestDiscoverFiltersBlockedDomains(t *testing.T) {
	t.Parallel()
	searcher := &fakeSearcher{results: []models.Result{
		{URL: "https://news.example.com/ai-article"},
		{URL: "https://www.facebook.com/some-post"},
		{URL: "https://m.twitter.com/status/1"},
		{URL: "https://blog.example.org/post"},
	}}
	d := NewDiscoverer(searcher, []string{"facebook.com", "twitter.com"}, nil)

	urls := d.Discover(context.Background(), "ai news", 4)
	want := []string{"https://news.example.com/ai-article", "https://blog.example.org/post"}
	if len(urls) != len(want) {
		t.Fatalf("Discover() = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, urls[i], want[i])
		}
	}
}

func TestDiscoverDeduplicatesAndCaps(t *testing.T) {
	t.Parallel()
	searcher := &fakeSearcher{results: []models.Result{
		{URL: "https://example.com/a"},
		{URL: "https://example.com/a"},
		{URL: "https://example.com/b"},
		{URL: "https://example.com/c"},
	}}
	d := NewDiscoverer(searcher, nil, nil)

	urls := d.Discover(context.Background(), "topic", 2)
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	if urls[0] != "https://example.com/a" || urls[1] != "https://example.com/b" {
		t.Fatalf("unexpected urls: %v", urls)
	}
	// Over-fetch absorbs filtering loss.
	if searcher.lastK != 4 {
		t.Fatalf("provider asked for %d results, want 4", searcher.lastK)
	}
}

func TestDiscoverProviderErrorReturnsNoCandidates(t *testing.T) {
	t.Parallel()
	searcher := &fakeSearcher{err: errors.New("rate limited")}
	d := NewDiscoverer(searcher, nil, nil)

	if urls := d.Discover(context.Background(), "topic", 3); urls != nil {
		t.Fatalf("expected nil on provider error, got %v", urls)
	}
}

func TestDiscoverRejectsMalformedURLs(t *testing.T) {
	t.Parallel()
	searcher := &fakeSearcher{results: []models.Result{
		{URL: "not a url"},
		{URL: "/relative/path"},
		{URL: "https://ok.example.com/x"},
	}}
	d := NewDiscoverer(searcher, nil, nil)

	urls := d.Discover(context.Background(), "topic", 3)
	if len(urls) != 1 || urls[0] != "https://ok.example.com/x" {
		t.Fatalf("Discover() = %v", urls)
	}
}
