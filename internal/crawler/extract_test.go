package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func testExtractor(maxContent int) *Extractor {
	return NewExtractor(&http.Client{}, ExtractorConfig{
		MinContentLength: 50,
		MaxContentLength: maxContent,
		MaxTitleLength:   200,
	}, nil)
}

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractArticleContent(t *testing.T) {
	t.Parallel()
	page := `<html><head><title>Renewable Energy Trends</title>
<script>var tracking = "SCRIPT_NOISE";</script></head>
<body>
<nav>Home About NAV_NOISE Contact</nav>
<article>Renewable energy adoption accelerated worldwide this year as solar and wind
capacity reached record levels across every major market and region.</article>
<footer>FOOTER_NOISE copyright</footer>
</body></html>`
	srv := servePage(t, page)

	doc, err := testExtractor(4000).Extract(context.Background(), srv.URL+"/energy")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if doc.Title != "Renewable Energy Trends" {
		t.Fatalf("title = %q", doc.Title)
	}
	if !strings.Contains(doc.Content, "Renewable energy adoption accelerated") {
		t.Fatalf("article text missing: %q", doc.Content)
	}
	for _, noise := range []string{"SCRIPT_NOISE", "NAV_NOISE", "FOOTER_NOISE"} {
		if strings.Contains(doc.Content, noise) {
			t.Fatalf("%s leaked into content: %q", noise, doc.Content)
		}
	}
	if doc.Domain == "" || !strings.Contains(srv.URL, doc.Domain) {
		t.Fatalf("domain = %q for server %s", doc.Domain, srv.URL)
	}
}

func TestExtractTitleTruncation(t *testing.T) {
	t.Parallel()
	longTitle := strings.Repeat("t", 300)
	body := "<html><head><title>" + longTitle + "</title></head><body><article>" +
		strings.Repeat("Sensible sentence content goes right here. ", 5) +
		"</article></body></html>"
	srv := servePage(t, body)

	doc, err := testExtractor(4000).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(doc.Title) != 200 {
		t.Fatalf("title length = %d, want 200", len(doc.Title))
	}
}

func TestExtractMultibyteTitleTruncation(t *testing.T) {
	t.Parallel()
	// 100 three-byte runes; the 200-byte cap lands mid-rune.
	title := strings.Repeat("日", 100)
	body := "<html><head><title>" + title + "</title></head><body><article>" +
		strings.Repeat("Article content long enough to pass the quality gate. ", 3) +
		"</article></body></html>"
	srv := servePage(t, body)

	doc, err := testExtractor(4000).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(doc.Title) > 200 {
		t.Fatalf("title length = %d bytes, cap is 200", len(doc.Title))
	}
	if !utf8.ValidString(doc.Title) {
		t.Fatalf("truncated title is invalid UTF-8: %q", doc.Title)
	}
}

func TestExtractContentTruncation(t *testing.T) {
	t.Parallel()
	body := "<html><body><article>" +
		strings.Repeat("Plenty of repeated words to push past the cap. ", 20) +
		"</article></body></html>"
	srv := servePage(t, body)

	doc, err := testExtractor(120).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(doc.Content) > 120 {
		t.Fatalf("content length = %d, cap is 120", len(doc.Content))
	}
}

func TestExtractQualityGate(t *testing.T) {
	t.Parallel()
	srv := servePage(t, "<html><body><article>too short</article></body></html>")

	_, err := testExtractor(4000).Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrNotExtractable) {
		t.Fatalf("error = %v, want ErrNotExtractable", err)
	}
}

func TestExtractHTTPErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := testExtractor(4000).Extract(context.Background(), srv.URL)
	if !errors.Is(err, ErrNotExtractable) {
		t.Fatalf("error = %v, want ErrNotExtractable", err)
	}
}

func TestExtractInvalidURL(t *testing.T) {
	t.Parallel()
	_, err := testExtractor(4000).Extract(context.Background(), "::not-a-url")
	if !errors.Is(err, ErrNotExtractable) {
		t.Fatalf("error = %v, want ErrNotExtractable", err)
	}
}
