package duckduckgo

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="/l/?uddg=https%3A%2F%2Fexample.com%2Ffirst">First Article</a>
  <a class="result__snippet">Snippet for the first article.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/second">Second Article</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/third">Third Article</a>
  <a class="result__snippet">Snippet for the third article.</a>
</div>
</body></html>`

func TestParseResultsPairsSnippetsPerBlock(t *testing.T) {
	t.Parallel()
	doc, err := html.Parse(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	got := parseResults(doc, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}

	if got[0].URL != "https://example.com/first" {
		t.Fatalf("expected redirect unwrapped, got %q", got[0].URL)
	}
	if got[0].Snippet != "Snippet for the first article." {
		t.Fatalf("unexpected first snippet: %q", got[0].Snippet)
	}
	if got[1].Title != "Second Article" || got[1].Snippet != "" {
		t.Fatalf("result without snippet must stay empty, got %q / %q", got[1].Title, got[1].Snippet)
	}
	if got[2].Snippet != "Snippet for the third article." {
		t.Fatalf("snippet drifted to the wrong result: %q", got[2].Snippet)
	}
}

func TestParseResultsHonorsLimit(t *testing.T) {
	t.Parallel()
	doc, err := html.Parse(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	got := parseResults(doc, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
}

func TestResolveRedirect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		href string
		want string
	}{
		{"uddg redirect", "/l/?uddg=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a"},
		{"absolute passthrough", "https://example.com/b", "https://example.com/b"},
		{"relative without redirect", "/about", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveRedirect(tt.href); got != tt.want {
				t.Fatalf("resolveRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}
