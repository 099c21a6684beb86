package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/mohammad-safakhou/safequery/models"
	"github.com/mohammad-safakhou/safequery/utils"
)

// ErrNotExtractable marks a URL that yielded no usable content: network
// failure, broken markup, or text below the quality gate. It is a skip
// signal, not a fatal condition.
var ErrNotExtractable = errors.New("content not extractable")

const placeholderTitle = "Unknown Title"

// A small pool of common desktop identities; one is picked per request so
// crawls do not present a single fixed fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
}

var (
	selNoise = cascadia.MustCompile("script, style, nav, header, footer, aside")
	selTitle = cascadia.MustCompile("title")
	selBody  = cascadia.MustCompile("body")

	// Content-bearing containers, most specific first. Paragraphs close the
	// list as the general fallback.
	contentSelectors = []cascadia.Selector{
		cascadia.MustCompile("article"),
		cascadia.MustCompile("main"),
		cascadia.MustCompile(".content"),
		cascadia.MustCompile(".post-content"),
		cascadia.MustCompile(".entry-content"),
		cascadia.MustCompile(".article-content"),
		cascadia.MustCompile("section"),
		cascadia.MustCompile("p"),
	}

	reWhitespace = regexp.MustCompile(`\s+`)
)

// ExtractorConfig bounds fetch behaviour and content size.
type ExtractorConfig struct {
	MinContentLength int
	MaxContentLength int
	MaxTitleLength   int
	MinDelay         time.Duration
	MaxDelay         time.Duration
}

// Extractor fetches a URL and produces a cleaned document. The HTTP
// client is injected so tests can point it at fakes; it should follow
// redirects and carry the fetch timeout.
type Extractor struct {
	client *http.Client
	cfg    ExtractorConfig
	rng    *rand.Rand
	logger *log.Logger
}

func NewExtractor(client *http.Client, cfg ExtractorConfig, logger *log.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.MaxTitleLength <= 0 {
		cfg.MaxTitleLength = 200
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)
	}
	return &Extractor{
		client: client,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Extract fetches and cleans one page. All transient failures map to
// ErrNotExtractable so one bad URL never aborts a crawl run.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (models.Document, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return models.Document{}, fmt.Errorf("%w: invalid url", ErrNotExtractable)
	}

	if err := e.politenessDelay(ctx); err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", ErrNotExtractable, err)
	}

	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		e.logger.Printf("fetch error for %s: %v", utils.Anonymize(rawURL), err)
		return models.Document{}, fmt.Errorf("%w: %v", ErrNotExtractable, err)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		e.logger.Printf("parse error for %s: %v", utils.Anonymize(rawURL), err)
		return models.Document{}, fmt.Errorf("%w: %v", ErrNotExtractable, err)
	}

	title := extractTitle(doc)
	removeNoise(doc)

	content := e.extractBody(body, parsed, doc)
	content = strings.TrimSpace(reWhitespace.ReplaceAllString(content, " "))

	if len(content) < e.cfg.MinContentLength {
		e.logger.Printf("low quality content from %s (%d chars)", utils.Anonymize(rawURL), len(content))
		return models.Document{}, fmt.Errorf("%w: content below quality threshold", ErrNotExtractable)
	}

	return models.Document{
		Title:   utils.Truncate(title, e.cfg.MaxTitleLength),
		Content: utils.Truncate(content, e.cfg.MaxContentLength),
		URL:     rawURL,
		Domain:  parsed.Host,
	}, nil
}

// politenessDelay sleeps a randomized interval before the fetch so
// outbound requests do not form a burst pattern.
func (e *Extractor) politenessDelay(ctx context.Context) error {
	if e.cfg.MaxDelay <= 0 {
		return nil
	}
	delay := e.cfg.MinDelay
	if spread := e.cfg.MaxDelay - e.cfg.MinDelay; spread > 0 {
		delay += time.Duration(e.rng.Int63n(int64(spread)))
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgents[e.rng.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractBody tries readability first, then the selector priority list on
// the noise-stripped DOM, then the whole body text.
func (e *Extractor) extractBody(rawHTML string, pageURL *url.URL, doc *html.Node) string {
	if article, err := readability.FromReader(strings.NewReader(rawHTML), pageURL); err == nil {
		if text := strings.TrimSpace(article.TextContent); len(text) >= e.cfg.MinContentLength {
			return text
		}
	}

	for _, sel := range contentSelectors {
		if text := joinText(sel.MatchAll(doc)); text != "" {
			return text
		}
	}
	if body := selBody.MatchFirst(doc); body != nil {
		return nodeText(body)
	}
	return ""
}

func extractTitle(doc *html.Node) string {
	if n := selTitle.MatchFirst(doc); n != nil {
		if title := strings.TrimSpace(nodeText(n)); title != "" {
			return title
		}
	}
	return placeholderTitle
}

func removeNoise(doc *html.Node) {
	for _, n := range selNoise.MatchAll(doc) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func joinText(nodes []*html.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if text := strings.TrimSpace(nodeText(n)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
