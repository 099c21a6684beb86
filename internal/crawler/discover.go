package crawler

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/safequery/tools/web_search"
	"github.com/mohammad-safakhou/safequery/utils"
)

// Discoverer turns a topic into candidate URLs via an external search
// provider, filtered against the domain blocklist. Provider failures
// degrade to "no candidates", never to an error.
type Discoverer struct {
	searcher       web_search.WebSearcher
	blockedDomains []string
	logger         *log.Logger
}

func NewDiscoverer(searcher web_search.WebSearcher, blockedDomains []string, logger *log.Logger) *Discoverer {
	if logger == nil {
		logger = log.New(log.Writer(), "[DISCOVER] ", log.LstdFlags)
	}
	return &Discoverer{searcher: searcher, blockedDomains: blockedDomains, logger: logger}
}

// Discover returns at most want URLs for the topic, in provider relevance
// order. It over-fetches to absorb filtering loss.
func (d *Discoverer) Discover(ctx context.Context, topic string, want int) []string {
	if want <= 0 {
		return nil
	}
	results, err := d.searcher.Search(ctx, topic, want*2)
	if err != nil {
		d.logger.Printf("search provider error for topic %s: %v", utils.Anonymize(topic), err)
		return nil
	}

	seen := make(map[string]struct{})
	urls := make([]string, 0, want)
	for _, r := range results {
		if len(urls) >= want {
			break
		}
		if !d.isValidURL(r.URL) {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		urls = append(urls, r.URL)
	}
	d.logger.Printf("found %d URLs for topic %s", len(urls), utils.Anonymize(topic))
	return urls
}

// isValidURL checks syntactic validity and the domain blocklist. A host
// merely containing a blocked domain is rejected.
func (d *Discoverer) isValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, blocked := range d.blockedDomains {
		if strings.Contains(host, blocked) {
			return false
		}
	}
	return true
}
