package crawler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/safequery/internal/crawler/seen"
	"github.com/mohammad-safakhou/safequery/internal/privacy"
	"github.com/mohammad-safakhou/safequery/models"
	"github.com/mohammad-safakhou/safequery/utils"
)

var (
	metricCrawlRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safequery_crawl_runs_total",
		Help: "Number of crawl runs started.",
	})
	metricDocsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safequery_crawl_documents_stored_total",
		Help: "Number of new documents persisted by crawl runs.",
	})
	metricTopicFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safequery_crawl_topic_failures_total",
		Help: "Number of topics that produced no stored documents.",
	})
)

// DocumentStore is the persistence half the crawler needs. Satisfied by
// repository.Repository.
type DocumentStore interface {
	Store(ctx context.Context, docs []models.Document) (int, error)
}

// Config carries the per-run knobs of the orchestrator.
type Config struct {
	Topics      []string
	MaxArticles int
	SeenTTL     time.Duration
}

// Crawler drives one full pass over the configured topics: discover
// candidate URLs, extract and sanitize their content, persist the batch.
type Crawler struct {
	discoverer *Discoverer
	extractor  *Extractor
	sanitizer  *privacy.Sanitizer
	store      DocumentStore
	seen       seen.Store
	cfg        Config
	logger     *log.Logger
}

func New(d *Discoverer, e *Extractor, s *privacy.Sanitizer, store DocumentStore, seenStore seen.Store, cfg Config, logger *log.Logger) *Crawler {
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = 2
	}
	if cfg.SeenTTL <= 0 {
		cfg.SeenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CRAWLER] ", log.LstdFlags)
	}
	return &Crawler{
		discoverer: d,
		extractor:  e,
		sanitizer:  s,
		store:      store,
		seen:       seenStore,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run walks every topic in order and returns the number of new documents
// stored. A failing topic is logged and skipped; Run itself only errors
// when the context is cancelled.
func (c *Crawler) Run(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	metricCrawlRuns.Inc()
	c.logger.Printf("run %s starting over %d topics", runID, len(c.cfg.Topics))

	total := 0
	for _, topic := range c.cfg.Topics {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		stored, err := c.crawlTopic(ctx, topic)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return total, err
			}
			c.logger.Printf("run %s topic %s failed: %v", runID, utils.Anonymize(topic), err)
			metricTopicFailures.Inc()
			continue
		}
		if stored == 0 {
			metricTopicFailures.Inc()
		}
		total += stored
	}

	metricDocsStored.Add(float64(total))
	c.logger.Printf("run %s finished, %d new documents", runID, total)
	return total, nil
}

func (c *Crawler) crawlTopic(ctx context.Context, topic string) (int, error) {
	urls := c.discoverer.Discover(ctx, topic, c.cfg.MaxArticles*3)

	docs := make([]models.Document, 0, c.cfg.MaxArticles)
	fetched := make([]string, 0, c.cfg.MaxArticles)
	for _, u := range urls {
		if len(docs) >= c.cfg.MaxArticles {
			break
		}
		if c.alreadySeen(ctx, u) {
			continue
		}
		doc, err := c.extractor.Extract(ctx, u)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return 0, err
			}
			// Extraction failures are expected on the open web; the
			// URL is marked so the next run does not retry it.
			c.markSeen(ctx, u)
			continue
		}
		fetched = append(fetched, u)
		docs = append(docs, c.sanitizer.Sanitize(doc))
	}

	if len(docs) == 0 {
		return 0, nil
	}
	stored, err := c.store.Store(ctx, docs)
	if err != nil {
		// Not marked seen: a failed write must not blacklist URLs that
		// extracted fine, the next run retries them.
		return stored, err
	}
	for _, u := range fetched {
		c.markSeen(ctx, u)
	}
	return stored, nil
}

func (c *Crawler) alreadySeen(ctx context.Context, url string) bool {
	if c.seen == nil {
		return false
	}
	ok, err := c.seen.Seen(ctx, url)
	if err != nil {
		c.logger.Printf("seen check failed: %v", err)
		return false
	}
	return ok
}

func (c *Crawler) markSeen(ctx context.Context, url string) {
	if c.seen == nil {
		return
	}
	if err := c.seen.Mark(ctx, url, c.cfg.SeenTTL); err != nil {
		c.logger.Printf("seen mark failed: %v", err)
	}
}
