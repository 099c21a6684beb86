package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/safequery/config"
	"github.com/mohammad-safakhou/safequery/internal/crawler"
	"github.com/mohammad-safakhou/safequery/internal/crawler/seen"
	seeninmemory "github.com/mohammad-safakhou/safequery/internal/crawler/seen/inmemory"
	seenredis "github.com/mohammad-safakhou/safequery/internal/crawler/seen/redis"
	"github.com/mohammad-safakhou/safequery/internal/localindex"
	"github.com/mohammad-safakhou/safequery/internal/privacy"
	"github.com/mohammad-safakhou/safequery/internal/rag"
	"github.com/mohammad-safakhou/safequery/internal/repository"
	"github.com/mohammad-safakhou/safequery/internal/vectorstore"
	"github.com/mohammad-safakhou/safequery/models"
	"github.com/mohammad-safakhou/safequery/provider"
	"github.com/mohammad-safakhou/safequery/tools/web_search"
)

// Server owns every long-lived component: the answer pipeline, the local
// keyword index, the crawler and its scheduler, and the privacy logs.
type Server struct {
	cfg      *appconfig.Config
	echo     *echo.Echo
	pipeline *rag.Pipeline
	synth    *rag.Synthesizer
	repo     *repository.Repository
	local    *localindex.Index
	crawler  *crawler.Crawler
	queryLog *privacy.QueryLog
	feedback *privacy.QueryLog
	logger   *log.Logger
}

// New wires all dependencies from config. Nothing external is contacted
// here; connections fail lazily on first use.
func New(cfg *appconfig.Config) (*Server, error) {
	logger := log.New(log.Writer(), "[SERVER] ", log.LstdFlags)

	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	repo := repository.New(store, llm, cfg.Crawler.MinContentLength, nil)

	synth := rag.NewSynthesizer(rag.DefaultSynthesizerConfig())
	var pipeline *rag.Pipeline
	if llm != nil {
		retriever := rag.NewRetriever(repo, llm, nil)
		pipeline = rag.NewPipeline(retriever, synth, llm, repo, cfg.LLM.GenerateTimeout, cfg.LLM.MaxConcurrent, nil)
	} else {
		logger.Printf("no llm provider configured, answers use keyword search only")
	}

	var local *localindex.Index
	if cfg.LocalIndex.Enabled {
		local, err = localindex.New()
		if err != nil {
			return nil, fmt.Errorf("local index: %w", err)
		}
	}

	queryLog, err := privacy.NewQueryLog(cfg.Privacy.QueryLogPath)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	feedbackLog, err := privacy.NewQueryLog(cfg.Privacy.FeedbackLogPath)
	if err != nil {
		return nil, fmt.Errorf("feedback log: %w", err)
	}

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	var seenStore seen.Store
	switch cfg.Crawler.SeenStore {
	case "redis":
		seenStore = seenredis.NewSeenStore(cfg.Crawler.Redis.Addr(), cfg.Crawler.Redis.Password, cfg.Crawler.Redis.DB)
	default:
		seenStore = seeninmemory.NewSeenStore()
	}

	discoverer := crawler.NewDiscoverer(searcher, cfg.Crawler.BlockedDomains, nil)
	extractor := crawler.NewExtractor(
		&http.Client{Timeout: cfg.Crawler.FetchTimeout},
		crawler.ExtractorConfig{
			MinContentLength: cfg.Crawler.MinContentLength,
			MaxContentLength: cfg.Crawler.MaxContentLength,
			MaxTitleLength:   cfg.Crawler.MaxTitleLength,
			MinDelay:         cfg.Crawler.MinDelay,
			MaxDelay:         cfg.Crawler.MaxDelay,
		},
		nil,
	)
	sanitizer := &privacy.Sanitizer{StripPersonal: true}

	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		synth:    synth,
		repo:     repo,
		local:    local,
		queryLog: queryLog,
		feedback: feedbackLog,
		logger:   logger,
	}
	s.crawler = crawler.New(discoverer, extractor, sanitizer, s, seenStore, crawler.Config{
		Topics:      cfg.Crawler.Topics,
		MaxArticles: cfg.Crawler.MaxArticles,
	}, nil)

	s.echo = s.buildEcho()
	return s, nil
}

// Store persists documents and mirrors them into the keyword index, so
// the crawler feeds both stores through one interface.
func (s *Server) Store(ctx context.Context, docs []models.Document) (int, error) {
	var stored int
	if s.pipeline != nil {
		var err error
		stored, err = s.repo.Store(ctx, docs)
		if err != nil {
			return stored, err
		}
	} else {
		// Without an embedder the keyword index is the only store.
		stored = len(docs)
	}
	if s.local != nil {
		for _, doc := range docs {
			if err := s.local.Add(repository.DocumentID(doc), doc); err != nil {
				s.logger.Printf("local index add failed: %v", err)
			}
		}
	}
	return stored, nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	origins := s.cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/", s.handleRoot)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/search", s.handleSearch)
	api.GET("/suggest", s.handleSuggest)
	api.POST("/feedback", s.handleFeedback)
	api.GET("/stats", s.handleStats)
	return e
}

// Crawl runs one crawl pass. Used by the one-shot CLI command.
func (s *Server) Crawl(ctx context.Context) (int, error) {
	return s.crawler.Run(ctx)
}

// Seed stores the sample documents if the knowledge base is empty.
func (s *Server) Seed(ctx context.Context) error {
	return s.seedIfEmpty(ctx)
}

// Run seeds and crawls per config, starts the background scheduler, and
// serves until the listener fails.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Crawler.SeedOnEmptyStore {
		if err := s.seedIfEmpty(ctx); err != nil {
			s.logger.Printf("seeding failed: %v", err)
		}
	}
	if s.cfg.Crawler.CrawlOnStartup {
		if stored, err := s.crawler.Run(ctx); err != nil {
			s.logger.Printf("startup crawl aborted: %v", err)
		} else {
			s.logger.Printf("startup crawl stored %d documents", stored)
		}
	}

	sched := &Scheduler{
		Crawler:  s.crawler,
		Interval: s.cfg.Crawler.Interval,
		Cron:     s.cfg.Crawler.ScheduleCron,
		Stop:     make(chan struct{}),
	}
	sched.Start()
	defer close(sched.Stop)

	// Optional dedicated metrics listener; /metrics on the main port is
	// always available either way.
	if s.cfg.Telemetry.Enabled && s.cfg.Telemetry.MetricsPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", s.cfg.Telemetry.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				s.logger.Printf("metrics listener failed: %v", err)
			}
		}()
	}

	addr := s.cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}
