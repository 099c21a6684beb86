package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the search system
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Server      ServerConfig      `mapstructure:"server"`
	Crawler     CrawlerConfig     `mapstructure:"crawler"`
	Search      SearchConfig      `mapstructure:"search"`
	LLM         LLMConfig         `mapstructure:"llm"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	LocalIndex  LocalIndexConfig  `mapstructure:"local_index"`
	Privacy     PrivacyConfig     `mapstructure:"privacy"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CrawlerConfig controls topic crawling and content extraction.
type CrawlerConfig struct {
	Topics            []string      `mapstructure:"topics"`
	BlockedDomains    []string      `mapstructure:"blocked_domains"`
	MaxArticles       int           `mapstructure:"max_articles"`
	MinContentLength  int           `mapstructure:"min_content_length"`
	MaxContentLength  int           `mapstructure:"max_content_length"`
	MaxTitleLength    int           `mapstructure:"max_title_length"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	MinDelay          time.Duration `mapstructure:"min_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	Interval          time.Duration `mapstructure:"interval"`
	ScheduleCron      string        `mapstructure:"schedule_cron"`
	SeenStore         string        `mapstructure:"seen_store"` // inmemory or redis
	Redis             RedisConfig   `mapstructure:"redis"`
	CrawlOnStartup    bool          `mapstructure:"crawl_on_startup"`
	SeedOnEmptyStore  bool          `mapstructure:"seed_on_empty_store"`
}

func (c CrawlerConfig) Validate() error {
	if c.MaxArticles <= 0 {
		return fmt.Errorf("crawler.max_articles must be > 0")
	}
	if c.MinContentLength <= 0 || c.MaxContentLength <= c.MinContentLength {
		return fmt.Errorf("crawler content length bounds invalid (min=%d max=%d)", c.MinContentLength, c.MaxContentLength)
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("crawler delay bounds invalid (min=%s max=%s)", c.MinDelay, c.MaxDelay)
	}
	return nil
}

// SearchConfig selects the external search provider used for URL discovery.
type SearchConfig struct {
	Provider string `mapstructure:"provider"` // duckduckgo, brave, serper
	APIKey   string `mapstructure:"api_key"`
}

// LLMConfig contains generation and embedding provider settings.
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // ollama, openai, none
	Host            string        `mapstructure:"host"`
	APIKey          string        `mapstructure:"api_key"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "", "none", "ollama", "openai":
	default:
		return fmt.Errorf("llm.provider %q unsupported", l.Provider)
	}
	if l.Provider == "openai" && strings.TrimSpace(l.APIKey) == "" && os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("llm.api_key required for openai provider")
	}
	return nil
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Backend    string        `mapstructure:"backend"` // inmemory or chroma
	URL        string        `mapstructure:"url"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (v VectorStoreConfig) Validate() error {
	switch v.Backend {
	case "", "inmemory":
	case "chroma":
		if strings.TrimSpace(v.URL) == "" {
			return fmt.Errorf("vector_store.url required for chroma backend")
		}
	default:
		return fmt.Errorf("vector_store.backend %q unsupported", v.Backend)
	}
	return nil
}

// LocalIndexConfig controls the keyword fallback index.
type LocalIndexConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PrivacyConfig controls query/feedback logging.
type PrivacyConfig struct {
	QueryLogPath    string `mapstructure:"query_log_path"`
	FeedbackLogPath string `mapstructure:"feedback_log_path"`
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// RedisConfig contains Redis connection settings for the crawler seen-store.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// LoadConfig loads config from file. The file is optional: when none is
// found the defaults below plus SAFEQUERY_* env overrides apply.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.allowed_origins", []string{"*"})
	viper.SetDefault("crawler.topics", []string{
		"latest advancements in AI",
		"python programming best practices",
		"climate change solutions",
	})
	viper.SetDefault("crawler.blocked_domains", []string{
		"facebook.com", "twitter.com", "instagram.com",
		"youtube.com", "linkedin.com", "reddit.com",
		"pinterest.com", "tiktok.com",
	})
	viper.SetDefault("crawler.max_articles", 2)
	viper.SetDefault("crawler.min_content_length", 100)
	viper.SetDefault("crawler.max_content_length", 4000)
	viper.SetDefault("crawler.max_title_length", 200)
	viper.SetDefault("crawler.fetch_timeout", "15s")
	viper.SetDefault("crawler.min_delay", "1s")
	viper.SetDefault("crawler.max_delay", "3s")
	viper.SetDefault("crawler.interval", "4h")
	viper.SetDefault("crawler.seen_store", "inmemory")
	viper.SetDefault("crawler.crawl_on_startup", true)
	viper.SetDefault("crawler.seed_on_empty_store", true)
	viper.SetDefault("crawler.redis.host", "localhost")
	viper.SetDefault("crawler.redis.port", "6379")
	viper.SetDefault("search.provider", "duckduckgo")
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.host", "http://localhost:11434")
	viper.SetDefault("llm.completion_model", "gemma:2b")
	viper.SetDefault("llm.embedding_model", "all-minilm")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.generate_timeout", "25s")
	viper.SetDefault("llm.max_concurrent", 4)
	viper.SetDefault("vector_store.backend", "inmemory")
	viper.SetDefault("vector_store.collection", "documents")
	viper.SetDefault("vector_store.timeout", "10s")
	viper.SetDefault("local_index.enabled", true)
	viper.SetDefault("privacy.query_log_path", "query_log.txt")
	viper.SetDefault("privacy.feedback_log_path", "feedback_log.txt")
	viper.SetDefault("telemetry.enabled", false)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SAFEQUERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; only a malformed file is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Crawler.Validate(); err != nil {
		return nil, err
	}
	if err := config.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := config.VectorStore.Validate(); err != nil {
		return nil, err
	}
	if err := config.Telemetry.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
