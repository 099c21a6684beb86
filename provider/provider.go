package provider

import (
	"context"
	"errors"
	"os"

	"github.com/mohammad-safakhou/safequery/config"
	ollama_provider "github.com/mohammad-safakhou/safequery/provider/ollama"
	openai_provider "github.com/mohammad-safakhou/safequery/provider/openai"
)

// Provider is the interface all LLM implementations must satisfy.
// CreateEmbedding batches: one vector per input text, in order.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates an LLM client from config. A "none" provider yields
// (nil, nil): callers treat a nil Provider as "no generation service".
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		host := cfg.Host
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return ollama_provider.NewClient(host, cfg.CompletionModel, cfg.EmbeddingModel, cfg.Timeout), nil
	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		return openai_provider.NewClient(apiKey, cfg.CompletionModel, cfg.EmbeddingModel, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case "", "none":
		return nil, nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
