package web_search

import (
	"context"

	"github.com/mohammad-safakhou/safequery/tools/web_search/brave"
	"github.com/mohammad-safakhou/safequery/tools/web_search/duckduckgo"
	"github.com/mohammad-safakhou/safequery/tools/web_search/models"
	"github.com/mohammad-safakhou/safequery/tools/web_search/serper"
)

// WebSearcher returns provider-ranked results for a text query. Provider
// errors surface as errors here; callers decide how to degrade.
type WebSearcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	DuckDuckGoProvider Provider = "duckduckgo"
	SerperProvider     Provider = "serper"
	BraveProvider      Provider = "brave"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case DuckDuckGoProvider:
		return duckduckgo.Search{}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
