// Package localindex keeps a memory-only BM25 index next to the vector
// store. It answers keyword queries when the semantic path is unavailable
// and backs the search suggestions endpoint.
package localindex

import (
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/safequery/models"
)

type indexedDoc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Index is safe for concurrent use.
type Index struct {
	bleve bleve.Index
	meta  map[string]models.Document
	mu    sync.RWMutex
}

func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, meta: make(map[string]models.Document)}, nil
}

// Add indexes one document under its id. Re-adding the same id replaces
// the previous entry.
func (i *Index) Add(id string, doc models.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.meta[id] = doc
	return i.bleve.Index(id, indexedDoc{Title: doc.Title, Content: doc.Content})
}

// Search runs a BM25 query and maps hits back to full documents. Scores
// are normalized against the best hit so they stay in [0, 1].
func (i *Index) Search(q string, k int) ([]models.SearchResult, error) {
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := i.bleve.Search(searchReq)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []models.SearchResult
	var top float64
	for _, hit := range res.Hits {
		if top == 0 {
			top = hit.Score
		}
		doc, ok := i.meta[hit.ID]
		if !ok {
			continue
		}
		score := hit.Score
		if top > 0 {
			score = hit.Score / top
		}
		out = append(out, models.SearchResult{
			Title:   doc.Title,
			Content: doc.Content,
			URL:     doc.URL,
			Domain:  doc.Domain,
			Score:   score,
			Source:  models.SourceLocal,
		})
	}
	return out, nil
}

// Suggest returns up to k indexed titles containing the prefix,
// case-insensitive, ordered alphabetically for stable output.
func (i *Index) Suggest(prefix string, k int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || k <= 0 {
		return nil
	}

	i.mu.RLock()
	titles := make([]string, 0, len(i.meta))
	for _, doc := range i.meta {
		if strings.Contains(strings.ToLower(doc.Title), prefix) {
			titles = append(titles, doc.Title)
		}
	}
	i.mu.RUnlock()

	sort.Strings(titles)
	if len(titles) > k {
		titles = titles[:k]
	}
	return titles
}

// Count reports the number of indexed documents.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.meta)
}
