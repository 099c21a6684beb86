package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Chroma is a client for Chroma's REST API (api/v1). The collection is
// created on first use.
type Chroma struct {
	baseURL    string
	collection string
	httpClient *http.Client

	mu           sync.Mutex
	collectionID string
}

func NewChroma(baseURL, collection string, timeout time.Duration) (*Chroma, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if collection == "" {
		collection = "documents"
	}
	return &Chroma{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Chroma) ensureCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}
	var resp struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "/api/v1/collections", map[string]interface{}{
		"name":          c.collection,
		"get_or_create": true,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("get_or_create collection: %w", err)
	}
	c.collectionID = resp.ID
	return resp.ID, nil
}

func (c *Chroma) Upsert(ctx context.Context, id string, vector []float32, content string, metadata map[string]string) error {
	coll, err := c.ensureCollection(ctx)
	if err != nil {
		return err
	}
	payload := map[string]interface{}{
		"ids":        []string{id},
		"embeddings": [][]float32{vector},
		"documents":  []string{content},
		"metadatas":  []map[string]string{metadata},
	}
	return c.post(ctx, "/api/v1/collections/"+coll+"/upsert", payload, nil)
}

func (c *Chroma) Get(ctx context.Context, ids []string) ([]string, error) {
	coll, err := c.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}
	var resp struct {
		IDs []string `json:"ids"`
	}
	if err := c.post(ctx, "/api/v1/collections/"+coll+"/get", map[string]interface{}{"ids": ids}, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

func (c *Chroma) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	coll, err := c.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}
	var resp struct {
		IDs       [][]string            `json:"ids"`
		Documents [][]string            `json:"documents"`
		Metadatas [][]map[string]string `json:"metadatas"`
		Distances [][]float64           `json:"distances"`
	}
	payload := map[string]interface{}{
		"query_embeddings": [][]float32{vector},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if err := c.post(ctx, "/api/v1/collections/"+coll+"/query", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		m := Match{ID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			m.Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			m.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			m.Distance = resp.Distances[0][i]
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (c *Chroma) Count(ctx context.Context) (int, error) {
	coll, err := c.ensureCollection(ctx)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/collections/"+coll+"/count", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("chroma returned status: %d", resp.StatusCode)
	}
	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return count, nil
}

func (c *Chroma) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma returned status: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
