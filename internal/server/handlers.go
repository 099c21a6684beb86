package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/safequery/models"
	"github.com/mohammad-safakhou/safequery/utils"
)

// resultContentLimit caps per-result content in API responses so one
// large page does not dominate the payload.
const resultContentLimit = 500

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Answer  string                `json:"answer"`
	Results []models.SearchResult `json:"results"`
	Stats   models.Stats          `json:"stats"`
}

type feedbackRequest struct {
	Query   string `json:"query"`
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "safequery",
		"endpoints": []string{
			"POST /api/search",
			"GET /api/suggest",
			"POST /api/feedback",
			"GET /api/stats",
			"GET /healthz",
			"GET /metrics",
		},
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	query, err := models.NewQuery(req.Query, req.MaxResults)
	if err != nil {
		if errors.Is(err, models.ErrInvalidQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	// Only the encrypted log sees the raw query text.
	if err := s.queryLog.Log(query.Text); err != nil {
		s.logger.Printf("query log failed: %v", err)
	}

	resp, err := s.answer(c, query)
	if err != nil {
		return err
	}
	for i := range resp.Results {
		resp.Results[i].Content = utils.Truncate(resp.Results[i].Content, resultContentLimit)
	}
	return c.JSON(http.StatusOK, resp)
}

// answer runs the semantic pipeline when one is configured and degrades
// to the keyword index when it is absent or failing.
func (s *Server) answer(c echo.Context, query models.Query) (searchResponse, error) {
	ctx := c.Request().Context()

	if s.pipeline != nil {
		results, answer, stats, err := s.pipeline.Answer(ctx, query)
		if err == nil {
			stats.StorageType = s.cfg.VectorStore.Backend
			return searchResponse{Answer: answer, Results: results, Stats: stats}, nil
		}
		s.logger.Printf("semantic search failed for %s, trying keyword fallback: %v", utils.Anonymize(query.Text), err)
	}

	if s.local == nil {
		return searchResponse{}, echo.NewHTTPError(http.StatusServiceUnavailable, "search backends unavailable")
	}
	results, err := s.local.Search(query.Text, query.MaxResults)
	if err != nil {
		return searchResponse{}, fmt.Errorf("keyword search: %w", err)
	}
	answer := s.synth.Synthesize(query.Text, results)
	return searchResponse{
		Answer:  answer,
		Results: results,
		Stats: models.Stats{
			TotalDocuments:    s.local.Count(),
			DocumentsForQuery: len(results),
			AnswerLength:      len(answer),
			StorageType:       "local_index",
		},
	}, nil
}

func (s *Server) handleSuggest(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	suggestions := []string{}
	if q != "" {
		suggestions = append(suggestions,
			"what is "+q,
			"how does "+q+" work",
			"latest developments in "+q,
		)
		if s.local != nil {
			suggestions = append(suggestions, s.local.Suggest(q, 5)...)
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

func (s *Server) handleFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Feedback is stored encrypted like queries; the query itself is only
	// kept as an anonymized reference.
	line := fmt.Sprintf("%s ref=%s helpful=%t comment=%s",
		time.Now().UTC().Format(time.RFC3339), utils.Anonymize(req.Query), req.Helpful, req.Comment)
	if err := s.feedback.Log(line); err != nil {
		s.logger.Printf("feedback log failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not record feedback")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()
	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Printf("stats count failed: %v", err)
	}
	stats := map[string]interface{}{
		"total_documents":    total,
		"storage_type":       s.cfg.VectorStore.Backend,
		"generation_enabled": s.pipeline != nil,
		"privacy_features": []string{
			"no user tracking",
			"encrypted query log",
			"pii redaction before storage",
			"anonymized crawl logging",
		},
	}
	if s.local != nil {
		stats["local_index_documents"] = s.local.Count()
	}
	return c.JSON(http.StatusOK, stats)
}
