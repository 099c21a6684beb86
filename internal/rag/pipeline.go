package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mohammad-safakhou/safequery/models"
)

// Generator is the optional generation capability. It may be entirely
// absent, in which case answers always come from the extractive
// synthesizer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CountProvider is the document-count view the pipeline needs for stats.
type CountProvider interface {
	Count(ctx context.Context) (int, error)
}

// Pipeline composes retrieval with the generate-or-extract answer chain.
// Stateless per request; safe for concurrent use.
type Pipeline struct {
	retriever   *Retriever
	synthesizer *Synthesizer
	generator   Generator // nil when no generation service is configured
	counter     CountProvider
	logger      *log.Logger

	generateTimeout time.Duration
	genSlots        chan struct{} // bounds concurrent generation calls
}

func NewPipeline(retriever *Retriever, synthesizer *Synthesizer, generator Generator, counter CountProvider, generateTimeout time.Duration, maxConcurrent int, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	if generateTimeout <= 0 {
		generateTimeout = 25 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Pipeline{
		retriever:       retriever,
		synthesizer:     synthesizer,
		generator:       generator,
		counter:         counter,
		logger:          logger,
		generateTimeout: generateTimeout,
		genSlots:        make(chan struct{}, maxConcurrent),
	}
}

// Answer retrieves documents for the query and produces a best-effort
// answer. "No data" and "model unavailable" are steady-state conditions
// here, never errors: the returned answer text is always usable.
func (p *Pipeline) Answer(ctx context.Context, query models.Query) ([]models.SearchResult, string, models.Stats, error) {
	results, err := p.retriever.Retrieve(ctx, query.Text, query.MaxResults)
	if err != nil {
		return nil, "", models.Stats{}, err
	}

	answer, generated := p.answerFrom(ctx, query.Text, results)

	stats := models.Stats{
		DocumentsForQuery: len(results),
		AnswerLength:      len(answer),
		GenerationUsed:    generated,
	}
	if p.counter != nil {
		if total, err := p.counter.Count(ctx); err == nil {
			stats.TotalDocuments = total
		}
	}
	return results, answer, stats, nil
}

// answerFrom runs the fallback chain: generator, then extractive
// synthesis, then the canned insufficient-information message (which the
// synthesizer produces for empty input).
func (p *Pipeline) answerFrom(ctx context.Context, queryText string, results []models.SearchResult) (string, bool) {
	if p.generator != nil && len(results) > 0 {
		answer, err := p.generate(ctx, queryText, results)
		if err == nil && strings.TrimSpace(answer) != "" {
			return cleanGenerated(answer), true
		}
		p.logger.Printf("generation unavailable, falling back to extractive synthesis: %v", err)
	}
	return p.synthesizer.Synthesize(queryText, results), false
}

// generate calls the external model off the request's natural path: a
// bounded slot pool keeps slow generations from piling up, and a timeout
// hands control back to the extractive fallback instead of hanging the
// caller.
func (p *Pipeline) generate(ctx context.Context, queryText string, results []models.SearchResult) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.generateTimeout)
	defer cancel()

	select {
	case p.genSlots <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("generation queue full: %w", ctx.Err())
	}

	type genResult struct {
		text string
		err  error
	}
	done := make(chan genResult, 1)
	go func() {
		defer func() { <-p.genSlots }()
		text, err := p.generator.Generate(ctx, buildPrompt(queryText, results))
		done <- genResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", errors.New("generation timed out")
	}
}

func buildPrompt(queryText string, results []models.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return fmt.Sprintf("Using the following context, answer the question concisely and accurately. If the answer is not in the context, state that you don't know.\n\nContext:\n%s\nQuestion: %s\nAnswer:", b.String(), queryText)
}

// Boilerplate lead-ins models produce, removed wherever they occur.
var reGeneratedBoilerplate = regexp.MustCompile(
	`(?i)based on the (?:provided )?context, |based on the information provided, |according to the (?:provided )?context, `)

// cleanGenerated strips boilerplate phrasing anywhere in the answer, not
// just at the start; models restate it mid-text too.
func cleanGenerated(answer string) string {
	answer = reGeneratedBoilerplate.ReplaceAllString(answer, "")
	return strings.TrimSpace(answer)
}
