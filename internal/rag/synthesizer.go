package rag

import (
	"sort"
	"strings"

	"github.com/mohammad-safakhou/safequery/models"
)

// InsufficientInfoMessage is returned when there is nothing to answer from.
const InsufficientInfoMessage = "I couldn't find enough relevant information in the knowledge base to answer your question."

// SynthesizerConfig carries the empirically chosen scoring constants. The
// defaults are the tuned values; they are configuration, not derivation.
type SynthesizerConfig struct {
	Limit           int     // documents considered
	MaxSentences    int     // sentences in the final answer
	MinSentenceLen  int     // sentences shorter than this are discarded
	LongSentenceLen int     // sentences longer than this get LengthBonus
	FallbackMinLen  int     // minimum first-sentence length for the fallback
	ScoreThreshold  float64 // minimum relevance to keep a sentence
	TitleBonus      float64 // added when a keyword appears in the doc title
	LengthBonus     float64 // added for long sentences
}

// DefaultSynthesizerConfig returns the tuned scoring parameters.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		Limit:           3,
		MaxSentences:    3,
		MinSentenceLen:  10,
		LongSentenceLen: 50,
		FallbackMinLen:  30,
		ScoreThreshold:  0.2,
		TitleBonus:      0.3,
		LengthBonus:     0.1,
	}
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "how": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"why": {}, "will": {}, "with": {},
}

// Synthesizer assembles an extractive answer from retrieved documents by
// ranking their sentences on keyword overlap. Deterministic and
// side-effect free: identical inputs produce byte-identical output.
type Synthesizer struct {
	cfg SynthesizerConfig
}

func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	if cfg.Limit <= 0 {
		cfg = DefaultSynthesizerConfig()
	}
	return &Synthesizer{cfg: cfg}
}

type scoredSentence struct {
	text  string
	score float64
	title string
}

// Synthesize builds an answer for queryText from the ranked documents.
func (s *Synthesizer) Synthesize(queryText string, documents []models.SearchResult) string {
	if len(documents) == 0 {
		return InsufficientInfoMessage
	}

	keywords := extractKeywords(queryText)

	limit := s.cfg.Limit
	if limit > len(documents) {
		limit = len(documents)
	}

	var kept []scoredSentence
	for _, doc := range documents[:limit] {
		titleHasKeyword := anyKeywordIn(keywords, doc.Title)
		for _, sentence := range splitSentences(doc.Content) {
			if len(sentence) < s.cfg.MinSentenceLen {
				continue
			}
			score := overlapScore(keywords, sentence)
			if titleHasKeyword {
				score += s.cfg.TitleBonus
			}
			if len(sentence) > s.cfg.LongSentenceLen {
				score += s.cfg.LengthBonus
			}
			if score > s.cfg.ScoreThreshold {
				kept = append(kept, scoredSentence{text: sentence, score: score, title: doc.Title})
			}
		}
	}

	if len(kept) == 0 {
		return s.fallback(documents[0])
	}

	// Stable: score ties resolve to encounter order, first-seen wins.
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	var parts []string
	seen := make(map[string]struct{})
	for _, cand := range kept {
		if len(parts) >= s.cfg.MaxSentences {
			break
		}
		if _, dup := seen[cand.text]; dup {
			continue
		}
		seen[cand.text] = struct{}{}
		parts = append(parts, cand.text)
	}

	answer := strings.Join(parts, ". ")
	return ensureTerminalPunctuation(answer)
}

// fallback answers from the top document when no sentence clears the
// relevance threshold.
func (s *Synthesizer) fallback(top models.SearchResult) string {
	for _, sentence := range splitSentences(top.Content) {
		if len(sentence) > s.cfg.FallbackMinLen {
			return ensureTerminalPunctuation("Based on the information about " + top.Title + ": " + sentence)
		}
	}
	content := top.Content
	if len(content) > 200 {
		content = content[:200] + "..."
	}
	return ensureTerminalPunctuation("According to the search results: " + content)
}

func extractKeywords(queryText string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, word := range tokenize(queryText) {
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

func splitSentences(content string) []string {
	raw := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func overlapScore(keywords map[string]struct{}, sentence string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	words := make(map[string]struct{})
	for _, w := range tokenize(sentence) {
		words[w] = struct{}{}
	}
	matched := 0
	for kw := range keywords {
		if _, ok := words[kw]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

func anyKeywordIn(keywords map[string]struct{}, title string) bool {
	lower := strings.ToLower(title)
	for kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func ensureTerminalPunctuation(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
