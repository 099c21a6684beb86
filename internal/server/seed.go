package server

import (
	"context"

	"github.com/mohammad-safakhou/safequery/models"
)

// sampleDocuments keep the API usable before the first crawl completes.
var sampleDocuments = []models.Document{
	{
		Title: "Introduction to Artificial Intelligence",
		Content: "Artificial intelligence is the simulation of human intelligence processes by machines, " +
			"especially computer systems. Common applications include expert systems, natural language " +
			"processing, speech recognition and machine vision. Machine learning is a core part of AI " +
			"that enables systems to learn and improve from experience without being explicitly programmed. " +
			"Deep learning uses neural networks with many layers to model complex patterns in data.",
		URL:    "https://example.com/docs/intro-to-ai",
		Domain: "example.com",
	},
	{
		Title: "Python Programming Best Practices",
		Content: "Writing clean Python code starts with following PEP 8, the official style guide. " +
			"Use descriptive variable names, keep functions small and focused, and prefer list " +
			"comprehensions for simple transformations. Virtual environments isolate project " +
			"dependencies, and type hints make larger codebases easier to maintain. Tests should " +
			"accompany every non-trivial change.",
		URL:    "https://example.com/docs/python-best-practices",
		Domain: "example.com",
	},
	{
		Title: "Climate Change Solutions Overview",
		Content: "Addressing climate change requires cutting greenhouse gas emissions across energy, " +
			"transport and agriculture. Renewable energy sources such as solar and wind are now " +
			"cost-competitive with fossil fuels in most markets. Energy efficiency improvements, " +
			"electrification of transport, reforestation and carbon capture all contribute to " +
			"reaching net-zero targets.",
		URL:    "https://example.com/docs/climate-solutions",
		Domain: "example.com",
	},
}

// seedIfEmpty stores the sample documents when the knowledge base has
// nothing in it yet, so search works before the first crawl.
func (s *Server) seedIfEmpty(ctx context.Context) error {
	if s.pipeline != nil {
		count, err := s.repo.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
	} else if s.local != nil && s.local.Count() > 0 {
		return nil
	}

	stored, err := s.Store(ctx, sampleDocuments)
	if err != nil {
		return err
	}
	s.logger.Printf("seeded %d sample documents", stored)
	return nil
}
