package detection

import (
	"context"
	"strings"

	"github.com/phishguard/risk-scoring/internal/domain"
)

// HeuristicStrategy scores text with a keyword rule catalog
//
// Every rule whose pattern occurs in the lower-cased text adds its full weight
// once, however many times it occurs. Weights are never negative, so adding
// matching keywords to a text can only raise its score.
type HeuristicStrategy struct {
	catalog *RuleCatalog
}

// NewHeuristicStrategy creates a rule-based strategy; a nil catalog means the built-in one
func NewHeuristicStrategy(catalog *RuleCatalog) *HeuristicStrategy {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &HeuristicStrategy{catalog: catalog}
}

// Name returns the strategy name
func (s *HeuristicStrategy) Name() string {
	return "Keyword Heuristics"
}

// Score applies the catalog to the text. It never fails and does no blocking work,
// so the context is not consulted.
func (s *HeuristicStrategy) Score(_ context.Context, text domain.CanonicalText) (domain.ScoreResult, error) {
	result := domain.ScoreResult{
		Rationales: make([]string, 0),
		Source:     domain.SourceHeuristic,
	}

	for _, rule := range s.catalog.match(strings.ToLower(text.Text)) {
		result.RawScore += rule.Weight
		result.Rationales = append(result.Rationales, rule.Rationale)
	}

	return result, nil
}
