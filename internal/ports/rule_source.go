package ports

import (
	"context"

	"github.com/phishguard/risk-scoring/internal/domain"
)

// RuleSource defines the contract for loading the rule catalog at process start
type RuleSource interface {
	// LoadRules returns all rules in evaluation order
	LoadRules(ctx context.Context) ([]domain.Rule, error)
}
