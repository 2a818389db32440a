package main

import (
	"context"
	"fmt"
	"log"

	"github.com/phishguard/risk-scoring/internal/adapters/delegate"
	"github.com/phishguard/risk-scoring/internal/adapters/storage"
	"github.com/phishguard/risk-scoring/internal/application"
	"github.com/phishguard/risk-scoring/internal/config"
	"github.com/phishguard/risk-scoring/internal/domain/detection"
	"github.com/phishguard/risk-scoring/internal/ports"
)

// buildService wires the analysis pipeline from configuration.
// The outer layer picks the adapters and injects them into the service.
func buildService(ctx context.Context, cfg *config.Config, metrics *application.Metrics) (*application.AnalysisService, error) {
	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	heuristic := detection.NewHeuristicStrategy(catalog)

	opts := []application.Option{application.WithMetrics(metrics)}

	if !cfg.Delegate.Enabled {
		log.Printf("Scoring with %s (%d rules)", heuristic.Name(), catalog.Len())
		return application.NewAnalysisService(heuristic, opts...), nil
	}

	client := delegate.NewGeminiClient(
		cfg.Delegate.APIKey,
		cfg.Delegate.Model,
		cfg.Delegate.BaseURL,
		nil,
	)
	primary := detection.NewDelegateStrategy(client, cfg.Delegate.Timeout)

	if cfg.Delegate.Fallback {
		opts = append(opts, application.WithFallback(heuristic))
		log.Printf("Scoring with %s, falling back to %s", primary.Name(), heuristic.Name())
	} else {
		log.Printf("Scoring with %s", primary.Name())
	}
	return application.NewAnalysisService(primary, opts...), nil
}

// loadCatalog reads the rule catalog from Postgres when a database is configured
func loadCatalog(ctx context.Context, cfg *config.Config) (*detection.RuleCatalog, error) {
	if cfg.Database.URL == "" {
		return detection.DefaultCatalog(), nil
	}

	store, err := storage.NewPostgresRuleStore(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return catalogFrom(ctx, store)
}

// catalogFrom builds the catalog from a rule source, keeping the built-in one when the source is empty
func catalogFrom(ctx context.Context, source ports.RuleSource) (*detection.RuleCatalog, error) {
	rules, err := source.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		log.Println("Rule store is empty, using built-in catalog (run `phishguard rules init` to seed it)")
		return detection.DefaultCatalog(), nil
	}

	catalog, err := detection.NewRuleCatalog(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rule catalog in database: %w", err)
	}
	log.Printf("Loaded %d rules from database", catalog.Len())
	return catalog, nil
}
