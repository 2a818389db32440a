package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/phishguard/risk-scoring/internal/domain"
)

// PostgresRuleStore implements ports.RuleSource for PostgreSQL
//
// Only the rule catalog lives here. Analyzed messages and results are never stored.
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a new PostgreSQL rule store
func NewPostgresRuleStore(connStr string) (*PostgresRuleStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The catalog is read once at startup, a small pool is enough
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRuleStore{db: db}, nil
}

// NewPostgresRuleStoreFromDB wraps an already opened database handle
func NewPostgresRuleStoreFromDB(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

// Close closes the database connection
func (s *PostgresRuleStore) Close() error {
	return s.db.Close()
}

// InitSchema creates the rules table if it doesn't exist
// In production, use proper migration tools
func (s *PostgresRuleStore) InitSchema(ctx context.Context) error {
	schema := `
	-- ============================================================================
	-- PHISHING_RULES TABLE
	-- ============================================================================
	-- Keyword rules of the heuristic engine. position defines evaluation order,
	-- which is also the order of rationales in a result.
	--
	-- Weights are additive and never negative: the CHECK keeps the engine monotonic.
	CREATE TABLE IF NOT EXISTS phishing_rules (
		id UUID PRIMARY KEY,
		position INTEGER NOT NULL UNIQUE,
		pattern VARCHAR(200) NOT NULL,
		weight INTEGER NOT NULL CHECK (weight >= 0),
		rationale TEXT NOT NULL,
		category VARCHAR(20) NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SeedRules replaces the whole catalog in a single transaction
func (s *PostgresRuleStore) SeedRules(ctx context.Context, rules []domain.Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM phishing_rules`); err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}

	query := `
		INSERT INTO phishing_rules (id, position, pattern, weight, rationale, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now()
	for i, rule := range rules {
		_, err := tx.ExecContext(ctx, query,
			uuid.New(), i, rule.Pattern, rule.Weight, rule.Rationale, string(rule.Category), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rule %q: %w", rule.Pattern, err)
		}
	}

	return tx.Commit()
}

// LoadRules retrieves all rules in evaluation order
func (s *PostgresRuleStore) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	query := `
		SELECT pattern, weight, rationale, category
		FROM phishing_rules
		ORDER BY position ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.Rule, 0)
	for rows.Next() {
		var rule domain.Rule
		var category string

		if err := rows.Scan(&rule.Pattern, &rule.Weight, &rule.Rationale, &category); err != nil {
			return nil, err
		}

		rule.Category = domain.RuleCategory(category)
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}
