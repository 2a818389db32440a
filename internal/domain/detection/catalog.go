package detection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phishguard/risk-scoring/internal/domain"
)

// defaultRules is the built-in catalog, in evaluation order.
// Patterns are literal lower-case substrings, not regular expressions.
var defaultRules = []domain.Rule{
	// Urgency and threats
	{Pattern: "urgent", Weight: 15, Rationale: "Uses urgent language to pressure you into acting quickly", Category: domain.RuleCategoryUrgency},
	{Pattern: "immediat", Weight: 15, Rationale: "Demands immediate action", Category: domain.RuleCategoryUrgency},
	{Pattern: "suspend", Weight: 15, Rationale: "Threatens to suspend your account", Category: domain.RuleCategoryUrgency},
	{Pattern: "account will be closed", Weight: 15, Rationale: "Threatens to close your account", Category: domain.RuleCategoryUrgency},
	{Pattern: "within 24 hours", Weight: 10, Rationale: "Sets a very short deadline", Category: domain.RuleCategoryUrgency},
	{Pattern: "final notice", Weight: 10, Rationale: "Claims to be a final notice", Category: domain.RuleCategoryUrgency},
	{Pattern: "act now", Weight: 10, Rationale: "Pushes you to act now without thinking", Category: domain.RuleCategoryUrgency},

	// Credential and payment requests
	{Pattern: "verify your account", Weight: 15, Rationale: "Asks you to verify your account", Category: domain.RuleCategoryCredential},
	{Pattern: "confirm your identity", Weight: 15, Rationale: "Asks you to confirm your identity", Category: domain.RuleCategoryCredential},
	{Pattern: "password", Weight: 15, Rationale: "Mentions your password", Category: domain.RuleCategoryCredential},
	{Pattern: "social security", Weight: 20, Rationale: "Asks about your Social Security number", Category: domain.RuleCategoryCredential},
	{Pattern: "bank account", Weight: 10, Rationale: "Mentions bank account details", Category: domain.RuleCategoryCredential},
	{Pattern: "wire transfer", Weight: 15, Rationale: "Requests a wire transfer", Category: domain.RuleCategoryCredential},
	{Pattern: "gift card", Weight: 20, Rationale: "Asks for gift cards, a payment method scammers favor", Category: domain.RuleCategoryCredential},
	{Pattern: "update your payment", Weight: 15, Rationale: "Asks you to update your payment details", Category: domain.RuleCategoryCredential},
	{Pattern: "unusual activity", Weight: 10, Rationale: "Reports unusual activity to alarm you", Category: domain.RuleCategoryCredential},

	// Dangerous attachment references
	{Pattern: ".exe", Weight: 25, Rationale: "References an executable file", Category: domain.RuleCategoryAttachment},
	{Pattern: ".scr", Weight: 25, Rationale: "References a screensaver file, often disguised malware", Category: domain.RuleCategoryAttachment},
	{Pattern: ".vbs", Weight: 25, Rationale: "References a script file", Category: domain.RuleCategoryAttachment},
	{Pattern: ".jar", Weight: 20, Rationale: "References a Java archive that can run code", Category: domain.RuleCategoryAttachment},
	{Pattern: ".docm", Weight: 20, Rationale: "References a macro-enabled Word document", Category: domain.RuleCategoryAttachment},
	{Pattern: ".xlsm", Weight: 20, Rationale: "References a macro-enabled Excel workbook", Category: domain.RuleCategoryAttachment},
	{Pattern: ".zip", Weight: 10, Rationale: "References a compressed archive", Category: domain.RuleCategoryAttachment},
	{Pattern: "enable macros", Weight: 20, Rationale: "Asks you to enable macros", Category: domain.RuleCategoryAttachment},
	{Pattern: "enable content", Weight: 20, Rationale: "Asks you to enable document content", Category: domain.RuleCategoryAttachment},

	// Insecure or suspicious links
	{Pattern: "http://", Weight: 20, Rationale: "Contains an insecure (non-HTTPS) link", Category: domain.RuleCategoryLink},
	{Pattern: "click here", Weight: 10, Rationale: "Uses a vague 'click here' link", Category: domain.RuleCategoryLink},
	{Pattern: "log in", Weight: 10, Rationale: "Asks you to log in through the message", Category: domain.RuleCategoryLink},
}

// ErrInvalidRule is returned when a catalog is built from an unusable rule
var ErrInvalidRule = errors.New("invalid rule")

// RuleCatalog is an ordered, read-only list of keyword rules.
// It is safe for concurrent use since nothing mutates it after construction.
type RuleCatalog struct {
	rules []domain.Rule
}

// NewRuleCatalog validates rules and builds a catalog preserving their order.
// Patterns are lower-cased once here so scoring only lowers the text.
func NewRuleCatalog(rules []domain.Rule) (*RuleCatalog, error) {
	normalized := make([]domain.Rule, 0, len(rules))
	for i, rule := range rules {
		pattern := strings.ToLower(rule.Pattern)
		if strings.TrimSpace(pattern) == "" {
			return nil, fmt.Errorf("%w: rule %d has an empty pattern", ErrInvalidRule, i)
		}
		if rule.Weight < 0 {
			return nil, fmt.Errorf("%w: rule %q has negative weight %d", ErrInvalidRule, rule.Pattern, rule.Weight)
		}
		if strings.TrimSpace(rule.Rationale) == "" {
			return nil, fmt.Errorf("%w: rule %q has no rationale", ErrInvalidRule, rule.Pattern)
		}
		rule.Pattern = pattern
		normalized = append(normalized, rule)
	}

	return &RuleCatalog{rules: normalized}, nil
}

// DefaultRules returns a copy of the built-in rules
func DefaultRules() []domain.Rule {
	rules := make([]domain.Rule, len(defaultRules))
	copy(rules, defaultRules)
	return rules
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *RuleCatalog {
	catalog, err := NewRuleCatalog(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("built-in rule catalog is invalid: %v", err))
	}
	return catalog
}

// Rules returns a copy of the catalog's rules in evaluation order
func (c *RuleCatalog) Rules() []domain.Rule {
	rules := make([]domain.Rule, len(c.rules))
	copy(rules, c.rules)
	return rules
}

// Len returns the number of rules
func (c *RuleCatalog) Len() int {
	return len(c.rules)
}

// match returns the rules whose pattern appears in already lower-cased text, in catalog order
func (c *RuleCatalog) match(lowered string) []domain.Rule {
	matched := make([]domain.Rule, 0)
	for _, rule := range c.rules {
		if strings.Contains(lowered, rule.Pattern) {
			matched = append(matched, rule)
		}
	}
	return matched
}
