// Package firewall implements the prompt firewall: a fixed catalog of
// weighted patterns evaluated against each inbound prompt, tiered by
// severity. Evaluation is pure and stateless.
package firewall

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// DefaultMaxPromptLength is the maximum accepted prompt length in
// characters when no limit is configured.
const DefaultMaxPromptLength = 5000

// Verdict is the firewall's decision for one prompt.
type Verdict struct {
	Allowed         bool     `json:"allowed"`
	Reason          string   `json:"reason,omitempty"`
	MatchedPatterns []string `json:"matched_patterns"`
	RiskScore       int      `json:"risk_score"`
}

type compiledRule struct {
	category Category
	pattern  string
	re       *regexp.Regexp
	weight   int
}

// Engine evaluates prompts against a compiled rule catalog.
// Safe for unsynchronized concurrent use.
type Engine struct {
	rules           []compiledRule
	maxPromptLength int
}

// NewEngine compiles the catalog and validates every rule. A rule with
// an unknown category, a weight outside [0,100], or a pattern that does
// not compile is a contract violation and fails construction.
func NewEngine(rules []Rule, maxPromptLength int) (*Engine, error) {
	if maxPromptLength <= 0 {
		maxPromptLength = DefaultMaxPromptLength
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule catalog is empty")
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		switch r.Category {
		case CategoryStrongInjection, CategoryWeakInjection, CategoryWeakJailbreak:
		default:
			return nil, fmt.Errorf("rule %d: unknown category %q", i, r.Category)
		}
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %d: pattern is required", i)
		}
		if r.Weight < 0 || r.Weight > 100 {
			return nil, fmt.Errorf("rule %d: weight %d outside [0,100]", i, r.Weight)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: compiling pattern %q: %w", i, r.Pattern, err)
		}
		compiled = append(compiled, compiledRule{
			category: r.Category,
			pattern:  r.Pattern,
			re:       re,
			weight:   r.Weight,
		})
	}

	return &Engine{rules: compiled, maxPromptLength: maxPromptLength}, nil
}

// MaxPromptLength returns the configured prompt length limit.
func (e *Engine) MaxPromptLength() int { return e.maxPromptLength }

// Evaluate scans the prompt against the catalog and returns a verdict.
// Every input produces a verdict; there are no side effects.
func (e *Engine) Evaluate(prompt string) Verdict {
	if prompt == "" {
		// Administrative rejection, not a risk signal: score stays 0.
		return Verdict{Allowed: false, Reason: "empty prompt", RiskScore: 0}
	}

	if utf8.RuneCountInString(prompt) > e.maxPromptLength {
		// Length check short-circuits the pattern scan.
		return Verdict{
			Allowed:   false,
			Reason:    fmt.Sprintf("prompt exceeds maximum length (%d characters)", e.maxPromptLength),
			RiskScore: 100,
		}
	}

	var (
		matched    []string
		riskScore  int
		strongHits int
		weakHits   int
	)
	for _, r := range e.rules {
		if r.re.MatchString(prompt) {
			matched = append(matched, r.pattern)
			riskScore += r.weight
			if r.category == CategoryStrongInjection {
				strongHits++
			} else {
				weakHits++
			}
		}
	}
	if riskScore > 100 {
		riskScore = 100
	}

	if strongHits >= 1 {
		return Verdict{
			Allowed:         false,
			Reason:          "strong prompt injection or jailbreak pattern detected",
			MatchedPatterns: matched,
			RiskScore:       riskScore,
		}
	}
	if weakHits >= 3 && riskScore >= 50 {
		return Verdict{
			Allowed:         false,
			Reason:          "combination of weak signals suggests a malicious prompt",
			MatchedPatterns: matched,
			RiskScore:       riskScore,
		}
	}

	return Verdict{Allowed: true, MatchedPatterns: matched, RiskScore: riskScore}
}
