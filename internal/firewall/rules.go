package firewall

// Category classifies a rule by the strength of the signal it carries.
// A strong match alone is enough to block; weak matches only count
// toward a combined threshold.
type Category string

const (
	CategoryStrongInjection Category = "strong_injection"
	CategoryWeakInjection   Category = "weak_injection"
	CategoryWeakJailbreak   Category = "weak_jailbreak"
)

// Rule is a single weighted pattern. Patterns are matched
// case-insensitively against the whole prompt.
type Rule struct {
	Category Category `yaml:"category" json:"category"`
	Pattern  string   `yaml:"pattern" json:"pattern"`
	Weight   int      `yaml:"weight" json:"weight"`
}

// DefaultRules returns the built-in rule catalog in scan order:
// strong injection signatures first, then weak injection markers,
// then weak jailbreak vocabulary.
func DefaultRules() []Rule {
	strongInjection := []string{
		`ignore\s+all\s+previous\s+instructions`,
		`reveal\s+your\s+system\s+prompt`,
		`system\s+prompt`,
		`forget\s+(everything|all|previous)`,
		`disregard\s+(all|previous)`,
	}
	weakInjection := []string{
		`ignore\s+(previous|all|above)`,
		`system\s*:`,
		`assistant\s*:`,
		`you\s+are\s+now`,
		`act\s+as\s+if`,
		`pretend\s+to\s+be`,
	}
	weakJailbreak := []string{
		`bypass`,
		`override`,
		`hack`,
		`exploit`,
		`vulnerability`,
	}

	rules := make([]Rule, 0, len(strongInjection)+len(weakInjection)+len(weakJailbreak))
	for _, p := range strongInjection {
		rules = append(rules, Rule{Category: CategoryStrongInjection, Pattern: p, Weight: 85})
	}
	for _, p := range weakInjection {
		rules = append(rules, Rule{Category: CategoryWeakInjection, Pattern: p, Weight: 20})
	}
	for _, p := range weakJailbreak {
		rules = append(rules, Rule{Category: CategoryWeakJailbreak, Pattern: p, Weight: 15})
	}
	return rules
}
