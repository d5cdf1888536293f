// Package sanitize detects and masks sensitive spans (PII and
// credential material) in prompt and response text. Sanitization is
// total: every input yields a result and never blocks the pipeline.
package sanitize

import (
	"regexp"
	"sort"
	"strings"
)

// Entity is one detected sensitive span, with offsets into the
// original (pre-masking) text.
type Entity struct {
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Result is the outcome of sanitizing one text.
type Result struct {
	Text                string   `json:"sanitized_text"`
	Entities            []Entity `json:"detected_entities,omitempty"`
	HasSensitiveContent bool     `json:"has_sensitive_content"`
}

// Sanitizer transforms text, masking sensitive content.
type Sanitizer interface {
	Sanitize(text string) Result
}

// entityPattern pairs a compiled pattern with its entity type and the
// placeholder that replaces matches.
type entityPattern struct {
	entityType  string
	re          *regexp.Regexp
	placeholder string
}

func compile(entityType, pattern, placeholder string) entityPattern {
	return entityPattern{
		entityType:  entityType,
		re:          regexp.MustCompile(pattern),
		placeholder: placeholder,
	}
}

// defaultPatterns is the detection set, scanned in order. More
// specific credential shapes come before the generic ones.
var defaultPatterns = []entityPattern{
	compile("private_key", `-----BEGIN\s+(RSA|EC|OPENSSH|DSA|PGP)\s+PRIVATE\s+KEY-----`, "<PRIVATE_KEY>"),
	compile("api_key", `(?i)\b(sk|pk)-[a-zA-Z0-9]{20,}\b`, "<API_KEY>"),
	compile("api_key", `(?i)(api[_-]?key|apikey)\s*[=:]\s*["']?[a-zA-Z0-9_\-]{16,}`, "<API_KEY>"),
	compile("bearer_token", `(?i)bearer\s+[a-zA-Z0-9_\-\.]{20,}`, "<BEARER_TOKEN>"),
	compile("password", `(?i)(password|passwd|pwd|senha)\s*[=:]\s*["']?\S{4,}`, "<PASSWORD>"),
	compile("ssn", `\b\d{3}-\d{2}-\d{4}\b`, "<SSN>"),
	compile("credit_card", `\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`, "<CREDIT_CARD>"),
	compile("email", `\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`, "<EMAIL>"),
	compile("phone", `\b\(?\d{3}\)?[\s\-.]\d{3}[\s\-.]\d{4}\b`, "<PHONE>"),
}

// forbiddenTerms are output vocabulary that flags a response as
// sensitive even without a maskable span.
var forbiddenTerms = []string{"senha", "password", "token", "api_key", "secret"}

// Masker is the regex-backed Sanitizer implementation.
type Masker struct {
	patterns []entityPattern
}

// NewMasker creates a sanitizer with the default detection set.
func NewMasker() *Masker {
	return &Masker{patterns: defaultPatterns}
}

// Sanitize detects sensitive spans, masks them with typed
// placeholders, and reports whether anything sensitive was seen.
func (m *Masker) Sanitize(text string) Result {
	if text == "" {
		return Result{}
	}

	var entities []Entity
	sanitized := text
	for _, p := range m.patterns {
		// Offsets are reported against the original text.
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			entities = append(entities, Entity{Type: p.entityType, Start: loc[0], End: loc[1]})
		}
		sanitized = p.re.ReplaceAllString(sanitized, p.placeholder)
	}
	sort.SliceStable(entities, func(i, j int) bool { return entities[i].Start < entities[j].Start })

	hasForbidden := containsForbiddenTerm(text)
	return Result{
		Text:                sanitized,
		Entities:            entities,
		HasSensitiveContent: len(entities) > 0 || hasForbidden,
	}
}

func containsForbiddenTerm(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range forbiddenTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Normalize cleans up text formatting: line ending normalization and
// whitespace collapsing.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Join(strings.Fields(normalized), " ")
}
