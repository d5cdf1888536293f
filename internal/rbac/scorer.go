// Package rbac implements the adaptive risk scorer: a composite score
// built from role, time of day, prompt length, and request frequency,
// mapped to a risk level and a recommended action.
package rbac

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seclab/promptgate/internal/history"
)

// RiskLevel is the four-tier classification derived from the score.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// Action is the recommended handling for a scored request. StepUp is
// advisory: allow, but flag for stronger downstream authentication.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionStepUp Action = "step_up"
	ActionBlock  Action = "block"
)

// Factor is one named contribution to the composite score, kept for
// explainability.
type Factor struct {
	Name         string `json:"name"`
	Contribution int    `json:"contribution"`
}

// Verdict is the scorer's output for one request. Immutable once
// returned.
type Verdict struct {
	RiskScore int       `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	Action    Action    `json:"action"`
	Factors   []Factor  `json:"factors"`
}

// Risk thresholds (exclusive upper bounds).
const (
	lowThreshold    = 30
	mediumThreshold = 60
	highThreshold   = 80
)

// Factor parameters.
const (
	offHoursStart = 8  // hours before this add risk
	offHoursEnd   = 18 // hours after this add risk
	offHoursRisk  = 20

	longPromptBase    = 1000
	longPromptPer     = 100
	longPromptMaxRisk = 20

	frequencyWindow    = 300 * time.Second
	frequencyThreshold = 10
	frequencyStep      = 2
	frequencyMaxRisk   = 20
)

var roleScores = map[string]int{
	"admin": 10,
	"user":  30,
	"guest": 50,
}

// unknownRoleScore treats unrecognized roles as maximally cautious
// rather than rejecting them.
const unknownRoleScore = 50

// Scorer computes adaptive risk verdicts. It owns no state of its own;
// the history tracker holds the cross-request frequency signal.
type Scorer struct {
	history *history.Tracker
}

// NewScorer creates a scorer backed by the given history tracker.
func NewScorer(tracker *history.Tracker) *Scorer {
	if tracker == nil {
		tracker = history.New()
	}
	return &Scorer{history: tracker}
}

// Score computes the composite risk for one request. When identity is
// non-empty the request is recorded into its history after the
// frequency factor is read, so a request never inflates its own count;
// the read-then-record pair is atomic per identity.
func (s *Scorer) Score(role, prompt, identity string, ts time.Time) Verdict {
	score := 0
	var factors []Factor

	normalizedRole := strings.ToLower(strings.TrimSpace(role))
	roleScore, ok := roleScores[normalizedRole]
	if !ok {
		roleScore = unknownRoleScore
	}
	score += roleScore
	factors = append(factors, Factor{Name: "role_" + normalizedRole, Contribution: roleScore})

	hour := ts.Hour()
	if hour < offHoursStart || hour > offHoursEnd {
		score += offHoursRisk
		factors = append(factors, Factor{Name: "off_hours", Contribution: offHoursRisk})
	}

	if length := utf8.RuneCountInString(prompt); length > longPromptBase {
		lengthRisk := (length - longPromptBase) / longPromptPer
		if lengthRisk > longPromptMaxRisk {
			lengthRisk = longPromptMaxRisk
		}
		score += lengthRisk
		factors = append(factors, Factor{Name: "long_prompt", Contribution: lengthRisk})
	}

	if identity != "" {
		recent := s.history.Tally(identity, ts, frequencyWindow)
		if recent > frequencyThreshold {
			frequencyRisk := (recent - frequencyThreshold) * frequencyStep
			if frequencyRisk > frequencyMaxRisk {
				frequencyRisk = frequencyMaxRisk
			}
			score += frequencyRisk
			factors = append(factors, Factor{Name: "high_frequency", Contribution: frequencyRisk})
		}
	}

	if score > 100 {
		score = 100
	}

	level, action := classify(score)
	return Verdict{
		RiskScore: score,
		RiskLevel: level,
		Action:    action,
		Factors:   factors,
	}
}

func classify(score int) (RiskLevel, Action) {
	switch {
	case score < lowThreshold:
		return LevelLow, ActionAllow
	case score < mediumThreshold:
		return LevelMedium, ActionAllow
	case score < highThreshold:
		return LevelHigh, ActionStepUp
	default:
		return LevelCritical, ActionBlock
	}
}
