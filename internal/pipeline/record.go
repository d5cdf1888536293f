package pipeline

import (
	"time"

	"github.com/seclab/promptgate/internal/compliance"
)

// Stage names, in execution order.
const (
	StageFirewall    = "firewall"
	StageSanitizeIn  = "sanitize_in"
	StageRBAC        = "rbac"
	StageGenerate    = "generate"
	StageSanitizeOut = "sanitize_out"
)

// Outcome is the terminal state of a pipeline run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeFailed    Outcome = "failed"
)

// StageResult records one executed stage. Detail carries the stage's
// full verdict for the audit trail.
type StageResult struct {
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
	RiskScore int       `json:"risk_score,omitempty"`
	Detail    any       `json:"detail,omitempty"`
}

// Record is the full audit trail for one pipeline run. Stages holds an
// entry for every stage that executed; stages past the terminating one
// are absent. Exactly one terminal decision governs the response.
type Record struct {
	RequestID      string               `json:"request_id"`
	Timestamp      time.Time            `json:"timestamp"`
	Identity       string               `json:"identity,omitempty"`
	Role           string               `json:"role,omitempty"`
	Stages         []StageResult        `json:"stages"`
	Outcome        Outcome              `json:"outcome"`
	BlockedAt      string               `json:"blocked_at,omitempty"`
	Reason         string               `json:"reason,omitempty"`
	FinalRiskScore int                  `json:"final_risk_score"`
	StepUp         bool                 `json:"step_up,omitempty"`
	Response       string               `json:"response,omitempty"`
	Evidence       *compliance.Evidence `json:"compliance,omitempty"`
}

// Blocked reports whether the run terminated with a security block.
func (r *Record) Blocked() bool { return r.Outcome == OutcomeBlocked }

// controls returns the compliance control names for the stages that
// executed, in execution order.
func (r *Record) controls() []string {
	var names []string
	for _, s := range r.Stages {
		switch s.Stage {
		case StageFirewall:
			names = append(names, compliance.ControlFirewall)
		case StageSanitizeIn:
			names = append(names, compliance.ControlInputSanitization)
		case StageRBAC:
			names = append(names, compliance.ControlRBACAdaptive)
		case StageSanitizeOut:
			names = append(names, compliance.ControlOutputSanitization)
		}
	}
	return names
}
