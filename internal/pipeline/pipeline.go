// Package pipeline sequences the inspection stages for one request:
// firewall, input sanitization, adaptive risk scoring, generation,
// output sanitization. The first blocking verdict terminates the run;
// every executed stage lands in the audit record either way.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/seclab/promptgate/internal/audit"
	"github.com/seclab/promptgate/internal/compliance"
	"github.com/seclab/promptgate/internal/firewall"
	"github.com/seclab/promptgate/internal/generate"
	"github.com/seclab/promptgate/internal/rbac"
	"github.com/seclab/promptgate/internal/sanitize"
)

// Observer receives the finished record of every pipeline run.
type Observer func(rec *Record)

// Request is one inbound request to inspect.
type Request struct {
	Prompt    string
	Role      string
	Identity  string
	Timestamp time.Time // zero means now
}

// Options wires the pipeline's collaborators.
type Options struct {
	Engine          *firewall.Engine
	Scorer          *rbac.Scorer
	Sanitizer       sanitize.Sanitizer
	Generator       generate.Generator
	Audit           *audit.Logger
	GenerateTimeout time.Duration
	Now             func() time.Time // test hook
}

// Pipeline is the per-request coordinator. It holds no per-request
// state; the only cross-request state lives in the scorer's history
// tracker. Safe for concurrent use.
type Pipeline struct {
	engine    atomic.Pointer[firewall.Engine]
	scorer    *rbac.Scorer
	sanitizer sanitize.Sanitizer
	generator generate.Generator
	auditLog  *audit.Logger
	timeout   time.Duration
	now       func() time.Time

	observerMu sync.RWMutex
	observers  []Observer
}

// New creates a pipeline from its collaborators. Engine, Scorer,
// Sanitizer, and Generator are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("firewall engine is required")
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("risk scorer is required")
	}
	if opts.Sanitizer == nil {
		return nil, fmt.Errorf("sanitizer is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.Audit == nil {
		opts.Audit = audit.NopLogger()
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	p := &Pipeline{
		scorer:    opts.Scorer,
		sanitizer: opts.Sanitizer,
		generator: opts.Generator,
		auditLog:  opts.Audit,
		timeout:   opts.GenerateTimeout,
		now:       opts.Now,
	}
	p.engine.Store(opts.Engine)
	return p, nil
}

// SwapEngine atomically replaces the firewall engine. In-flight runs
// finish with the engine they started with.
func (p *Pipeline) SwapEngine(engine *firewall.Engine) {
	if engine != nil {
		p.engine.Store(engine)
	}
}

// Observe registers an observer for finished runs.
func (p *Pipeline) Observe(obs Observer) {
	p.observerMu.Lock()
	defer p.observerMu.Unlock()
	p.observers = append(p.observers, obs)
}

// Run executes the full stage sequence for one request and returns its
// record. The record is always non-nil; a non-nil error means an
// upstream failure (outcome "failed"), never a security block.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Record, error) {
	ts := req.Timestamp
	if ts.IsZero() {
		ts = p.now()
	}

	rec := &Record{
		RequestID: uuid.NewString(),
		Timestamp: ts,
		Identity:  req.Identity,
		Role:      req.Role,
	}

	fwVerdict := p.engine.Load().Evaluate(req.Prompt)
	rec.Stages = append(rec.Stages, StageResult{
		Stage:     StageFirewall,
		Timestamp: p.now(),
		Summary:   firewallSummary(fwVerdict),
		RiskScore: fwVerdict.RiskScore,
		Detail:    fwVerdict,
	})
	rec.FinalRiskScore = fwVerdict.RiskScore
	if !fwVerdict.Allowed {
		p.finish(rec, OutcomeBlocked, StageFirewall, fwVerdict.Reason)
		return rec, nil
	}

	// Input sanitization normalizes formatting first, then masks;
	// output sanitization masks only.
	inResult := p.sanitizer.Sanitize(sanitize.Normalize(req.Prompt))
	rec.Stages = append(rec.Stages, StageResult{
		Stage:     StageSanitizeIn,
		Timestamp: p.now(),
		Summary:   sanitizeSummary(inResult),
		Detail:    inResult,
	})
	prompt := inResult.Text

	rbacVerdict := p.scorer.Score(req.Role, prompt, req.Identity, ts)
	rec.Stages = append(rec.Stages, StageResult{
		Stage:     StageRBAC,
		Timestamp: p.now(),
		Summary:   fmt.Sprintf("risk %s, action %s", rbacVerdict.RiskLevel, rbacVerdict.Action),
		RiskScore: rbacVerdict.RiskScore,
		Detail:    rbacVerdict,
	})
	rec.FinalRiskScore = rbacVerdict.RiskScore
	rec.StepUp = rbacVerdict.Action == rbac.ActionStepUp
	if rbacVerdict.Action == rbac.ActionBlock {
		p.finish(rec, OutcomeBlocked, StageRBAC, fmt.Sprintf("risk score %d is critical", rbacVerdict.RiskScore))
		return rec, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	genResult, err := p.generator.Generate(genCtx, prompt)
	cancel()
	if err != nil {
		rec.Stages = append(rec.Stages, StageResult{
			Stage:     StageGenerate,
			Timestamp: p.now(),
			Summary:   "generation failed",
		})
		p.finish(rec, OutcomeFailed, StageGenerate, err.Error())
		return rec, fmt.Errorf("generating response: %w", err)
	}
	rec.Stages = append(rec.Stages, StageResult{
		Stage:     StageGenerate,
		Timestamp: p.now(),
		Summary:   fmt.Sprintf("generated %d tokens via %s", genResult.ResponseTokens, genResult.Provider),
		Detail:    genResult,
	})

	outResult := p.sanitizer.Sanitize(genResult.Text)
	rec.Stages = append(rec.Stages, StageResult{
		Stage:     StageSanitizeOut,
		Timestamp: p.now(),
		Summary:   sanitizeSummary(outResult),
		Detail:    outResult,
	})
	rec.Response = outResult.Text

	p.finish(rec, OutcomeCompleted, "", "")
	return rec, nil
}

// finish stamps the terminal state, attaches compliance evidence,
// writes the audit entry, and notifies observers. Called exactly once
// per run.
func (p *Pipeline) finish(rec *Record, outcome Outcome, blockedAt, reason string) {
	rec.Outcome = outcome
	rec.BlockedAt = blockedAt
	rec.Reason = reason

	evidence := compliance.Map(rec.controls())
	rec.Evidence = &evidence

	p.auditLog.Log(audit.Entry{
		Timestamp: p.now(),
		RequestID: rec.RequestID,
		Identity:  rec.Identity,
		Role:      rec.Role,
		Outcome:   string(outcome),
		BlockedAt: blockedAt,
		Reason:    reason,
		RiskScore: rec.FinalRiskScore,
		Record:    rec,
	})

	p.observerMu.RLock()
	observers := p.observers
	p.observerMu.RUnlock()
	for _, obs := range observers {
		obs(rec)
	}
}

func firewallSummary(v firewall.Verdict) string {
	if v.Allowed {
		return fmt.Sprintf("allowed, %d pattern matches", len(v.MatchedPatterns))
	}
	return "blocked: " + v.Reason
}

func sanitizeSummary(r sanitize.Result) string {
	if !r.HasSensitiveContent {
		return "clean"
	}
	return fmt.Sprintf("masked %d sensitive entities", len(r.Entities))
}
