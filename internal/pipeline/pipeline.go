// Package pipeline composes classification, execution, and session logging
// into a single submission path.
//
// One request is processed at a time, to completion. The session log is a
// side channel: a record is appended for every request before its result
// reaches the caller, and a logging failure degrades to a warning without
// failing the command itself.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nlterm/nlterm/internal/classify"
	"github.com/nlterm/nlterm/internal/execute"
	"github.com/nlterm/nlterm/internal/session"
)

// Runner abstracts the executor so callers (and tests) can substitute it.
type Runner interface {
	Execute(ctx context.Context, text string) (*execute.Outcome, error)
}

// Request is one candidate command submitted to the pipeline. Text is the
// literal shell command, already resolved from natural language by the
// translation collaborator when Origin is translated.
type Request struct {
	Text        string
	SubmittedAt time.Time
	Origin      session.Origin
}

// Pipeline is the validation-and-execution path. Construct with New.
type Pipeline struct {
	mu         sync.Mutex
	classifier *classify.Classifier
	runner     Runner
	log        session.Log
	logger     zerolog.Logger
	sessionID  string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the diagnostic logger used for degraded-mode warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.sessionID = id
		}
	}
}

// New creates a Pipeline. A fresh session identifier is minted unless
// overridden; all records appended by this instance carry it.
func New(c *classify.Classifier, r Runner, log session.Log, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: c,
		runner:     r,
		log:        log,
		logger:     zerolog.Nop(),
		sessionID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SessionID returns the identifier stamped on this instance's records.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Classify evaluates text without executing or recording anything.
func (p *Pipeline) Classify(text string) classify.Verdict {
	return p.classifier.Classify(text)
}

// Submit runs one request through classify → execute → record and returns the
// full session record. Blocked commands are never executed; their record is
// appended before the rejection is returned. Spawn failures and timeouts are
// ordinary results carried in the record, not Go errors. Submit returns a
// non-nil error only when ctx is cancelled mid-execution.
func (p *Pipeline) Submit(ctx context.Context, req Request) (*session.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now().UTC()
	}
	if req.Origin == "" {
		req.Origin = session.OriginDirect
	}

	verdict := p.classifier.Classify(req.Text)
	rec := &session.Record{
		Time:      req.SubmittedAt,
		SessionID: p.sessionID,
		Origin:    req.Origin,
		Text:      req.Text,
		Outcome:   verdict.Outcome.String(),
		Reason:    string(verdict.Reason),
		Rule:      verdict.Rule,
	}

	if verdict.Outcome == classify.Blocked {
		p.record(rec)
		return rec, nil
	}

	// Approved but empty after normalization: a no-op. Still one record.
	if classify.Normalize(req.Text) == "" {
		p.record(rec)
		return rec, nil
	}

	out, err := p.runner.Execute(ctx, req.Text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		// Spawn failure: the shell never ran. Fatal to this request only.
		rec.Error = err.Error()
		p.record(rec)
		return rec, nil
	}

	rec.Stdout = out.Stdout
	rec.Stderr = out.Stderr
	rec.ExitCode = out.ExitCode
	rec.TimedOut = out.TimedOut
	rec.DurationMs = float64(out.Duration.Microseconds()) / 1000.0

	p.record(rec)
	return rec, nil
}

// Summary reports the counts for this pipeline's session.
func (p *Pipeline) Summary() (session.Summary, error) {
	return p.log.Summary(p.sessionID)
}

// record appends best-effort: the log must never block the command result.
func (p *Pipeline) record(rec *session.Record) {
	if err := p.log.Append(rec); err != nil {
		p.logger.Warn().Err(err).Str("text", rec.Text).Msg("session record not persisted")
	}
}
