// Package tier runs ordered provider chains with per-tier timeouts, error
// classification, and a terminal fallback that cannot fail.
//
// A chain is attempted strictly in order. The first tier that succeeds
// supplies the payload. When every tier fails, times out, or is skipped,
// the chain's Terminal function produces the payload and the result is
// marked as a fallback. Run never returns an error.
package tier

import (
	"context"
	"time"
)

// FallbackName is the ProviderUsed value when the terminal fallback ran.
const FallbackName = "fallback"

// DefaultTimeout bounds a tier whose Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Class is the escalation class of a tier failure.
type Class int

const (
	// ClassEscalate moves on to the next tier.
	ClassEscalate Class = iota

	// ClassFatal marks the request as invalid or the tier as misconfigured.
	// Whether the walk continues depends on the orchestrator policy.
	ClassFatal

	// ClassConfigAbsent is recorded for tiers skipped because they are
	// not configured. Classifiers never return it.
	ClassConfigAbsent
)

func (c Class) String() string {
	switch c {
	case ClassEscalate:
		return "escalate"
	case ClassFatal:
		return "fatal"
	case ClassConfigAbsent:
		return "config_absent"
	default:
		return "unknown"
	}
}

// Outcome is what happened on a single attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeTimeout Outcome = "timeout"
	OutcomeSkipped Outcome = "skipped"
)

// Tier is one provider in a chain. C is the request context handed to every
// tier; R is the payload a successful tier returns.
type Tier[C, R any] struct {
	// Name identifies the tier in logs and in Result.ProviderUsed.
	Name string

	// Timeout bounds a single invocation. Zero means DefaultTimeout.
	Timeout time.Duration

	// Invoke performs the provider call.
	Invoke func(ctx context.Context, req C) (R, error)

	// Classify maps an Invoke error to a Class. Nil means DefaultClassify.
	// Timeouts are always ClassEscalate regardless of Classify.
	Classify func(err error) Class

	// Available reports whether the tier is configured. Nil means always.
	// An unavailable tier is skipped without being invoked.
	Available func() bool
}

func (t Tier[C, R]) timeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultTimeout
	}
	return t.Timeout
}

func (t Tier[C, R]) available() bool {
	return t.Available == nil || t.Available()
}

func (t Tier[C, R]) classify(err error) Class {
	if t.Classify == nil {
		return DefaultClassify(err)
	}
	return t.Classify(err)
}

// Chain is an ordered list of tiers plus the terminal fallback.
// Tiers may be empty; Terminal is required.
type Chain[C, R any] struct {
	Name     string
	Tiers    []Tier[C, R]
	Terminal func(req C) R
}

// Attempt records one tier visit.
type Attempt struct {
	Tier    string
	Outcome Outcome
	Class   Class
	Err     error
	Elapsed time.Duration
}

// Result is what Run returns.
type Result[R any] struct {
	Payload      R
	ProviderUsed string
	IsFallback   bool
	Attempts     []Attempt
	Elapsed      time.Duration
}

// Observer receives attempt and result events from an orchestrator.
type Observer interface {
	ObserveAttempt(chain string, a Attempt)
	ObserveResult(chain, provider string, fallback bool, elapsed time.Duration)
}
