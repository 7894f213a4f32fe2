package tier

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	observer     Observer
	abortOnFatal bool
}

// WithLogger sets the logger used for per-attempt entries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an Observer for attempts and results.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithAbortOnFatal makes a Fatal error skip the remaining tiers and go
// straight to the terminal fallback. By default Fatal errors are logged
// and the walk continues.
func WithAbortOnFatal() Option {
	return func(o *options) {
		o.abortOnFatal = true
	}
}

// Orchestrator walks a Chain for each request.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator[C, R any] struct {
	chain Chain[C, R]
	opts  options
}

// New creates an orchestrator for chain. A nil Terminal is replaced by one
// returning the zero payload.
func New[C, R any](chain Chain[C, R], opts ...Option) *Orchestrator[C, R] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", "tier.orchestrator", "chain", chain.Name)

	if chain.Terminal == nil {
		chain.Terminal = func(C) R {
			var zero R
			return zero
		}
	}

	return &Orchestrator[C, R]{chain: chain, opts: o}
}

// Chain returns the orchestrated chain.
func (o *Orchestrator[C, R]) Chain() Chain[C, R] {
	return o.chain
}

// Run attempts each tier in order and returns the first success, or the
// terminal fallback when none succeeds. It never fails.
func (o *Orchestrator[C, R]) Run(ctx context.Context, req C) Result[R] {
	start := time.Now()
	attempts := make([]Attempt, 0, len(o.chain.Tiers))

	for _, t := range o.chain.Tiers {
		if err := ctx.Err(); err != nil {
			o.opts.logger.Warn("request context done, skipping remaining tiers",
				"tier", t.Name,
				"error", err,
			)
			break
		}

		ok, err := available(t)
		if err != nil {
			a := Attempt{Tier: t.Name, Outcome: OutcomeFailed, Class: ClassEscalate, Err: err}
			attempts = append(attempts, a)
			o.record(a)
			continue
		}
		if !ok {
			a := Attempt{Tier: t.Name, Outcome: OutcomeSkipped, Class: ClassConfigAbsent}
			attempts = append(attempts, a)
			o.record(a)
			continue
		}

		payload, a := attempt(ctx, t, req)
		attempts = append(attempts, a)
		o.record(a)

		if a.Outcome == OutcomeSuccess {
			return o.finish(Result[R]{
				Payload:      payload,
				ProviderUsed: t.Name,
				Attempts:     attempts,
			}, start)
		}

		if a.Class == ClassFatal && o.opts.abortOnFatal {
			break
		}
	}

	return o.finish(Result[R]{
		Payload:      o.terminal(req),
		ProviderUsed: FallbackName,
		IsFallback:   true,
		Attempts:     attempts,
	}, start)
}

func (o *Orchestrator[C, R]) finish(res Result[R], start time.Time) Result[R] {
	res.Elapsed = time.Since(start)
	if res.IsFallback {
		o.opts.logger.Warn("all tiers exhausted, using terminal fallback",
			"attempts", len(res.Attempts),
			"elapsed_ms", res.Elapsed.Milliseconds(),
		)
	}
	if o.opts.observer != nil {
		o.observe(func() {
			o.opts.observer.ObserveResult(o.chain.Name, res.ProviderUsed, res.IsFallback, res.Elapsed)
		})
	}
	return res
}

// observe runs an observer callback, logging instead of propagating a panic.
func (o *Orchestrator[C, R]) observe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.opts.logger.Error("observer panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

func (o *Orchestrator[C, R]) terminal(req C) (payload R) {
	defer func() {
		if r := recover(); r != nil {
			o.opts.logger.Error("terminal fallback panicked", "panic", fmt.Sprint(r))
			var zero R
			payload = zero
		}
	}()
	return o.chain.Terminal(req)
}

func (o *Orchestrator[C, R]) record(a Attempt) {
	attrs := []any{
		"tier", a.Tier,
		"outcome", string(a.Outcome),
		"elapsed_ms", a.Elapsed.Milliseconds(),
	}
	switch a.Outcome {
	case OutcomeSuccess:
		o.opts.logger.Info("tier succeeded", attrs...)
	case OutcomeSkipped:
		o.opts.logger.Info("tier not configured, skipping", attrs...)
	default:
		attrs = append(attrs, "class", a.Class.String(), "error", a.Err)
		if a.Class == ClassFatal {
			o.opts.logger.Error("tier failed with fatal error", attrs...)
		} else {
			o.opts.logger.Warn("tier failed, escalating", attrs...)
		}
	}

	if o.opts.observer != nil {
		o.observe(func() { o.opts.observer.ObserveAttempt(o.chain.Name, a) })
	}
}

// available calls t's Available hook. A panic is returned as a PanicError.
func available[C, R any](t Tier[C, R]) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, &PanicError{Value: r}
		}
	}()
	return t.available(), nil
}

// classify calls t's classifier. A panicking classifier means ClassEscalate.
func classify[C, R any](t Tier[C, R], err error) (c Class) {
	defer func() {
		if r := recover(); r != nil {
			c = ClassEscalate
		}
	}()
	return t.classify(err)
}

type invokeResult[R any] struct {
	payload R
	err     error
}

// attempt invokes t once under its timeout. The caller stops waiting at the
// deadline even if Invoke ignores ctx; the goroutine then finishes on its own.
func attempt[C, R any](ctx context.Context, t Tier[C, R], req C) (R, Attempt) {
	var zero R
	a := Attempt{Tier: t.Name}

	if t.Invoke == nil {
		a.Outcome = OutcomeFailed
		a.Class = ClassFatal
		a.Err = fmt.Errorf("tier %q: no invoke function", t.Name)
		return zero, a
	}

	tctx, cancel := context.WithTimeout(ctx, t.timeout())
	defer cancel()

	done := make(chan invokeResult[R], 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeResult[R]{err: &PanicError{Value: r}}
			}
		}()
		p, err := t.Invoke(tctx, req)
		done <- invokeResult[R]{payload: p, err: err}
	}()

	select {
	case res := <-done:
		a.Elapsed = time.Since(start)
		if res.err == nil {
			a.Outcome = OutcomeSuccess
			return res.payload, a
		}
		a.Err = res.err
		if tctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			a.Outcome = OutcomeTimeout
			a.Class = ClassEscalate
			return zero, a
		}
		a.Outcome = OutcomeFailed
		if _, ok := res.err.(*PanicError); ok {
			a.Class = ClassEscalate
		} else {
			a.Class = classify(t, res.err)
		}
		return zero, a

	case <-tctx.Done():
		a.Elapsed = time.Since(start)
		if ctx.Err() != nil {
			a.Outcome = OutcomeFailed
			a.Err = ctx.Err()
		} else {
			a.Outcome = OutcomeTimeout
			a.Err = fmt.Errorf("%w after %s", ErrTimeout, t.timeout())
		}
		a.Class = ClassEscalate
		return zero, a
	}
}
