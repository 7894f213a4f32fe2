// Package speech turns reply text into audio through a tiered chain of TTS
// providers. When every provider fails the result carries no audio and the
// caller proceeds text-only.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-empathy/pkg/tier"
	"github.com/teslashibe/go-empathy/pkg/tts"
)

// ChainName identifies the speech chain in logs and metrics.
const ChainName = "speech"

// Request is text to be spoken.
type Request struct {
	Text     string
	Voice    string
	Language string
}

// Result is the outcome of a speech chain run. Payload is nil on fallback.
type Result = tier.Result[*tts.AudioResult]

// Option configures a Synthesizer.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	timeouts map[string]time.Duration
	tierOpts []tier.Option
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTierTimeout bounds each invocation of the named provider.
func WithTierTimeout(provider string, d time.Duration) Option {
	return func(o *options) {
		o.timeouts[provider] = d
	}
}

// WithObserver reports attempts and results to obs.
func WithObserver(obs tier.Observer) Option {
	return func(o *options) {
		o.tierOpts = append(o.tierOpts, tier.WithObserver(obs))
	}
}

// WithAbortOnFatal stops the chain at the first fatal provider error.
func WithAbortOnFatal() Option {
	return func(o *options) {
		o.tierOpts = append(o.tierOpts, tier.WithAbortOnFatal())
	}
}

// Synthesizer runs the speech chain over an ordered list of providers.
type Synthesizer struct {
	orch      *tier.Orchestrator[Request, *tts.AudioResult]
	blank     *tier.Orchestrator[Request, *tts.AudioResult]
	providers []tts.Provider
	logger    *slog.Logger
}

// New builds a Synthesizer. Providers are tried in order; nil entries are
// ignored. Providers implementing tts.Configurable are skipped while
// unconfigured.
func New(providers []tts.Provider, opts ...Option) *Synthesizer {
	o := &options{
		logger:   slog.Default(),
		timeouts: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Synthesizer{logger: o.logger.With("component", "speech")}

	var tiers []tier.Tier[Request, *tts.AudioResult]
	for _, p := range providers {
		if p == nil {
			continue
		}
		s.providers = append(s.providers, p)
		tiers = append(tiers, providerTier(p, o.timeouts[p.Name()]))
	}

	chain := tier.Chain[Request, *tts.AudioResult]{
		Name:     ChainName,
		Tiers:    tiers,
		Terminal: func(Request) *tts.AudioResult { return nil },
	}
	tierOpts := append([]tier.Option{tier.WithLogger(o.logger)}, o.tierOpts...)
	s.orch = tier.New(chain, tierOpts...)
	s.blank = tier.New(tier.Chain[Request, *tts.AudioResult]{
		Name:     ChainName,
		Terminal: chain.Terminal,
	}, tierOpts...)
	return s
}

func providerTier(p tts.Provider, timeout time.Duration) tier.Tier[Request, *tts.AudioResult] {
	t := tier.Tier[Request, *tts.AudioResult]{
		Name:    p.Name(),
		Timeout: timeout,
		Invoke: func(ctx context.Context, req Request) (*tts.AudioResult, error) {
			result, err := p.Synthesize(ctx, &tts.SynthesisRequest{
				Text:     req.Text,
				Voice:    req.Voice,
				Language: req.Language,
			})
			if err != nil {
				return nil, err
			}
			if result == nil || len(result.Audio) == 0 {
				return nil, tts.WrapError(p.Name(), tts.ErrEmptyAudio)
			}
			return result, nil
		},
	}
	if c, ok := p.(tts.Configurable); ok {
		t.Available = c.Configured
	}
	return t
}

// Synthesize speaks req.Text. Blank text goes straight to the fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Text) == "" {
		s.logger.Debug("empty text, skipping synthesis")
		return s.blank.Run(ctx, req)
	}
	return s.orch.Run(ctx, req)
}

// Providers returns the providers in chain order.
func (s *Synthesizer) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// Close closes every provider and returns the first error.
func (s *Synthesizer) Close() error {
	var first error
	for _, p := range s.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
