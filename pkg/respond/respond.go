// Package respond generates empathetic text replies through a tiered chain:
// a Gemini model cascade, then an optional secondary LLM, then the emotion's
// canned sentence. A reply is always produced.
package respond

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-empathy/pkg/emotions"
	"github.com/teslashibe/go-empathy/pkg/inference"
	"github.com/teslashibe/go-empathy/pkg/prompt"
	"github.com/teslashibe/go-empathy/pkg/tier"
)

// Chain and tier names.
const (
	ChainName     = "text"
	TierPrimary   = "gemini"
	TierSecondary = "secondary"
)

// Request asks for a one-shot reply to a detected emotion.
type Request struct {
	Emotion     string
	Confidence  float64
	ContextNote string
	Transcript  string
}

// ConversationRequest asks for a reply that continues a conversation.
type ConversationRequest struct {
	Message string
	Emotion string
	History []prompt.Turn
}

// Reply is the generated text and the model that produced it.
type Reply struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Result is the outcome of a text chain run.
type Result = tier.Result[Reply]

// Config controls the text chain.
type Config struct {
	// PrimaryModels are tried in order against the primary provider.
	PrimaryModels []string

	// PrimaryTimeout bounds the whole primary cascade.
	PrimaryTimeout time.Duration

	// SecondaryEnabled switches the secondary tier on.
	SecondaryEnabled bool

	// SecondaryModel overrides the secondary provider's default model.
	SecondaryModel string

	// SecondaryTimeout bounds the secondary call.
	SecondaryTimeout time.Duration

	Temperature float64
	TopK        int
	TopP        float64
	MaxTokens   int
}

// DefaultConfig returns the default text chain configuration.
func DefaultConfig() Config {
	return Config{
		PrimaryModels:    []string{"gemini-2.0-flash", "gemini-1.5-flash"},
		PrimaryTimeout:   20 * time.Second,
		SecondaryTimeout: 15 * time.Second,
		Temperature:      0.8,
		TopK:             40,
		TopP:             0.95,
		MaxTokens:        256,
	}
}

// Option configures a Responder.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	registry     *emotions.Registry
	tierOpts     []tier.Option
	abortOnFatal bool
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry sets the emotion registry used for prompts and fallbacks.
func WithRegistry(r *emotions.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
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

// turn is the request context shared by every tier.
type turn struct {
	emotion string
	prompt  string
}

// Responder runs the text chain.
type Responder struct {
	orch    *tier.Orchestrator[turn, Reply]
	builder *prompt.Builder
	config  Config
	logger  *slog.Logger
}

// New builds a Responder. A nil primary makes the primary tier report
// unconfigured; a nil secondary behaves as disabled.
func New(cfg Config, primary, secondary inference.Provider, opts ...Option) (*Responder, error) {
	o := &options{
		logger:   slog.Default(),
		registry: emotions.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	r := &Responder{
		builder: prompt.NewBuilder(o.registry),
		config:  cfg,
		logger:  o.logger.With("component", "respond"),
	}

	var cascade *inference.Cascade
	if primary != nil {
		var err error
		cascade, err = inference.NewCascadeWithLogger(o.logger, primary, cfg.PrimaryModels)
		if err != nil {
			return nil, err
		}
	}

	registry := o.registry
	chain := tier.Chain[turn, Reply]{
		Name: ChainName,
		Tiers: []tier.Tier[turn, Reply]{
			{
				Name:      TierPrimary,
				Timeout:   cfg.PrimaryTimeout,
				Available: func() bool { return cascade != nil },
				Invoke: func(ctx context.Context, t turn) (Reply, error) {
					return r.chat(ctx, cascade, "", t)
				},
			},
			{
				Name:    TierSecondary,
				Timeout: cfg.SecondaryTimeout,
				Invoke: func(ctx context.Context, t turn) (Reply, error) {
					if !cfg.SecondaryEnabled || secondary == nil {
						return Reply{}, inference.ErrProviderDisabled
					}
					return r.chat(ctx, secondary, cfg.SecondaryModel, t)
				},
			},
		},
		Terminal: func(t turn) Reply {
			return Reply{Text: registry.Fallback(t.emotion), Model: tier.FallbackName}
		},
	}

	tierOpts := append([]tier.Option{tier.WithLogger(o.logger)}, o.tierOpts...)
	r.orch = tier.New(chain, tierOpts...)
	return r, nil
}

// Respond produces a reply to a detected emotion.
func (r *Responder) Respond(ctx context.Context, req Request) Result {
	p := r.builder.Build(req.Emotion, req.Confidence, req.ContextNote, req.Transcript)
	return r.orch.Run(ctx, turn{emotion: req.Emotion, prompt: p})
}

// Continue produces the next reply in a conversation.
func (r *Responder) Continue(ctx context.Context, req ConversationRequest) Result {
	p := r.builder.BuildConversational(req.Message, req.Emotion, req.History)
	return r.orch.Run(ctx, turn{emotion: req.Emotion, prompt: p})
}

func (r *Responder) chat(ctx context.Context, p inference.Provider, model string, t turn) (Reply, error) {
	resp, err := p.Chat(ctx, &inference.ChatRequest{
		Messages:    []inference.Message{inference.NewUserMessage(t.prompt)},
		Model:       model,
		MaxTokens:   r.config.MaxTokens,
		Temperature: r.config.Temperature,
		TopP:        r.config.TopP,
		TopK:        r.config.TopK,
	})
	if err != nil {
		return Reply{}, err
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return Reply{}, inference.WrapError(p.Name(), inference.ErrEmptyResponse)
	}
	return Reply{Text: text, Model: resp.Model}, nil
}
