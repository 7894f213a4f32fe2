package inference

import (
	"context"
	"log/slog"
)

// Cascade implements Provider by trying one provider with several model
// names in order. The first model that answers wins.
type Cascade struct {
	provider Provider
	models   []string
	logger   *slog.Logger
}

// NewCascade creates a model cascade. At least one model is required.
func NewCascade(p Provider, models []string) (*Cascade, error) {
	return NewCascadeWithLogger(slog.Default(), p, models)
}

// NewCascadeWithLogger creates a model cascade with a custom logger.
func NewCascadeWithLogger(logger *slog.Logger, p Provider, models []string) (*Cascade, error) {
	if p == nil {
		return nil, ErrProviderUnavailable
	}
	var names []string
	for _, m := range models {
		if m != "" {
			names = append(names, m)
		}
	}
	if len(names) == 0 {
		return nil, WrapError(p.Name(), ErrNoModel)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Cascade{
		provider: p,
		models:   names,
		logger:   logger.With("component", "inference.cascade", "provider", p.Name()),
	}, nil
}

// Name returns the wrapped provider's name.
func (c *Cascade) Name() string { return c.provider.Name() }

// Models returns the cascade's model names in order.
func (c *Cascade) Models() []string {
	out := make([]string, len(c.models))
	copy(out, c.models)
	return out
}

// Chat tries each model until one succeeds. req.Model is ignored.
func (c *Cascade) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	cerr := &CascadeError{}

	for i, model := range c.models {
		attempt := *req
		attempt.Model = model

		resp, err := c.provider.Chat(ctx, &attempt)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback model succeeded",
					"model", model,
					"model_index", i,
				)
			}
			if resp.Model == "" {
				resp.Model = model
			}
			return resp, nil
		}

		cerr.Models = append(cerr.Models, model)
		cerr.Errors = append(cerr.Errors, err)
		c.logger.Warn("model failed, trying next",
			"model", model,
			"model_index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			cerr.Errors = append(cerr.Errors, ctx.Err())
			break
		}
	}

	return nil, cerr
}

// Close closes the wrapped provider.
func (c *Cascade) Close() error {
	return c.provider.Close()
}

// Verify Cascade implements Provider at compile time.
var _ Provider = (*Cascade)(nil)
