// Package app wires configuration into the running components.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teslashibe/go-empathy/internal/config"
	"github.com/teslashibe/go-empathy/pkg/emotions"
	"github.com/teslashibe/go-empathy/pkg/inference"
	"github.com/teslashibe/go-empathy/pkg/metrics"
	"github.com/teslashibe/go-empathy/pkg/respond"
	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/store"
	"github.com/teslashibe/go-empathy/pkg/tts"
	"github.com/teslashibe/go-empathy/pkg/web"
)

// App holds every constructed component. Clients are created once here
// and shared by all requests.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Responder *respond.Responder
	Speech    *speech.Synthesizer
	Store     store.Store
	Metrics   *metrics.Collector

	providers []inference.Provider
}

// Build constructs the application from cfg.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(),
	}

	if err := a.buildResponder(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildSpeech(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openStore()

	return a, nil
}

func (a *App) buildResponder() error {
	cfg := a.Config
	llm := cfg.LLM

	var primary inference.Provider
	if cfg.IsPlaceholder(llm.Primary.APIKey) {
		a.Logger.Warn("gemini API key not configured, primary tier disabled")
	} else {
		g, err := inference.NewGemini(
			inference.WithAPIKey(llm.Primary.APIKey),
			inference.WithBaseURL(llm.Primary.BaseURL),
			inference.WithModel(llm.Primary.Models[0]),
			inference.WithTimeout(llm.Primary.Timeout.Std()),
			inference.WithLogger(a.Logger),
		)
		if err != nil {
			return err
		}
		primary = g
		a.providers = append(a.providers, g)
	}

	var secondary inference.Provider
	switch {
	case !llm.Secondary.Enabled:
	case cfg.IsPlaceholder(llm.Secondary.APIKey):
		a.Logger.Warn("secondary LLM enabled without API key, tier disabled")
	default:
		c, err := inference.NewClient(
			inference.WithAPIKey(llm.Secondary.APIKey),
			inference.WithBaseURL(llm.Secondary.BaseURL),
			inference.WithModel(llm.Secondary.Model),
			inference.WithTimeout(llm.Secondary.Timeout.Std()),
			inference.WithLogger(a.Logger),
		)
		if err != nil {
			return err
		}
		secondary = c
		a.providers = append(a.providers, c)
	}

	opts := []respond.Option{
		respond.WithLogger(a.Logger),
		respond.WithObserver(a.Metrics),
	}
	if cfg.Profiles != "" {
		profiles, err := emotions.LoadFromFile(cfg.Profiles)
		if err != nil {
			return err
		}
		reg, err := emotions.NewRegistry(profiles...)
		if err != nil {
			return err
		}
		opts = append(opts, respond.WithRegistry(reg))
	}
	if cfg.AbortOnFatal {
		opts = append(opts, respond.WithAbortOnFatal())
	}

	r, err := respond.New(respond.Config{
		PrimaryModels:    llm.Primary.Models,
		PrimaryTimeout:   llm.Primary.Timeout.Std(),
		SecondaryEnabled: secondary != nil,
		SecondaryModel:   llm.Secondary.Model,
		SecondaryTimeout: llm.Secondary.Timeout.Std(),
		Temperature:      llm.Temperature,
		TopK:             llm.TopK,
		TopP:             llm.TopP,
		MaxTokens:        llm.MaxTokens,
	}, primary, secondary, opts...)
	if err != nil {
		return err
	}
	a.Responder = r
	return nil
}

func (a *App) buildSpeech(ctx context.Context) error {
	cfg := a.Config
	t := cfg.TTS

	google, err := tts.NewGoogle(ctx,
		tts.WithAPIKey(t.Google.APIKey),
		tts.WithCredentialsFile(t.Google.CredentialsFile),
		tts.WithPlaceholders(cfg.Placeholders),
		tts.WithEndpoint(t.Google.Endpoint),
		tts.WithVoice(t.Voice),
		tts.WithLanguage(t.Language),
		tts.WithSpeakingRate(t.Google.SpeakingRate),
		tts.WithPitch(t.Google.Pitch),
		tts.WithEncoding(tts.Encoding(t.Google.Encoding)),
		tts.WithTimeout(t.Google.Timeout.Std()),
		tts.WithLogger(a.Logger),
	)
	if err != nil {
		return err
	}
	providers := []tts.Provider{google}
	opts := []speech.Option{
		speech.WithLogger(a.Logger),
		speech.WithObserver(a.Metrics),
		speech.WithTierTimeout(google.Name(), t.Google.Timeout.Std()),
	}

	if t.Polly.Enabled {
		p := tts.NewPolly(
			tts.WithRegion(t.Polly.Region),
			tts.WithVoice(t.Polly.Voice),
			tts.WithEngine(t.Polly.Engine),
			tts.WithTimeout(t.Polly.Timeout.Std()),
			tts.WithLogger(a.Logger),
		)
		providers = append(providers, p)
		opts = append(opts, speech.WithTierTimeout(p.Name(), t.Polly.Timeout.Std()))
	}

	var runner tts.Runner
	if t.Piper.Path != "" {
		runner = &tts.ExecRunner{
			Path:    t.Piper.Path,
			Args:    tts.PiperArgs(t.Piper.ModelPath, t.Piper.ConfigPath, t.Piper.Speaker, t.Piper.LengthScale),
			TempDir: t.Piper.TempDir,
		}
	}
	piper := tts.NewPiper(runner,
		tts.WithLanguage(t.Piper.Language),
		tts.WithTimeout(t.Piper.Timeout.Std()),
		tts.WithLogger(a.Logger),
	)
	providers = append(providers, piper)
	opts = append(opts, speech.WithTierTimeout(piper.Name(), t.Piper.Timeout.Std()))

	if cfg.AbortOnFatal {
		opts = append(opts, speech.WithAbortOnFatal())
	}
	a.Speech = speech.New(providers, opts...)
	return nil
}

// openStore opens the database. A failure disables persistence; responses
// are still served.
func (a *App) openStore() {
	if !a.Config.Storage.Enabled {
		return
	}
	s, err := store.OpenSQLite(a.Config.Storage.Path)
	if err != nil {
		a.Logger.Error("storage unavailable, continuing without persistence",
			"path", a.Config.Storage.Path,
			"error", err,
		)
		return
	}
	a.Store = s
}

// Server builds the HTTP server over the app's components.
func (a *App) Server(version string) *web.Server {
	return web.NewServer(web.Config{
		Version:   version,
		Debug:     a.Config.Server.Debug,
		Responder: a.Responder,
		Speaker:   a.Speech,
		Store:     a.Store,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
}

// Close releases every resource.
func (a *App) Close() error {
	var errs []error
	for _, p := range a.providers {
		errs = append(errs, p.Close())
	}
	if a.Speech != nil {
		errs = append(errs, a.Speech.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
