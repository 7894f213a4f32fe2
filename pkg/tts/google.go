package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

const providerGoogle = "google"

// Google implements Provider for Google Cloud Text-to-Speech.
//
// A Google built without usable credentials is still returned so it can sit
// in a chain; Configured reports false and the chain skips it.
type Google struct {
	config  *Config
	svc     *texttospeech.Service
	logger  *slog.Logger
	enabled bool
}

// NewGoogle creates a Google Cloud TTS provider. Credentials come from
// WithCredentialsFile (service account) or WithAPIKey.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	g := &Google{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.google"),
	}

	if !cfg.HasCredentials() {
		g.logger.Info("no credentials configured, provider disabled")
		return g, nil
	}

	clientOpts, err := googleClientOptions(ctx, cfg)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	g.svc = svc
	g.enabled = true
	return g, nil
}

func googleClientOptions(ctx context.Context, cfg *Config) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		return append(opts, option.WithCredentials(creds)), nil
	}

	return append(opts, option.WithAPIKey(cfg.APIKey)), nil
}

// Name returns "google".
func (g *Google) Name() string { return providerGoogle }

// Configured reports whether usable credentials were supplied.
func (g *Google) Configured() bool { return g.enabled }

// Synthesize converts text to audio.
func (g *Google) Synthesize(ctx context.Context, req *SynthesisRequest) (*AudioResult, error) {
	if !g.enabled {
		return nil, WrapError(providerGoogle, ErrNoAPIKey)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	start := time.Now()

	language := req.Language
	if language == "" {
		language = g.config.Language
	}
	voice := req.Voice
	if voice == "" && (req.Language == "" || SameLanguage(LanguageFromVoice(g.config.Voice), language)) {
		voice = g.config.Voice
	}
	voice = ResolveGoogleVoice(voice, language)
	if v := LanguageFromVoice(voice); v != "" && !SameLanguage(v, language) {
		language = v
	}

	enc := g.config.Encoding
	sampleRate := g.config.SampleRate
	if sampleRate == 0 {
		sampleRate = SampleRateFromEncoding(enc)
	}

	call := g.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: language,
			Name:         voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   googleEncoding(enc),
			SampleRateHertz: int64(sampleRate),
			SpeakingRate:    g.config.SpeakingRate,
			Pitch:           g.config.Pitch,
		},
	}).Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, g.mapError(err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyAudio)
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", voice,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   enc,
			SampleRate: sampleRate,
			Channels:   1,
			BitDepth:   16,
		},
		EstimatedDuration: EstimateDuration(req.Text),
		CharCount:         len(req.Text),
		LatencyMs:         latency,
		Provider:          providerGoogle,
	}, nil
}

// Close releases resources.
func (g *Google) Close() error {
	return nil
}

func (g *Google) mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code := ""
		if len(gerr.Errors) > 0 {
			code = gerr.Errors[0].Reason
		}
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Code:       code,
			Provider:   providerGoogle,
		}
	}
	return WrapError(providerGoogle, err)
}

func googleEncoding(enc Encoding) string {
	switch enc {
	case EncodingLinear16, EncodingWAV:
		return "LINEAR16"
	case EncodingOggOpus:
		return "OGG_OPUS"
	default:
		return "MP3"
	}
}

// Verify Google implements Provider at compile time.
var (
	_ Provider     = (*Google)(nil)
	_ Configurable = (*Google)(nil)
)
