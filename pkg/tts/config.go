package tts

import (
	"log/slog"
	"strings"
	"time"
)

// DefaultPlaceholders are credential values that count as "not configured".
var DefaultPlaceholders = []string{
	"your-api-key",
	"your_api_key",
	"your_api_key_here",
	"your-google-api-key",
	"your_google_tts_api_key",
	"changeme",
	"xxx",
}

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Credentials
	APIKey          string
	CredentialsFile string // Google service-account JSON
	Placeholders    []string

	// Endpoint overrides the provider's API endpoint.
	Endpoint string

	// Voice configuration
	Voice        string
	Language     string
	SpeakingRate float64
	Pitch        float64

	// Audio output
	Encoding   Encoding
	SampleRate int

	// AWS
	Region string
	Engine string

	// Timeout bounds a single synthesis call.
	Timeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithCredentialsFile sets a service-account credentials file.
func WithCredentialsFile(path string) Option {
	return func(c *Config) {
		c.CredentialsFile = path
	}
}

// WithPlaceholders replaces the placeholder credential list.
func WithPlaceholders(values []string) Option {
	return func(c *Config) {
		c.Placeholders = values
	}
}

// WithEndpoint overrides the default API endpoint.
func WithEndpoint(url string) Option {
	return func(c *Config) {
		c.Endpoint = url
	}
}

// WithVoice sets the default voice name.
func WithVoice(voice string) Option {
	return func(c *Config) {
		c.Voice = voice
	}
}

// WithLanguage sets the default language code (BCP-47).
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithSpeakingRate sets the speaking rate multiplier (1.0 is normal).
func WithSpeakingRate(rate float64) Option {
	return func(c *Config) {
		c.SpeakingRate = rate
	}
}

// WithPitch sets the pitch offset in semitones.
func WithPitch(pitch float64) Option {
	return func(c *Config) {
		c.Pitch = pitch
	}
}

// WithEncoding sets the audio output encoding.
func WithEncoding(enc Encoding) Option {
	return func(c *Config) {
		c.Encoding = enc
	}
}

// WithSampleRate sets the output sample rate in Hz.
func WithSampleRate(hz int) Option {
	return func(c *Config) {
		c.SampleRate = hz
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithEngine sets the AWS Polly engine (standard, neural, generative).
func WithEngine(engine string) Option {
	return func(c *Config) {
		c.Engine = engine
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Placeholders: DefaultPlaceholders,
		Language:     "en-US",
		SpeakingRate: 1.0,
		Encoding:     EncodingMP3,
		Timeout:      10 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// HasCredentials reports whether a usable credential is set.
func (c *Config) HasCredentials() bool {
	if c.CredentialsFile != "" {
		return true
	}
	return !IsPlaceholder(c.APIKey, c.Placeholders)
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasCredentials() {
		return ErrNoAPIKey
	}
	return nil
}

// IsPlaceholder reports whether key is empty or one of the placeholder
// values, compared case-insensitively after trimming.
func IsPlaceholder(key string, placeholders []string) bool {
	k := strings.TrimSpace(key)
	if k == "" {
		return true
	}
	for _, p := range placeholders {
		if strings.EqualFold(k, strings.TrimSpace(p)) {
			return true
		}
	}
	return false
}
