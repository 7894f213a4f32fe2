// Package config loads go-empathy configuration from a file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-empathy/pkg/tts"
)

// Config is the complete service configuration. It is immutable after Load.
type Config struct {
	LogLevel     string        `json:"log_level,omitempty" yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Placeholders []string      `json:"placeholders,omitempty" yaml:"placeholders"`
	AbortOnFatal bool          `json:"abort_on_fatal,omitempty" yaml:"abort_on_fatal"`
	Profiles     string        `json:"profiles,omitempty" yaml:"profiles"`
	Server       ServerConfig  `json:"server,omitempty" yaml:"server"`
	Storage      StorageConfig `json:"storage,omitempty" yaml:"storage"`
	LLM          LLMConfig     `json:"llm,omitempty" yaml:"llm"`
	TTS          TTSConfig     `json:"tts,omitempty" yaml:"tts"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `json:"port,omitempty" yaml:"port" jsonschema:"minimum=1,maximum=65535"`
	Debug           bool     `json:"debug,omitempty" yaml:"debug"`
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout"`
}

// StorageConfig configures interaction persistence.
type StorageConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path"`
}

// LLMConfig configures the text chain.
type LLMConfig struct {
	Primary     PrimaryLLM   `json:"primary,omitempty" yaml:"primary"`
	Secondary   SecondaryLLM `json:"secondary,omitempty" yaml:"secondary"`
	Temperature float64      `json:"temperature,omitempty" yaml:"temperature" jsonschema:"minimum=0,maximum=2"`
	TopK        int          `json:"top_k,omitempty" yaml:"top_k" jsonschema:"minimum=0"`
	TopP        float64      `json:"top_p,omitempty" yaml:"top_p" jsonschema:"minimum=0,maximum=1"`
	MaxTokens   int          `json:"max_tokens,omitempty" yaml:"max_tokens" jsonschema:"minimum=1"`
}

// PrimaryLLM is the Gemini model cascade.
type PrimaryLLM struct {
	APIKey  string   `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL string   `json:"base_url,omitempty" yaml:"base_url"`
	Models  []string `json:"models,omitempty" yaml:"models"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// SecondaryLLM is the OpenAI-compatible secondary provider.
type SecondaryLLM struct {
	Enabled bool     `json:"enabled,omitempty" yaml:"enabled"`
	APIKey  string   `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL string   `json:"base_url,omitempty" yaml:"base_url"`
	Model   string   `json:"model,omitempty" yaml:"model"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// TTSConfig configures the speech chain.
type TTSConfig struct {
	Voice    string    `json:"voice,omitempty" yaml:"voice"`
	Language string    `json:"language,omitempty" yaml:"language"`
	Google   GoogleTTS `json:"google,omitempty" yaml:"google"`
	Polly    PollyTTS  `json:"polly,omitempty" yaml:"polly"`
	Piper    PiperTTS  `json:"piper,omitempty" yaml:"piper"`
}

// GoogleTTS configures Google Cloud Text-to-Speech.
type GoogleTTS struct {
	APIKey          string   `json:"api_key,omitempty" yaml:"api_key"`
	CredentialsFile string   `json:"credentials_file,omitempty" yaml:"credentials_file"`
	Endpoint        string   `json:"endpoint,omitempty" yaml:"endpoint"`
	SpeakingRate    float64  `json:"speaking_rate,omitempty" yaml:"speaking_rate" jsonschema:"minimum=0.25,maximum=4"`
	Pitch           float64  `json:"pitch,omitempty" yaml:"pitch" jsonschema:"minimum=-20,maximum=20"`
	Encoding        string   `json:"encoding,omitempty" yaml:"encoding" jsonschema:"enum=mp3,enum=linear16,enum=ogg_opus"`
	Timeout         Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// PollyTTS configures Amazon Polly. Credentials come from the AWS chain.
type PollyTTS struct {
	Enabled bool     `json:"enabled,omitempty" yaml:"enabled"`
	Region  string   `json:"region,omitempty" yaml:"region"`
	Voice   string   `json:"voice,omitempty" yaml:"voice"`
	Engine  string   `json:"engine,omitempty" yaml:"engine" jsonschema:"enum=standard,enum=neural,enum=generative"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// PiperTTS configures the offline synthesizer process.
type PiperTTS struct {
	Path        string   `json:"path,omitempty" yaml:"path"`
	ModelPath   string   `json:"model_path,omitempty" yaml:"model_path"`
	ConfigPath  string   `json:"config_path,omitempty" yaml:"config_path"`
	Speaker     int      `json:"speaker,omitempty" yaml:"speaker" jsonschema:"minimum=0"`
	LengthScale float64  `json:"length_scale,omitempty" yaml:"length_scale" jsonschema:"minimum=0"`
	Language    string   `json:"language,omitempty" yaml:"language"`
	TempDir     string   `json:"temp_dir,omitempty" yaml:"temp_dir"`
	Timeout     Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:     "info",
		Placeholders: append([]string(nil), tts.DefaultPlaceholders...),
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "data/empath.db",
		},
		LLM: LLMConfig{
			Primary: PrimaryLLM{
				BaseURL: "https://generativelanguage.googleapis.com/v1beta",
				Models:  []string{"gemini-2.0-flash", "gemini-1.5-flash"},
				Timeout: Duration(20 * time.Second),
			},
			Secondary: SecondaryLLM{
				BaseURL: "https://api.groq.com/openai/v1",
				Model:   "llama-3.1-8b-instant",
				Timeout: Duration(15 * time.Second),
			},
			Temperature: 0.8,
			TopK:        40,
			TopP:        0.95,
			MaxTokens:   256,
		},
		TTS: TTSConfig{
			Language: "en-US",
			Google: GoogleTTS{
				SpeakingRate: 1.0,
				Encoding:     string(tts.EncodingMP3),
				Timeout:      Duration(10 * time.Second),
			},
			Polly: PollyTTS{
				Region:  "us-east-1",
				Voice:   "Joanna",
				Engine:  "neural",
				Timeout: Duration(10 * time.Second),
			},
			Piper: PiperTTS{
				LengthScale: 1.0,
				Language:    "en-US",
				Timeout:     Duration(30 * time.Second),
			},
		},
	}
}

// IsPlaceholder reports whether key is empty or one of the configured
// placeholder values.
func (c *Config) IsPlaceholder(key string) bool {
	return tts.IsPlaceholder(key, c.Placeholders)
}

// Validate checks cross-field constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Storage.Enabled && strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path required when storage is enabled"))
	}
	if len(c.LLM.Primary.Models) == 0 {
		errs = append(errs, errors.New("llm.primary.models must not be empty"))
	}
	if c.LLM.Secondary.Enabled && c.LLM.Secondary.Model == "" {
		errs = append(errs, errors.New("llm.secondary.model required when secondary is enabled"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f out of range", c.LLM.Temperature))
	}
	if c.TTS.Piper.Path != "" && c.TTS.Piper.ModelPath == "" {
		errs = append(errs, errors.New("tts.piper.model_path required when tts.piper.path is set"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Placeholders = append([]string(nil), c.Placeholders...)
	c.LLM.Primary.Models = append([]string(nil), c.LLM.Primary.Models...)
	c.LLM.Primary.APIKey = mask(c.LLM.Primary.APIKey)
	c.LLM.Secondary.APIKey = mask(c.LLM.Secondary.APIKey)
	c.TTS.Google.APIKey = mask(c.TTS.Google.APIKey)
	return c
}
