package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration file fails schema validation.
var ErrInvalid = errors.New("config: invalid document")

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Load builds the configuration: defaults, then the file at path (if any),
// then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeInto(&cfg, data, formatOf(path)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a configuration document in format ("yaml", "toml" or
// "json") over the defaults, without environment overrides.
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	if err := decodeInto(&cfg, data, format); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return strings.TrimPrefix(filepath.Ext(path), ".")
	}
}

// decodeInto normalizes the document to JSON, validates it against the
// schema, and decodes it over cfg.
func decodeInto(cfg *Config, data []byte, format string) error {
	var doc map[string]any
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if doc == nil {
		return nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize document: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables. Empty values are ignored.
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v, err := strconv.ParseBool(getenv(key)); err == nil {
			*dst = v
		}
	}

	set(&cfg.LogLevel, "EMPATH_LOG_LEVEL", "LOG_LEVEL")
	set(&cfg.Profiles, "EMPATH_PROFILES")
	set(&cfg.LLM.Primary.APIKey, "GEMINI_API_KEY")
	set(&cfg.LLM.Secondary.APIKey, "GROQ_API_KEY", "EMPATH_SECONDARY_API_KEY")
	set(&cfg.LLM.Secondary.BaseURL, "EMPATH_SECONDARY_BASE_URL")
	set(&cfg.LLM.Secondary.Model, "EMPATH_SECONDARY_MODEL")
	setBool(&cfg.LLM.Secondary.Enabled, "EMPATH_SECONDARY_ENABLED")
	set(&cfg.TTS.Google.APIKey, "GOOGLE_TTS_API_KEY")
	set(&cfg.TTS.Google.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setBool(&cfg.TTS.Polly.Enabled, "EMPATH_POLLY_ENABLED")
	set(&cfg.TTS.Polly.Region, "AWS_REGION")
	set(&cfg.TTS.Piper.Path, "PIPER_PATH")
	set(&cfg.TTS.Piper.ModelPath, "PIPER_MODEL")
	set(&cfg.Storage.Path, "EMPATH_DB_PATH")
	setBool(&cfg.Storage.Enabled, "EMPATH_STORAGE_ENABLED")
	setBool(&cfg.Server.Debug, "EMPATH_DEBUG")

	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := getenv("EMPATH_PRIMARY_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) > 0 {
			cfg.LLM.Primary.Models = models
		}
	}
}
