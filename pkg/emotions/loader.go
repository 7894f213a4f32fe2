package emotions

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/profiles.yaml
var embeddedProfiles embed.FS

// LoadEmbedded parses the built-in profile table.
func LoadEmbedded() ([]Profile, error) {
	data, err := embeddedProfiles.ReadFile("data/profiles.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded profiles: %w", err)
	}
	return parseProfiles(data)
}

// LoadFromFile parses a profile table from disk. Its entries replace the
// built-in ones emotion by emotion.
func LoadFromFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return parseProfiles(data)
}

func parseProfiles(data []byte) ([]Profile, error) {
	var raw profileFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	for _, p := range raw.Profiles {
		if _, ok := Parse(string(p.Emotion)); !ok {
			return nil, fmt.Errorf("%w: unknown emotion %q", ErrInvalidProfile, p.Emotion)
		}
		if p.Guidance == "" || p.Fallback == "" {
			return nil, fmt.Errorf("%w: %s needs guidance and fallback", ErrInvalidProfile, p.Emotion)
		}
	}

	return raw.Profiles, nil
}
