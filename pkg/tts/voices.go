package tts

import "strings"

// GoogleVoices maps language codes to a default Google Cloud voice.
// Use ResolveGoogleVoice to pick a voice for a request.
var GoogleVoices = map[string]string{
	"en-US": "en-US-Neural2-F", // American female, warm
	"en-GB": "en-GB-Neural2-A", // British female
	"es-ES": "es-ES-Neural2-A",
	"fr-FR": "fr-FR-Neural2-A",
	"de-DE": "de-DE-Neural2-A",
	"it-IT": "it-IT-Neural2-A",
	"pt-BR": "pt-BR-Neural2-A",
	"ja-JP": "ja-JP-Neural2-B",
	"hi-IN": "hi-IN-Neural2-A",
}

// DefaultGoogleVoice is used when no language matches.
const DefaultGoogleVoice = "en-US-Neural2-F"

// ResolveGoogleVoice returns voice if set, else the preset for language.
// An empty result lets the API choose from the language alone.
func ResolveGoogleVoice(voice, language string) string {
	if voice != "" {
		return voice
	}
	return GoogleVoices[language]
}

// LanguageFromVoice extracts the language code from a Google voice name
// such as "en-GB-Neural2-A". It returns "" when the name has no prefix.
func LanguageFromVoice(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}

// SameLanguage compares the primary subtags of two language codes,
// so "en-US" and "en-GB" match.
func SameLanguage(a, b string) bool {
	pa, _, _ := strings.Cut(strings.ToLower(a), "-")
	pb, _, _ := strings.Cut(strings.ToLower(b), "-")
	return pa == pb
}
