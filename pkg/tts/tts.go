// Package tts provides a unified interface for text-to-speech providers.
//
// Three backends are included: Google Cloud Text-to-Speech, AWS Polly, and
// Piper, an offline synthesizer run as an external process. All providers
// implement the Provider interface so callers can order them into a
// fallback chain without knowing which one answered.
//
// Example usage:
//
//	provider, _ := tts.NewGoogle(ctx,
//	    tts.WithAPIKey(os.Getenv("GOOGLE_TTS_API_KEY")),
//	    tts.WithVoice("en-US-Neural2-F"),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, &tts.SynthesisRequest{Text: "Hello world"})
//	// result.Audio contains MP3 bytes; result.Base64() is ready for JSON
package tts

import (
	"context"
	"encoding/base64"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, req *SynthesisRequest) (*AudioResult, error)

	// Name identifies the provider in logs and results.
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// Configurable is implemented by providers that can be constructed without
// credentials. An unconfigured provider is skipped, not attempted.
type Configurable interface {
	Configured() bool
}

// SynthesisRequest is the input to Synthesize. Voice and Language are hints;
// empty values use the provider's configured defaults.
type SynthesisRequest struct {
	Text     string
	Voice    string
	Language string
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio bytes.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// EstimatedDuration is the expected playback length in seconds,
	// derived from the word count of the input text.
	EstimatedDuration float64

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis time in milliseconds.
	LatencyMs int64

	// Provider names the backend that produced the audio.
	Provider string
}

// Base64 returns the audio as standard base64.
func (r *AudioResult) Base64() string {
	if r == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.Audio)
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the container or codec.
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 22050).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingMP3      Encoding = "mp3"
	EncodingLinear16 Encoding = "linear16" // headerless PCM16
	EncodingOggOpus  Encoding = "ogg_opus"
	EncodingWAV      Encoding = "wav"
)

// MIMEType returns the media type for an encoding.
func (e Encoding) MIMEType() string {
	switch e {
	case EncodingMP3:
		return "audio/mpeg"
	case EncodingOggOpus:
		return "audio/ogg"
	case EncodingWAV:
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// SampleRateFromEncoding returns the default sample rate for an encoding.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingWAV:
		return 22050
	case EncodingOggOpus:
		return 48000
	default:
		return 24000
	}
}
