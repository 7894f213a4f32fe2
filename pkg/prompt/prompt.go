// Package prompt builds the text instructions sent to language models.
//
// Builders are pure: the same inputs always produce the same prompt.
package prompt

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/teslashibe/go-empathy/pkg/emotions"
)

const (
	header = "You are a warm, empathetic companion. Reply directly to the user in a natural, caring voice."

	closing = "Write a 2-3 sentence empathetic reply. Do not mention emotion detection, confidence scores, or that you are an AI."
)

// Turn is one prior message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Builder renders prompts using an emotion profile registry.
type Builder struct {
	registry *emotions.Registry
}

// NewBuilder creates a builder. A nil registry uses emotions.Default().
func NewBuilder(registry *emotions.Registry) *Builder {
	if registry == nil {
		registry = emotions.Default()
	}
	return &Builder{registry: registry}
}

// Build renders a single-turn prompt. Empty transcript and context lines
// are omitted. Unknown emotions use the neutral guidance.
func (b *Builder) Build(emotion string, confidence float64, contextNote, transcript string) string {
	profile := b.registry.Lookup(emotion)

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	writeGuidance(&sb, profile)
	fmt.Fprintf(&sb, "Detected emotion: %s (confidence %d%%)\n", profile.Emotion, percent(confidence))
	if transcript != "" {
		fmt.Fprintf(&sb, "What the user said: %q\n", transcript)
	}
	if contextNote != "" {
		fmt.Fprintf(&sb, "Context: %s\n", contextNote)
	}
	sb.WriteString(closing)
	return sb.String()
}

// BuildConversational renders a multi-turn prompt. History is written in
// order as "<Role>: <content>" lines followed by the current message.
func (b *Builder) BuildConversational(message, emotion string, history []Turn) string {
	profile := b.registry.Lookup(emotion)

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	writeGuidance(&sb, profile)
	fmt.Fprintf(&sb, "Detected emotion: %s\n", profile.Emotion)

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "%s: %s\n", roleLabel(turn.Role), turn.Content)
		}
	}
	fmt.Fprintf(&sb, "User: %s\n", message)
	sb.WriteString(closing)
	return sb.String()
}

// Build renders a single-turn prompt with the default registry.
func Build(emotion string, confidence float64, contextNote, transcript string) string {
	return NewBuilder(nil).Build(emotion, confidence, contextNote, transcript)
}

// BuildConversational renders a multi-turn prompt with the default registry.
func BuildConversational(message, emotion string, history []Turn) string {
	return NewBuilder(nil).BuildConversational(message, emotion, history)
}

func writeGuidance(sb *strings.Builder, profile emotions.Profile) {
	fmt.Fprintf(sb, "Guidance: %s\n", profile.Guidance)
	if profile.Tone != "" {
		fmt.Fprintf(sb, "Tone: %s\n", profile.Tone)
	}
}

func roleLabel(role string) string {
	switch strings.ToLower(role) {
	case "", "user":
		return "User"
	case "assistant", "model", "bot":
		return "Assistant"
	default:
		first, size := utf8.DecodeRuneInString(role)
		return string(unicode.ToUpper(first)) + strings.ToLower(role[size:])
	}
}

// percent clamps confidence to [0,1] and converts it to a whole percentage.
func percent(confidence float64) int {
	if math.IsNaN(confidence) || confidence < 0 {
		return 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return int(math.Round(confidence * 100))
}
