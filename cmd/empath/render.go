package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/teslashibe/go-empathy/internal/app"
	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/store"
	"github.com/teslashibe/go-empathy/pkg/tier"
	"github.com/teslashibe/go-empathy/pkg/tts"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// providerLabel colors a provider name by whether it was a fallback.
func providerLabel(provider string, fallback bool) string {
	if fallback {
		return color.YellowString("%s (fallback)", provider)
	}
	return color.GreenString("%s", provider)
}

func printAttempts(w io.Writer, attempts []tier.Attempt) {
	for _, a := range attempts {
		mark := color.RedString("✗")
		if a.Outcome == tier.OutcomeSuccess {
			mark = color.GreenString("✓")
		} else if a.Outcome == tier.OutcomeSkipped {
			mark = color.HiBlackString("-")
		}
		line := fmt.Sprintf("  %s %-10s %-8s %s", mark, a.Tier, a.Outcome, a.Elapsed.Round(time.Millisecond))
		if a.Err != nil {
			line += color.HiBlackString("  %s: %v", a.Class, a.Err)
		}
		fmt.Fprintln(w, line)
	}
}

// speak runs the speech chain and writes audio to out when one was produced.
func speak(ctx context.Context, w io.Writer, a *app.App, req speech.Request, out string) speech.Result {
	res := a.Speech.Synthesize(ctx, req)

	fmt.Fprintf(w, "%s %s\n", color.CyanString("Speech:"), providerLabel(res.ProviderUsed, res.IsFallback))
	printAttempts(w, res.Attempts)

	if res.Payload == nil {
		fmt.Fprintln(w, color.YellowString("  no audio produced"))
		return res
	}

	if out == "" {
		out = "speech." + extension(res.Payload.Format.Encoding)
	}
	if err := os.WriteFile(out, res.Payload.Audio, 0o644); err != nil {
		fmt.Fprintf(w, "  %s write %s: %v\n", color.RedString("✗"), out, err)
		return res
	}
	fmt.Fprintf(w, "  %s %s (%d bytes, ~%.1fs)\n", color.GreenString("✓"), out, len(res.Payload.Audio), res.Payload.EstimatedDuration)
	return res
}

func extension(enc tts.Encoding) string {
	switch enc {
	case tts.EncodingWAV:
		return "wav"
	case tts.EncodingOggOpus:
		return "ogg"
	case tts.EncodingLinear16:
		return "pcm"
	default:
		return "mp3"
	}
}

// save persists r when a store is available. Failures are logged only.
func save(ctx context.Context, a *app.App, r store.Record) string {
	if a.Store == nil {
		return ""
	}
	id, err := a.Store.Save(ctx, &r)
	if err != nil {
		a.Logger.Warn("failed to save interaction", "type", r.Type, "error", err)
		return ""
	}
	return id
}
