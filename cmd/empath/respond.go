package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-empathy/pkg/prompt"
	"github.com/teslashibe/go-empathy/pkg/respond"
	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/store"
)

func respondCmd() *cobra.Command {
	var (
		req      respond.Request
		user     string
		doSpeak  bool
		out      string
		voice    string
		language string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Reply to a detected emotion",
		Long: `Generate an empathetic reply for a detected emotion.

Examples:
  empath respond --emotion sad --confidence 0.8
  empath respond --emotion angry --transcript "nobody listens to me" --speak --out reply.mp3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			res := a.Responder.Respond(ctx, req)
			id := save(ctx, a, store.Record{
				UserID:       user,
				Type:         store.TypeRespond,
				Input:        req.Transcript,
				Emotion:      req.Emotion,
				Confidence:   req.Confidence,
				Response:     res.Payload.Text,
				ProviderUsed: res.ProviderUsed,
				IsFallback:   res.IsFallback,
			})

			w := cmd.OutOrStdout()
			if asJSON {
				return printJSON(w, map[string]any{
					"response":      res.Payload.Text,
					"model":         res.Payload.Model,
					"provider_used": res.ProviderUsed,
					"is_fallback":   res.IsFallback,
					"elapsed_ms":    res.Elapsed.Milliseconds(),
					"record_id":     id,
				})
			}

			fmt.Fprintln(w, color.New(color.Bold).Sprint(res.Payload.Text))
			fmt.Fprintf(w, "%s %s  model=%s  %s\n", color.CyanString("Text:"),
				providerLabel(res.ProviderUsed, res.IsFallback), res.Payload.Model, res.Elapsed.Round(time.Millisecond))
			printAttempts(w, res.Attempts)
			if id != "" {
				fmt.Fprintf(w, "%s %s\n", color.CyanString("Saved:"), id)
			}

			if doSpeak {
				speak(ctx, w, a, speech.Request{Text: res.Payload.Text, Voice: voice, Language: language}, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Emotion, "emotion", "e", "neutral", "detected emotion")
	cmd.Flags().Float64Var(&req.Confidence, "confidence", 0, "detection confidence (0-1)")
	cmd.Flags().StringVarP(&req.Transcript, "transcript", "t", "", "what the user said")
	cmd.Flags().StringVar(&req.ContextNote, "context", "", "extra situational context")
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id recorded with the interaction")
	cmd.Flags().BoolVarP(&doSpeak, "speak", "s", false, "also synthesize the reply")
	cmd.Flags().StringVarP(&out, "out", "o", "", "audio output file (default speech.<ext>)")
	cmd.Flags().StringVar(&voice, "voice", "", "voice name")
	cmd.Flags().StringVar(&language, "language", "", "language code, e.g. en-US")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func chatCmd() *cobra.Command {
	var (
		req     respond.ConversationRequest
		history []string
		user    string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Continue a conversation",
		Long: `Reply to a message in an ongoing conversation.

History turns are given as role:content and kept in order.

Example:
  empath chat --emotion sad --history "user:hi" --history "assistant:Hello! How are you?" "rough day"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := parseTurns(history)
			if err != nil {
				return err
			}
			req.History = turns
			req.Message = strings.Join(args, " ")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			res := a.Responder.Continue(ctx, req)
			save(ctx, a, store.Record{
				UserID:       user,
				Type:         store.TypeChat,
				Input:        req.Message,
				Emotion:      req.Emotion,
				Response:     res.Payload.Text,
				ProviderUsed: res.ProviderUsed,
				IsFallback:   res.IsFallback,
			})

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, color.New(color.Bold).Sprint(res.Payload.Text))
			fmt.Fprintf(w, "%s %s\n", color.CyanString("Text:"), providerLabel(res.ProviderUsed, res.IsFallback))
			printAttempts(w, res.Attempts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Emotion, "emotion", "e", "neutral", "current emotion")
	cmd.Flags().StringArrayVar(&history, "history", nil, "prior turn as role:content (repeatable)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id recorded with the interaction")
	return cmd
}

func parseTurns(raw []string) ([]prompt.Turn, error) {
	turns := make([]prompt.Turn, 0, len(raw))
	for _, r := range raw {
		role, content, ok := strings.Cut(r, ":")
		role = strings.ToLower(strings.TrimSpace(role))
		if !ok || (role != "user" && role != "assistant") {
			return nil, fmt.Errorf("invalid history turn %q: want user:... or assistant:...", r)
		}
		turns = append(turns, prompt.Turn{Role: role, Content: strings.TrimSpace(content)})
	}
	return turns, nil
}
