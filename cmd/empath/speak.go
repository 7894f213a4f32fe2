package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/store"
)

func speakCmd() *cobra.Command {
	var (
		req  speech.Request
		out  string
		user string
	)

	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Synthesize speech through the provider chain",
		Long: `Synthesize text with the first speech provider that succeeds.

Examples:
  empath speak "I'm here for you"
  empath speak --voice en-GB-Neural2-A --out hello.mp3 "Hello there"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				req.Text = strings.Join(args, " ")
			}
			if strings.TrimSpace(req.Text) == "" {
				return errors.New("no text given")
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			res := speak(ctx, cmd.OutOrStdout(), a, req, out)
			save(ctx, a, store.Record{
				UserID:       user,
				Type:         store.TypeSpeak,
				Input:        req.Text,
				ProviderUsed: res.ProviderUsed,
				IsFallback:   res.IsFallback,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Text, "text", "", "text to speak")
	cmd.Flags().StringVar(&req.Voice, "voice", "", "voice name")
	cmd.Flags().StringVar(&req.Language, "language", "", "language code, e.g. en-US")
	cmd.Flags().StringVarP(&out, "out", "o", "", "audio output file (default speech.<ext>)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id recorded with the interaction")
	return cmd
}
