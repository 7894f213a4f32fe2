package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-empathy/pkg/store"
)

func historyCmd() *cobra.Command {
	var (
		f      store.Filter
		since  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored interactions",
		Long: `List stored interactions, newest first.

Examples:
  empath history --user alice --limit 10
  empath history --type speak --since 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Store == nil {
				return errors.New("storage is disabled or unavailable")
			}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}

			records, err := a.Store.Query(cmd.Context(), f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				if records == nil {
					records = []store.Record{}
				}
				return printJSON(w, records)
			}

			if len(records) == 0 {
				fmt.Fprintln(w, color.HiBlackString("no interactions"))
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(w, "%s %-7s %s %s\n",
					color.HiBlackString("%s", r.Timestamp.Local().Format("2006-01-02 15:04:05")),
					r.Type,
					providerLabel(r.ProviderUsed, r.IsFallback),
					color.HiBlackString("%s", r.ID))
				if r.Emotion != "" {
					fmt.Fprintf(w, "  emotion: %s", r.Emotion)
					if r.Confidence > 0 {
						fmt.Fprintf(w, " (%.0f%%)", r.Confidence*100)
					}
					fmt.Fprintln(w)
				}
				if r.Input != "" {
					fmt.Fprintf(w, "  input:   %s\n", r.Input)
				}
				if r.Response != "" {
					fmt.Fprintf(w, "  reply:   %s\n", r.Response)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.UserID, "user", "u", "", "filter by user id")
	cmd.Flags().StringVarP(&f.Type, "type", "t", "", "filter by type: respond, chat, speak")
	cmd.Flags().StringVarP(&f.Emotion, "emotion", "e", "", "filter by emotion")
	cmd.Flags().DurationVar(&since, "since", 0, "only interactions newer than this")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", store.DefaultLimit, "maximum records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
