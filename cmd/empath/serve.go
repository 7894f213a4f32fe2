package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Endpoints:
  POST /api/respond   reply to a detected emotion (optionally spoken)
  POST /api/chat      continue a conversation
  POST /api/speak     synthesize text
  GET  /api/history   stored interactions
  GET  /health        liveness
  GET  /metrics       Prometheus counters`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if port == 0 {
				port = a.Config.Server.Port
			}
			addr := fmt.Sprintf(":%d", port)
			srv := a.Server(version)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen(addr)
			}()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, color.CyanString("empath v%s", version))
			fmt.Fprintf(out, "   API:     http://localhost%s/api\n", addr)
			fmt.Fprintf(out, "   Health:  http://localhost%s/health\n", addr)
			fmt.Fprintf(out, "   Speech:  %v\n", a.Speech.Providers())

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.Logger.Info("shutting down")
			timeout := a.Config.Server.ShutdownTimeout.Std()
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}
