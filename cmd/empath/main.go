// Package main provides the empath CLI entrypoint.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-empathy/internal/app"
	"github.com/teslashibe/go-empathy/internal/config"
	"github.com/teslashibe/go-empathy/internal/log"
)

var version = "0.1.0"

var (
	cfgPath  string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "empath",
		Short: "Empathetic responses with tiered provider fallback",
		Long: `empath answers a detected emotion with a short supportive reply and,
optionally, speaks it. Every provider has a fallback, so a reply is always
produced:

  text:   Gemini model cascade -> secondary LLM -> canned sentence
  speech: Google Cloud TTS -> Amazon Polly -> Piper (offline) -> no audio

Configuration is read from --config (yaml, toml or json) and the environment
(GEMINI_API_KEY, GROQ_API_KEY, GOOGLE_TTS_API_KEY, PIPER_PATH, ...).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("EMPATH_CONFIG"), "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		serveCmd(),
		respondCmd(),
		chatCmd(),
		speakCmd(),
		historyCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies the --log-level flag.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newLogger logs to stderr so command output stays on stdout.
func newLogger(level string) *slog.Logger {
	logger := log.New(os.Stderr, level).With("service", "empath")
	slog.SetDefault(logger)
	return logger
}

// loadApp loads configuration and builds the application.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Build(cmd.Context(), cfg, newLogger(cfg.LogLevel))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "empath", version)
		},
	}
}
