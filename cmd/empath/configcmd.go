package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-empathy/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(configCheckCmd(), configShowCmd(), configSchemaCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and report which tiers are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s configuration valid\n", color.GreenString("✓"))

			tierLine := func(name string, ok bool, detail string) {
				mark := color.HiBlackString("-")
				if ok {
					mark = color.GreenString("✓")
				}
				fmt.Fprintf(w, "  %s %-10s %s\n", mark, name, color.HiBlackString("%s", detail))
			}

			fmt.Fprintln(w, color.CyanString("Text chain"))
			tierLine("gemini", !cfg.IsPlaceholder(cfg.LLM.Primary.APIKey), fmt.Sprintf("models=%v", cfg.LLM.Primary.Models))
			tierLine("secondary", cfg.LLM.Secondary.Enabled && !cfg.IsPlaceholder(cfg.LLM.Secondary.APIKey), cfg.LLM.Secondary.Model)
			tierLine("fallback", true, "canned reply")

			fmt.Fprintln(w, color.CyanString("Speech chain"))
			google := !cfg.IsPlaceholder(cfg.TTS.Google.APIKey) || cfg.TTS.Google.CredentialsFile != ""
			tierLine("google", google, cfg.TTS.Voice)
			tierLine("polly", cfg.TTS.Polly.Enabled, cfg.TTS.Polly.Region)
			tierLine("piper", cfg.TTS.Piper.Path != "", cfg.TTS.Piper.ModelPath)
			tierLine("fallback", true, "no audio")

			fmt.Fprintln(w, color.CyanString("Storage"))
			tierLine("sqlite", cfg.Storage.Enabled, cfg.Storage.Path)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}

func configSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON Schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
