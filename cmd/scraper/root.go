package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-optcg/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "scraper [skip]",
		Short: "Mirror the One Piece card list into SQLite and a JSON snapshot",
		Long: `Scraper downloads every series of the Japanese card list and the matching
English translations, stores them in a local SQLite database, derives keyword
tags from the English effect text and exports the whole database as JSON.

Pass "skip" to reuse the existing database: no request is made and only the
tags and the snapshot are regenerated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.SkipDownload = len(args) == 1 && args[0] == "skip"

			logger, level := newLogger(cfg.Verbose)
			setDefaultLogger(logger, level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := &app{cfg: cfg, out: cmd.OutOrStdout()}
			return a.run(ctx)
		},
	}

	f := cmd.Flags()
	f.String("config", "", "TOML configuration file")
	f.String("db", defaults.DatabasePath, "SQLite database file")
	f.String("output", defaults.OutputFile, "JSON snapshot file")
	f.String("format", defaults.OutputFormat, "Output format: json or dual (json plus a cards CSV)")
	f.Duration("timeout", defaults.Timeout, "Per-request timeout")
	f.Int("max-retries", defaults.MaxRetries, "Retries per request after a transient failure")
	f.Duration("retry-backoff", defaults.RetryBackoff, "Initial retry backoff")
	f.Duration("retry-backoff-max", defaults.RetryBackoffMax, "Maximum retry backoff")
	f.Duration("delay", defaults.Delay, "Delay between requests")
	f.String("source-url", defaults.Source.BaseURL, "Card list URL of the source locale")
	f.String("translation-url", defaults.Translation.BaseURL, "Card list URL of the translation locale")
	f.String("metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	f.BoolP("verbose", "v", false, "Enable debug logging")

	return cmd
}

// loadConfig layers defaults, the TOML file, the environment and the flags
// the user set, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	cfg := config.DefaultConfig()
	if path, _ := f.GetString("config"); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	stringFlags := map[string]*string{
		"db":              &cfg.DatabasePath,
		"output":          &cfg.OutputFile,
		"format":          &cfg.OutputFormat,
		"source-url":      &cfg.Source.BaseURL,
		"translation-url": &cfg.Translation.BaseURL,
		"metrics-addr":    &cfg.MetricsAddr,
	}
	for name, dst := range stringFlags {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	durationFlags := map[string]*time.Duration{
		"timeout":           &cfg.Timeout,
		"retry-backoff":     &cfg.RetryBackoff,
		"retry-backoff-max": &cfg.RetryBackoffMax,
		"delay":             &cfg.Delay,
	}
	for name, dst := range durationFlags {
		if f.Changed(name) {
			*dst, _ = f.GetDuration(name)
		}
	}
	if f.Changed("max-retries") {
		cfg.MaxRetries, _ = f.GetInt("max-retries")
	}
	if f.Changed("verbose") {
		cfg.Verbose, _ = f.GetBool("verbose")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
