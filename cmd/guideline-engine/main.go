// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the guideline-engine CLI.
// Implements: chart, reference and evidence extraction, merge, config
//
//	detection, results store, report and HTTP API (CLI surface).
//
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/guideline-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns override when set, or the loaded secret for key.
func secretDefault(key, override string) string {
	return secrets.Value(loadedSecrets, key, override)
}

// rootCmd is the base command for the guideline-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "guideline-engine",
	Short: "Extract recommendation charts and evidence from clinical guidelines",
	Long: `guideline-engine turns converted clinical practice guidelines into
structured data. It segments recommendation charts (class, level of evidence,
text, citations), extracts reference lists, reconstructs data-supplement
evidence tables, and joins recommendations to evidence by PubMed identifier.

Inputs are pdftohtml -xml conversions (or PDFs). Each stage is a subcommand;
parse runs them all for one document or a manifest of documents.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", newLogger())
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./guideline-engine.yaml or ~/.config/guideline-engine/guideline-engine.yaml)")
	pf.Int("workers", 4, "documents processed concurrently")
	pf.String("output-dir", "output", "directory receiving one artifact subdirectory per document")
	pf.String("store-dir", "store", "directory containing guidelines.db and exports")
	pf.Bool("verbose", false, "log per-row diagnostics to stderr")

	viper.BindPFlag("workers", pf.Lookup("workers"))
	viper.BindPFlag("output_dir", pf.Lookup("output-dir"))
	viper.BindPFlag("store_dir", pf.Lookup("store-dir"))
	viper.BindPFlag("verbose", pf.Lookup("verbose"))

	viper.SetDefault("pubmed.timeout", 30*time.Second)
	viper.SetDefault("pubmed.max_ids", 3)
	viper.SetDefault("pubmed.request_delay", 350*time.Millisecond)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("guideline-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "guideline-engine"))
		}
	}

	viper.SetEnvPrefix("GUIDELINE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns the stderr logger. Diagnostics are logged at Warn, so
// without --verbose only errors are shown.
func newLogger() *slog.Logger {
	level := slog.LevelError
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
