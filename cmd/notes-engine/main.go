// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the notes-engine CLI.
// It turns PDF and text documents into paginated study-note PDFs:
// extract text, generate notes with a generative AI service, lay the
// notes out on pages, and render them.
package main

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/notes-engine/internal/layout"
	"github.com/pdiddy/notes-engine/internal/secrets"
	"github.com/pdiddy/notes-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the notes-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "notes-engine",
	Short: "Turn lecture PDFs into paginated study notes",
	Long: `notes-engine turns source documents into study notes. Each input moves
through a pipeline: text extraction, note generation with a generative AI
service, page layout, and PDF rendering.

Use generate for the full pipeline, render and preview to work with an
existing notes file, and history to inspect past sessions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		logger, err := newLogger(level)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", slices.Sorted(maps.Keys(s)))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults()

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./notes-engine.yaml or ~/.config/notes-engine/notes-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
}

func setDefaults() {
	viper.SetDefault("http.timeout", 60*time.Second)
	viper.SetDefault("http.user_agent", "notes-engine/"+version)
	viper.SetDefault("extraction.backend", string(types.ExtractPdfcpu))
	viper.SetDefault("extraction.runtime", "")
	viper.SetDefault("generation.backend", string(types.GenerateClaude))
	viper.SetDefault("generation.model", "")
	viper.SetDefault("generation.api_key", "")
	viper.SetDefault("generation.max_retries", 3)
	viper.SetDefault("generation.project", "")
	viper.SetDefault("generation.location", "us-central1")
	viper.SetDefault("layout.page_size", "a4")
	viper.SetDefault("layout.margin", layout.DefaultMargin)
	viper.SetDefault("output.dir", "notes")
	viper.SetDefault("output.save_notes", false)
	viper.SetDefault("history.db_path", filepath.Join(".notes-engine", "history.db"))
	viper.SetDefault("concurrency", 2)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("notes-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "notes-engine"))
		}
	}

	viper.SetEnvPrefix("NOTES_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds the command's flags to config keys. Binding happens when
// the command runs so commands that share a key do not override each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("binding %s: no flag --%s", key, flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// loadConfig decodes the merged configuration.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// layoutFlags registers the page geometry flags shared by generate and render.
func layoutFlags(fs *pflag.FlagSet) {
	fs.String("page-size", "a4", "page size: a4, letter, or legal")
	fs.Float64("margin", layout.DefaultMargin, "page margin in points")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
