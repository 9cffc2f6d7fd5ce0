// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/notes-engine/internal/history"
	"github.com/pdiddy/notes-engine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List or inspect past pipeline sessions",
	Long: `History reads the session database written by generate. Without
arguments it lists the most recent sessions; with a session ID it prints
that session, including the generated notes, as YAML.

Use --export to write the listed sessions as YAML.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyFlagKeys = map[string]string{
	"history-db": "history.db_path",
}

func init() {
	historyCmd.Flags().String("history-db", "", "session history database (empty keeps the configured path)")
	historyCmd.Flags().Int("limit", 20, "maximum number of sessions to list")
	historyCmd.Flags().Bool("export", false, "write the listed sessions as YAML")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, historyFlagKeys); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.DBPath == "" {
		return fmt.Errorf("history is disabled: set history.db_path or --history-db")
	}

	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		rec, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if export, _ := cmd.Flags().GetBool("export"); export {
		return store.ExportYAML(ctx, out, limit)
	}

	recs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	formatHistory(out, recs)
	return nil
}

func formatHistory(w io.Writer, recs []types.SessionRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-19s  %-17s  %-30s  %s\n", "Session", "Updated", "State", "File", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range recs {
		state := r.State
		if r.FailedStage != "" {
			state = fmt.Sprintf("%s(%s)", r.State, r.FailedStage)
		}
		fmt.Fprintf(w, "%-36s  %-19s  %-17s  %-30s  %s\n",
			r.ID, r.UpdatedAt.Local().Format("2006-01-02 15:04:05"), state, truncate(r.FileName, 30), r.OutputName)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
