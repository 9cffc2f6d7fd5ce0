// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/notes-engine/internal/layout"
)

var previewCmd = &cobra.Command{
	Use:   "preview <notes-file>",
	Short: "Print a plain-text preview of a notes file",
	Long: `Preview classifies every line of a notes file the same way the layout
engine does and prints the result as styled plain text: the title and
headings underlined or uppercased, list items bulleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading notes: %w", err)
		}
		sourceName, _ := cmd.Flags().GetString("source-name")
		if sourceName == "" {
			sourceName = notesSourceName(args[0])
		}
		fmt.Fprint(cmd.OutOrStdout(), layout.Preview(string(data), sourceName))
		return nil
	},
}

func init() {
	previewCmd.Flags().String("source-name", "", "source document name used for the fallback title")

	rootCmd.AddCommand(previewCmd)
}
