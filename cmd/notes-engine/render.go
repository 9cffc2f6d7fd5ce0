// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/notes-engine/internal/output"
	"github.com/pdiddy/notes-engine/internal/render"
	"github.com/pdiddy/notes-engine/pkg/types"
)

var renderCmd = &cobra.Command{
	Use:   "render <notes-file>",
	Short: "Lay out and render an existing notes file to PDF",
	Long: `Render lays out a notes file written in the note markup (## / ### / ####
headings, "- " list items, **bold** and *italic* emphasis) and renders it to
a PDF without calling a generative AI service.

Use --dump-layout to print the placed lines as YAML instead of writing a PDF.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var renderFlagKeys = map[string]string{
	"output-dir": "output.dir",
	"page-size":  "layout.page_size",
	"margin":     "layout.margin",
}

func init() {
	renderCmd.Flags().String("source-name", "", "source document name used for the fallback title and output name")
	renderCmd.Flags().String("output-dir", "notes", "directory for the rendered PDF")
	renderCmd.Flags().Bool("dump-layout", false, "print the page layout as YAML and exit")
	layoutFlags(renderCmd.Flags())

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, renderFlagKeys); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading notes: %w", err)
	}
	sourceName, _ := cmd.Flags().GetString("source-name")
	if sourceName == "" {
		sourceName = notesSourceName(args[0])
	}

	engine, err := newLayoutEngine(cfg.Layout)
	if err != nil {
		return err
	}
	doc := engine.Layout(string(data), sourceName)

	if dump, _ := cmd.Flags().GetBool("dump-layout"); dump {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling layout: %w", err)
		}
		return enc.Close()
	}

	rendered, err := render.NewPDFRenderer().Render(doc, sourceName)
	if err != nil {
		return err
	}
	w, err := output.New(cfg.Output.Dir)
	if err != nil {
		return err
	}
	path, err := w.WriteDocument(rendered)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rendered: %s -> %s (%d pages)\n", args[0], path, doc.PageCount())
	return nil
}

// notesSourceName recovers the source name from a saved notes file, so that
// "lecture-notes.md" renders to "lecture-notes.pdf".
func notesSourceName(notesPath string) string {
	base := types.BaseName(notesPath)
	if trimmed := strings.TrimSuffix(base, "-notes"); trimmed != "" {
		return trimmed
	}
	return base
}
