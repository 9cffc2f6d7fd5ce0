// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/notes-engine/internal/container"
	"github.com/pdiddy/notes-engine/internal/extract"
	"github.com/pdiddy/notes-engine/internal/generate"
	"github.com/pdiddy/notes-engine/internal/history"
	"github.com/pdiddy/notes-engine/internal/httputil"
	"github.com/pdiddy/notes-engine/internal/layout"
	"github.com/pdiddy/notes-engine/internal/output"
	"github.com/pdiddy/notes-engine/internal/pipeline"
	"github.com/pdiddy/notes-engine/internal/render"
	"github.com/pdiddy/notes-engine/internal/secrets"
	"github.com/pdiddy/notes-engine/internal/source"
	"github.com/pdiddy/notes-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [files or URLs...]",
	Short: "Generate study-note PDFs from documents",
	Long: `Generate runs every input through the full pipeline: it extracts the
document text, asks the configured generative AI backend for structured
notes, lays the notes out on pages, and writes a PDF to the output
directory. Inputs may be local files or http(s) URLs. Inputs whose output
already exists are skipped unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var generateFlagKeys = map[string]string{
	"backend":     "generation.backend",
	"model":       "generation.model",
	"api-key":     "generation.api_key",
	"project":     "generation.project",
	"retries":     "generation.max_retries",
	"extractor":   "extraction.backend",
	"runtime":     "extraction.runtime",
	"output-dir":  "output.dir",
	"save-notes":  "output.save_notes",
	"page-size":   "layout.page_size",
	"margin":      "layout.margin",
	"history-db":  "history.db_path",
	"concurrency": "concurrency",
}

func init() {
	generateCmd.Flags().String("backend", "claude", "generation backend: claude or vertex")
	generateCmd.Flags().String("model", "", "AI model identifier (default depends on backend)")
	generateCmd.Flags().String("api-key", "", "Anthropic API key (default: .secrets/anthropic-api-key)")
	generateCmd.Flags().String("project", "", "Google Cloud project for vertex (default: .secrets/google-cloud-project)")
	generateCmd.Flags().Int("retries", 3, "retries for transient generation failures")
	generateCmd.Flags().String("extractor", "pdfcpu", "PDF text extractor: pdfcpu or markitdown")
	generateCmd.Flags().String("runtime", "", "container runtime for markitdown: docker or podman")
	generateCmd.Flags().String("output-dir", "notes", "directory for rendered PDFs")
	generateCmd.Flags().Bool("save-notes", false, "also write the generated notes as <name>-notes.md")
	generateCmd.Flags().Int("concurrency", 2, "number of inputs processed in parallel")
	generateCmd.Flags().String("history-db", "", "session history database (empty keeps the configured path)")
	generateCmd.Flags().Bool("force", false, "regenerate inputs whose output already exists")
	layoutFlags(generateCmd.Flags())

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, generateFlagKeys); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")

	engine, err := newLayoutEngine(cfg.Layout)
	if err != nil {
		return err
	}
	extractor, err := newExtractor(ctx, cfg.Extraction)
	if err != nil {
		return err
	}
	gen, closeGen, err := newGenerator(ctx, cfg.Generation, cfg.HTTP)
	if err != nil {
		return err
	}
	defer closeGen()

	w, err := output.New(cfg.Output.Dir)
	if err != nil {
		return err
	}

	var recorder pipeline.Observer
	if cfg.History.DBPath != "" {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = history.Recorder(store, slog.Default())
	}

	client := httputil.NewClient(cfg.HTTP)
	renderer := render.NewPDFRenderer()
	accepted := extractor.MediaTypes()

	batch := &pipeline.Batch{
		Load: func(ctx context.Context, ref string) (types.SourceDocument, error) {
			return source.Load(ctx, client, ref)
		},
		New: func() *pipeline.Pipeline {
			p := pipeline.New(extractor, gen, renderer,
				pipeline.WithLayout(engine),
				pipeline.WithAcceptedTypes(accepted...),
				pipeline.WithLogger(slog.Default()),
			)
			if recorder != nil {
				p.Subscribe(recorder)
			}
			return p
		},
		Write: func(doc types.SourceDocument, snap pipeline.Snapshot) (string, error) {
			if snap.Output == nil {
				return "", fmt.Errorf("no rendered output for %s", doc.Name)
			}
			path, err := w.WriteDocument(*snap.Output)
			if err != nil {
				return "", err
			}
			if cfg.Output.SaveNotes {
				if _, err := w.WriteNotes(doc.Name, snap.Notes); err != nil {
					return "", err
				}
			}
			return path, nil
		},
		Concurrency: cfg.Concurrency,
	}
	if !force {
		batch.Exists = func(doc types.SourceDocument) (string, bool) {
			path := filepath.Join(w.Dir, render.OutputName(doc.Name, render.Extension))
			_, err := os.Stat(path)
			return path, err == nil
		}
	}

	result := batch.Run(ctx, args, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d input(s) failed", result.Failed)
	}
	return nil
}

// newLayoutEngine builds the layout engine for the configured page size,
// measuring text with the renderer's font metrics.
func newLayoutEngine(cfg types.LayoutConfig) (*layout.Engine, error) {
	geom, err := layout.PageSize(cfg.PageSize, cfg.Margin)
	if err != nil {
		return nil, err
	}
	return layout.NewEngine(geom, layout.WithMeasurer(render.NewMeasurer()))
}

// newExtractor builds the extraction dispatcher. Plain text and markdown are
// always accepted; PDFs go to the configured backend.
func newExtractor(ctx context.Context, cfg types.ExtractionConfig) (*extract.Dispatcher, error) {
	d := extract.NewDispatcher()
	switch cfg.Backend {
	case "", types.ExtractPdfcpu:
		d.Register(types.MediaTypePDF, extract.NewPDFExtractor())
	case types.ExtractMarkitdown:
		rt, err := container.DetectRuntime(ctx, cfg.Runtime)
		if err != nil {
			return nil, err
		}
		m, err := extract.NewMarkitdownExtractor(ctx, rt)
		if err != nil {
			return nil, err
		}
		d.Register(types.MediaTypePDF, m)
	default:
		return nil, fmt.Errorf("unknown extraction backend %q: expected pdfcpu or markitdown", cfg.Backend)
	}
	text := extract.TextExtractor{}
	d.Register(extract.MediaTypeText, text).Register(extract.MediaTypeMarkdown, text)
	return d, nil
}

// newGenerator builds the generation backend wrapped with retries. The
// returned function releases backend resources.
func newGenerator(ctx context.Context, cfg types.GenerationConfig, httpCfg types.HTTPConfig) (generate.Backend, func(), error) {
	switch cfg.Backend {
	case "", types.GenerateClaude:
		key := secrets.First(loadedSecrets, secrets.AnthropicAPIKey, cfg.APIKey)
		if key == "" {
			return nil, nil, fmt.Errorf("no Anthropic API key: set --api-key, NOTES_ENGINE_GENERATION_API_KEY, or %s/%s",
				secrets.DefaultDir, secrets.AnthropicAPIKey)
		}
		b := &generate.ClaudeBackend{
			APIKey: key,
			Model:  cfg.Model,
			Client: httputil.NewClient(httpCfg),
		}
		return generate.WithRetry(b, cfg.MaxRetries), func() {}, nil
	case types.GenerateVertex:
		project := secrets.First(loadedSecrets, secrets.GoogleCloudProject, cfg.Project)
		v, err := generate.NewVertexBackend(ctx, project, cfg.Location, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		return generate.WithRetry(v, cfg.MaxRetries), func() { v.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown generation backend %q: expected claude or vertex", cfg.Backend)
	}
}
