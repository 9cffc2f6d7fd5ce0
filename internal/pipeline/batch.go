// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/notes-engine/pkg/types"
)

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Rendered int
	Skipped  int
	Failed   int

	// Outputs holds the written path per input, in input order. Entries for
	// skipped inputs hold the existing path; failed inputs are empty.
	Outputs []string
}

// Total returns the number of inputs processed.
func (r BatchResult) Total() int {
	return r.Rendered + r.Skipped + r.Failed
}

// HasFailures reports whether any input failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Batch runs many inputs through independent pipelines, one session each.
type Batch struct {
	// Load resolves an input reference to a document.
	Load func(ctx context.Context, ref string) (types.SourceDocument, error)

	// New returns a fresh pipeline for one input.
	New func() *Pipeline

	// Write persists a finished session and returns the written path.
	Write func(doc types.SourceDocument, snap Snapshot) (string, error)

	// Exists reports an existing output for doc. Optional; inputs with an
	// existing output are skipped.
	Exists func(doc types.SourceDocument) (string, bool)

	// Concurrency bounds the number of inputs in flight. Values below one
	// mean one.
	Concurrency int
}

// Run processes refs and writes one progress line per input to w, followed
// by a summary.
func (b *Batch) Run(ctx context.Context, refs []string, w io.Writer) BatchResult {
	result := BatchResult{Outputs: make([]string, len(refs))}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(max(b.Concurrency, 1))
	for i, ref := range refs {
		g.Go(func() error {
			path, skipped, err := b.runOne(ctx, ref)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				fmt.Fprintf(w, "failed:   %s (%v)\n", ref, err)
				result.Failed++
			case skipped:
				fmt.Fprintf(w, "skipped:  %s (%s exists)\n", ref, path)
				result.Outputs[i] = path
				result.Skipped++
			default:
				fmt.Fprintf(w, "rendered: %s -> %s\n", ref, path)
				result.Outputs[i] = path
				result.Rendered++
			}
			return nil
		})
	}
	g.Wait()

	fmt.Fprintf(w, "\nBatch summary: %d rendered, %d skipped, %d failed (total: %d)\n",
		result.Rendered, result.Skipped, result.Failed, result.Total())
	return result
}

func (b *Batch) runOne(ctx context.Context, ref string) (string, bool, error) {
	doc, err := b.Load(ctx, ref)
	if err != nil {
		return "", false, err
	}
	if b.Exists != nil {
		if path, ok := b.Exists(doc); ok {
			return path, true, nil
		}
	}

	p := b.New()
	if err := p.Select(doc); err != nil {
		return "", false, err
	}
	if err := p.Process(ctx); err != nil {
		return "", false, describeFailure(p.Snapshot(), err)
	}
	if err := p.Render(); err != nil {
		return "", false, describeFailure(p.Snapshot(), err)
	}

	path, err := b.Write(doc, p.Snapshot())
	if err != nil {
		return "", false, fmt.Errorf("writing output: %w", err)
	}
	return path, false, nil
}

func describeFailure(snap Snapshot, err error) error {
	if snap.Message == "" {
		return err
	}
	return fmt.Errorf("%s: %w", snap.Message, err)
}
