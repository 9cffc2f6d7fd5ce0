// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notes-engine/internal/generate"
	"github.com/pdiddy/notes-engine/internal/render"
	"github.com/pdiddy/notes-engine/pkg/types"
)

func TestBatchRun(t *testing.T) {
	docs := map[string]types.SourceDocument{
		"a.pdf":     {Name: "a.pdf", MediaType: types.MediaTypePDF},
		"b.pdf":     {Name: "b.pdf", MediaType: types.MediaTypePDF},
		"done.pdf":  {Name: "done.pdf", MediaType: types.MediaTypePDF},
		"photo.png": {Name: "photo.png", MediaType: "image/png"},
		"quota.pdf": {Name: "quota.pdf", MediaType: types.MediaTypePDF},
	}
	g := generate.BackendFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "quota.pdf") {
			return "", &generate.Error{Kind: generate.KindQuotaExceeded, Err: errors.New("429")}
		}
		return "## Notes\nbody", nil
	})
	x := extractFunc(func(_ context.Context, doc types.SourceDocument) (string, error) {
		return doc.Name + " text", nil
	})

	var inFlight, peak atomic.Int32
	b := &Batch{
		Load: func(_ context.Context, ref string) (types.SourceDocument, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			doc, ok := docs[ref]
			if !ok {
				return types.SourceDocument{}, fmt.Errorf("reading %s: not found", ref)
			}
			return doc, nil
		},
		New: func() *Pipeline {
			return newTestPipeline(x, g, renderOK)
		},
		Write: func(doc types.SourceDocument, snap Snapshot) (string, error) {
			if snap.Output == nil {
				return "", errors.New("no output")
			}
			return "out/" + render.OutputName(doc.Name, render.Extension), nil
		},
		Exists: func(doc types.SourceDocument) (string, bool) {
			return "out/done-notes.pdf", doc.Name == "done.pdf"
		},
		Concurrency: 2,
	}

	refs := []string{"a.pdf", "missing.pdf", "b.pdf", "done.pdf", "photo.png", "quota.pdf"}
	var buf bytes.Buffer
	result := b.Run(context.Background(), refs, &buf)

	assert.Equal(t, 2, result.Rendered)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, 6, result.Total())
	assert.True(t, result.HasFailures())
	assert.Equal(t, []string{"out/a-notes.pdf", "", "out/b-notes.pdf", "out/done-notes.pdf", "", ""}, result.Outputs)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	out := buf.String()
	assert.Contains(t, out, "rendered: a.pdf -> out/a-notes.pdf")
	assert.Contains(t, out, "skipped:  done.pdf")
	assert.Contains(t, out, "failed:   missing.pdf")
	assert.Contains(t, out, "failed:   photo.png (unsupported file type image/png")
	assert.Contains(t, out, generate.UserMessage(generate.KindQuotaExceeded))
	assert.Contains(t, out, "Batch summary: 2 rendered, 1 skipped, 3 failed (total: 6)")
}

func TestBatchRunEmpty(t *testing.T) {
	b := &Batch{}
	var buf bytes.Buffer
	result := b.Run(context.Background(), nil, &buf)
	require.Equal(t, 0, result.Total())
	assert.False(t, result.HasFailures())
}
