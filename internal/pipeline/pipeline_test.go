// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notes-engine/internal/extract"
	"github.com/pdiddy/notes-engine/internal/generate"
	"github.com/pdiddy/notes-engine/internal/layout"
	"github.com/pdiddy/notes-engine/pkg/types"
)

type extractFunc func(ctx context.Context, doc types.SourceDocument) (string, error)

func (f extractFunc) Extract(ctx context.Context, doc types.SourceDocument) (string, error) {
	return f(ctx, doc)
}

type renderFunc func(doc layout.Document, sourceName string) (types.RenderedDocument, error)

func (f renderFunc) Render(doc layout.Document, sourceName string) (types.RenderedDocument, error) {
	return f(doc, sourceName)
}

const sampleNotes = "## Cell Biology\n### Organelles\n- Mitochondria\n- Ribosomes\nCells are the unit of life."

var (
	pdfDoc = types.SourceDocument{Name: "syllabus.pdf", MediaType: types.MediaTypePDF, Data: []byte("%PDF-1.4")}

	extractOK = extractFunc(func(context.Context, types.SourceDocument) (string, error) {
		return "Cells contain organelles.", nil
	})
	generateOK = generate.BackendFunc(func(context.Context, string) (string, error) {
		return sampleNotes, nil
	})
	renderOK = renderFunc(func(doc layout.Document, name string) (types.RenderedDocument, error) {
		return types.RenderedDocument{FileName: "syllabus-notes.pdf", MediaType: types.MediaTypePDF, Data: []byte("%PDF")}, nil
	})
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(x Extractor, g Generator, r Renderer, opts ...Option) *Pipeline {
	return New(x, g, r, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestProcessAndRender(t *testing.T) {
	var gotLayout layout.Document
	r := renderFunc(func(doc layout.Document, name string) (types.RenderedDocument, error) {
		gotLayout = doc
		return renderOK(doc, name)
	})
	var prompts []string
	g := generate.BackendFunc(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return sampleNotes, nil
	})
	p := newTestPipeline(extractOK, g, r)
	assert.Equal(t, At(Idle), p.State())

	require.NoError(t, p.Select(pdfDoc))
	snap := p.Snapshot()
	assert.Equal(t, At(Selected), snap.State)
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, "syllabus.pdf", snap.FileName)

	require.NoError(t, p.Process(context.Background()))
	snap = p.Snapshot()
	assert.Equal(t, At(Ready), snap.State)
	assert.Equal(t, "Cells contain organelles.", snap.ExtractedText)
	assert.Equal(t, sampleNotes, snap.Notes)
	assert.Nil(t, snap.Output)
	require.Len(t, prompts, 1)
	assert.True(t, strings.HasPrefix(prompts[0], "Cells contain organelles."))

	require.NoError(t, p.Render())
	snap = p.Snapshot()
	assert.Equal(t, At(Ready), snap.State)
	require.NotNil(t, snap.Output)
	assert.Equal(t, "syllabus-notes.pdf", snap.Output.FileName)
	assert.Equal(t, "Cell Biology", gotLayout.Title)
	assert.GreaterOrEqual(t, gotLayout.PageCount(), 1)
}

func TestSelectValidation(t *testing.T) {
	p := newTestPipeline(extractOK, generateOK, renderOK)

	err := p.Select(types.SourceDocument{Name: "photo.png", MediaType: "image/png"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "image/png", ve.MediaType)
	assert.Contains(t, err.Error(), types.MediaTypePDF)
	assert.Equal(t, At(Idle), p.State())
	assert.Empty(t, p.Snapshot().SessionID)

	// Parameters on the media type are ignored.
	require.NoError(t, p.Select(types.SourceDocument{Name: "a.pdf", MediaType: "application/pdf; name=a.pdf"}))
	assert.Equal(t, types.MediaTypePDF, p.Snapshot().MediaType)

	// A rejected selection does not disturb an existing session.
	require.NoError(t, p.Process(context.Background()))
	before := p.Snapshot()
	require.Error(t, p.Select(types.SourceDocument{MediaType: "text/plain"}))
	assert.Equal(t, before, p.Snapshot())
}

func TestWithAcceptedTypes(t *testing.T) {
	p := newTestPipeline(extractOK, generateOK, renderOK,
		WithAcceptedTypes(types.MediaTypePDF, "Text/Plain", "text/plain"))
	assert.Equal(t, []string{types.MediaTypePDF, "text/plain"}, p.AcceptedTypes())
	require.NoError(t, p.Select(types.SourceDocument{Name: "a.txt", MediaType: "text/plain; charset=utf-8"}))
}

func TestExtractionFailure(t *testing.T) {
	boom := errors.New("corrupt xref table")
	x := extractFunc(func(context.Context, types.SourceDocument) (string, error) {
		return "", boom
	})
	called := false
	g := generate.BackendFunc(func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})
	p := newTestPipeline(x, g, renderOK)
	require.NoError(t, p.Select(pdfDoc))

	err := p.Process(context.Background())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtract, se.Stage)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called, "generation must not run after a failed extraction")

	snap := p.Snapshot()
	assert.Equal(t, FailedAt(StageExtract), snap.State)
	assert.Equal(t, "failed(extract)", snap.State.String())
	assert.Contains(t, snap.Message, "syllabus.pdf")
	assert.ErrorIs(t, snap.Err, boom)

	assert.ErrorIs(t, p.Regenerate(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, p.Render(), ErrInvalidTransition)

	p.Reset()
	snap = p.Snapshot()
	assert.Equal(t, Snapshot{State: At(Idle)}, snap)
}

func TestEmptyExtraction(t *testing.T) {
	x := extractFunc(func(context.Context, types.SourceDocument) (string, error) {
		return " \n\t ", nil
	})
	p := newTestPipeline(x, generateOK, renderOK)
	require.NoError(t, p.Select(pdfDoc))

	err := p.Process(context.Background())
	assert.ErrorIs(t, err, extract.ErrEmptyText)
	assert.Equal(t, FailedAt(StageExtract), p.State())
}

func TestGenerationFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		notes   string
		wantMsg string
		wantErr error
	}{
		{
			name:    "quota",
			err:     &generate.Error{Kind: generate.KindQuotaExceeded, Err: errors.New("429")},
			wantMsg: generate.UserMessage(generate.KindQuotaExceeded),
		},
		{
			name:    "bad key",
			err:     &generate.Error{Kind: generate.KindInvalidCredentials, Err: errors.New("401")},
			wantMsg: generate.UserMessage(generate.KindInvalidCredentials),
		},
		{
			name:    "blank notes",
			notes:   "\n\n",
			wantMsg: generate.UserMessage(generate.KindUnknown),
			wantErr: ErrEmptyNotes,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := generate.BackendFunc(func(context.Context, string) (string, error) {
				return tt.notes, tt.err
			})
			p := newTestPipeline(extractOK, g, renderOK)
			require.NoError(t, p.Select(pdfDoc))

			err := p.Process(context.Background())
			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, StageGenerate, se.Stage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			snap := p.Snapshot()
			assert.Equal(t, FailedAt(StageGenerate), snap.State)
			assert.Equal(t, tt.wantMsg, snap.Message)
			assert.Equal(t, "Cells contain organelles.", snap.ExtractedText, "extracted text survives a generation failure")
		})
	}
}

func TestRegenerate(t *testing.T) {
	calls := 0
	g := generate.BackendFunc(func(context.Context, string) (string, error) {
		calls++
		switch calls {
		case 1:
			return "", &generate.Error{Kind: generate.KindNetworkUnreachable, Err: errors.New("dial tcp")}
		case 2:
			return "## First\nbody", nil
		default:
			return "## Second\nbody", nil
		}
	})
	extractions := 0
	x := extractFunc(func(context.Context, types.SourceDocument) (string, error) {
		extractions++
		return "source text", nil
	})
	p := newTestPipeline(x, g, renderOK)
	require.NoError(t, p.Select(pdfDoc))

	require.Error(t, p.Process(context.Background()))
	assert.Equal(t, FailedAt(StageGenerate), p.State())

	require.NoError(t, p.Regenerate(context.Background()))
	assert.Equal(t, At(Ready), p.State())
	assert.Equal(t, "## First\nbody", p.Snapshot().Notes)
	assert.Empty(t, p.Snapshot().Message)

	require.NoError(t, p.Render())
	require.NotNil(t, p.Snapshot().Output)

	require.NoError(t, p.Regenerate(context.Background()))
	snap := p.Snapshot()
	assert.Equal(t, "## Second\nbody", snap.Notes)
	assert.Nil(t, snap.Output, "regenerating discards the stale rendering")
	assert.Equal(t, 1, extractions)
}

func TestRenderFailureStaysReady(t *testing.T) {
	fail := true
	r := renderFunc(func(doc layout.Document, name string) (types.RenderedDocument, error) {
		if fail {
			return types.RenderedDocument{}, errors.New("font missing")
		}
		return renderOK(doc, name)
	})
	p := newTestPipeline(extractOK, generateOK, r)
	require.NoError(t, p.Select(pdfDoc))
	require.NoError(t, p.Process(context.Background()))

	err := p.Render()
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageRender, se.Stage)

	snap := p.Snapshot()
	assert.Equal(t, At(Ready), snap.State)
	assert.Equal(t, sampleNotes, snap.Notes)
	assert.NotEmpty(t, snap.Message)
	assert.Nil(t, snap.Output)

	fail = false
	require.NoError(t, p.Render())
	snap = p.Snapshot()
	assert.NotNil(t, snap.Output)
	assert.Empty(t, snap.Message)
	assert.NoError(t, snap.Err)
}

func TestInvalidTransitions(t *testing.T) {
	p := newTestPipeline(extractOK, generateOK, renderOK)
	ctx := context.Background()

	assert.ErrorIs(t, p.Process(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, p.Regenerate(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, p.Render(), ErrInvalidTransition)
	assert.Equal(t, At(Idle), p.State())

	require.NoError(t, p.Select(pdfDoc))
	assert.ErrorIs(t, p.Render(), ErrInvalidTransition)
	assert.ErrorIs(t, p.Regenerate(ctx), ErrInvalidTransition)
	assert.Equal(t, At(Selected), p.State())

	require.NoError(t, p.Process(ctx))
	err := p.Process(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "process from ready")
}

func TestSelectReplacesSession(t *testing.T) {
	p := newTestPipeline(extractOK, generateOK, renderOK)
	require.NoError(t, p.Select(pdfDoc))
	require.NoError(t, p.Process(context.Background()))
	first := p.Snapshot()

	other := types.SourceDocument{Name: "week2.pdf", MediaType: types.MediaTypePDF}
	require.NoError(t, p.Select(other))
	snap := p.Snapshot()
	assert.Equal(t, At(Selected), snap.State)
	assert.NotEqual(t, first.SessionID, snap.SessionID)
	assert.Equal(t, "week2.pdf", snap.FileName)
	assert.Empty(t, snap.Notes)
	assert.Empty(t, snap.ExtractedText)
}

func TestSelectCopiesData(t *testing.T) {
	var got []byte
	x := extractFunc(func(_ context.Context, doc types.SourceDocument) (string, error) {
		got = doc.Data
		return "text", nil
	})
	p := newTestPipeline(x, generateOK, renderOK)
	data := []byte("%PDF-1.7")
	require.NoError(t, p.Select(types.SourceDocument{Name: "a.pdf", MediaType: types.MediaTypePDF, Data: data}))
	data[0] = 'X'

	require.NoError(t, p.Process(context.Background()))
	assert.Equal(t, []byte("%PDF-1.7"), got)
}

func TestResetDuringGeneration(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	g := generate.BackendFunc(func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "## Late\nnotes", nil
	})
	p := newTestPipeline(extractOK, g, renderOK)
	require.NoError(t, p.Select(pdfDoc))

	errc := make(chan error, 1)
	go func() { errc <- p.Process(context.Background()) }()

	<-started
	assert.Equal(t, At(GeneratingNotes), p.State())
	p.Reset()
	assert.Equal(t, At(Idle), p.State())
	close(release)

	err := <-errc
	assert.ErrorIs(t, err, ErrStale)
	snap := p.Snapshot()
	assert.Equal(t, At(Idle), snap.State)
	assert.Empty(t, snap.Notes)
}

func TestResetDuringRender(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	r := renderFunc(func(doc layout.Document, name string) (types.RenderedDocument, error) {
		close(started)
		<-release
		return renderOK(doc, name)
	})
	p := newTestPipeline(extractOK, generateOK, r)
	require.NoError(t, p.Select(pdfDoc))
	require.NoError(t, p.Process(context.Background()))

	errc := make(chan error, 1)
	go func() { errc <- p.Render() }()

	<-started
	assert.Equal(t, At(RenderingOutput), p.State())
	p.Reset()
	close(release)

	assert.ErrorIs(t, <-errc, ErrStale)
	assert.Equal(t, Snapshot{State: At(Idle)}, p.Snapshot())
}

func TestSnapshotCopiesOutput(t *testing.T) {
	p := newTestPipeline(extractOK, generateOK, renderOK)
	require.NoError(t, p.Select(pdfDoc))
	require.NoError(t, p.Process(context.Background()))
	require.NoError(t, p.Render())

	snap := p.Snapshot()
	require.NotNil(t, snap.Output)
	snap.Output.Data[0] = 'X'
	snap.Output.FileName = "changed.pdf"

	again := p.Snapshot()
	assert.Equal(t, []byte("%PDF"), again.Output.Data)
	assert.Equal(t, "syllabus-notes.pdf", again.Output.FileName)
}

func TestCollaboratorPanicFailsStage(t *testing.T) {
	boomExtract := extractFunc(func(context.Context, types.SourceDocument) (string, error) {
		panic("index out of range")
	})
	boomGenerate := generate.BackendFunc(func(context.Context, string) (string, error) {
		panic("nil map")
	})
	boomRender := renderFunc(func(layout.Document, string) (types.RenderedDocument, error) {
		panic("bad font")
	})

	tests := []struct {
		name      string
		x         Extractor
		g         Generator
		r         Renderer
		stage     Stage
		wantState State
	}{
		{"extract", boomExtract, generateOK, renderOK, StageExtract, FailedAt(StageExtract)},
		{"generate", extractOK, boomGenerate, renderOK, StageGenerate, FailedAt(StageGenerate)},
		{"render", extractOK, generateOK, boomRender, StageRender, At(Ready)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.x, tt.g, tt.r)
			require.NoError(t, p.Select(pdfDoc))

			err := p.Process(context.Background())
			if tt.stage == StageRender {
				require.NoError(t, err)
				err = p.Render()
			}

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			assert.ErrorIs(t, err, ErrPanic)

			snap := p.Snapshot()
			assert.Equal(t, tt.wantState, snap.State)
			assert.NotEmpty(t, snap.Message)
			assert.Nil(t, snap.Output)
		})
	}
}

func TestStaleExtractionDoesNotTouchNewSession(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	x := extractFunc(func(_ context.Context, doc types.SourceDocument) (string, error) {
		if doc.Name == "slow.pdf" {
			once.Do(func() { close(started) })
			<-release
			return "", errors.New("late failure")
		}
		return "fresh text", nil
	})
	p := newTestPipeline(x, generateOK, renderOK)
	require.NoError(t, p.Select(types.SourceDocument{Name: "slow.pdf", MediaType: types.MediaTypePDF}))

	errc := make(chan error, 1)
	go func() { errc <- p.Process(context.Background()) }()
	<-started

	require.NoError(t, p.Select(pdfDoc))
	newSession := p.Snapshot().SessionID
	close(release)

	assert.ErrorIs(t, <-errc, ErrStale)
	snap := p.Snapshot()
	assert.Equal(t, At(Selected), snap.State)
	assert.Equal(t, newSession, snap.SessionID)
	assert.NoError(t, snap.Err)

	require.NoError(t, p.Process(context.Background()))
	assert.Equal(t, "fresh text", p.Snapshot().ExtractedText)
}

func TestSubscribe(t *testing.T) {
	p := newTestPipeline(extractOK, generateOK, renderOK)
	var states []State
	unsubscribe := p.Subscribe(func(s Snapshot) {
		states = append(states, s.State)
	})

	require.NoError(t, p.Select(pdfDoc))
	require.NoError(t, p.Process(context.Background()))
	require.NoError(t, p.Render())
	assert.Equal(t, []State{
		At(Selected), At(ExtractingText), At(GeneratingNotes), At(Ready), At(RenderingOutput), At(Ready),
	}, states)

	unsubscribe()
	p.Reset()
	assert.Len(t, states, 6)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", At(Idle).String())
	assert.Equal(t, "generating", At(GeneratingNotes).String())
	assert.Equal(t, "failed(render)", FailedAt(StageRender).String())
	assert.Equal(t, "kind(42)", Kind(42).String())
	assert.True(t, At(RenderingOutput).InFlight())
	assert.False(t, At(Ready).InFlight())
}
