// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one document through text extraction, note
// generation and rendering as an explicit state machine.
//
// A Pipeline holds a single session at a time. Triggers (Select, Process,
// Regenerate, Render, Reset) are legal only from specific states and return
// ErrInvalidTransition otherwise. Collaborators run without the pipeline
// lock held; every result is checked against the session token it was
// started under, so a Reset or a new Select while a stage is in flight makes
// the late result stale instead of letting it overwrite the newer session.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"mime"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/notes-engine/internal/extract"
	"github.com/pdiddy/notes-engine/internal/generate"
	"github.com/pdiddy/notes-engine/internal/layout"
	"github.com/pdiddy/notes-engine/pkg/types"
)

// Extractor turns a source document into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc types.SourceDocument) (string, error)
}

// Generator turns a prompt into note markup.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Renderer turns a laid-out document into an output file.
type Renderer interface {
	Render(doc layout.Document, sourceName string) (types.RenderedDocument, error)
}

// Observer receives a snapshot after every state change. Observers run with
// the pipeline lock held and must not call back into the pipeline.
type Observer func(Snapshot)

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	State         State
	SessionID     string
	FileName      string
	MediaType     string
	ExtractedText string
	Notes         string
	Output        *types.RenderedDocument

	// Message is the user-facing description of the last failure.
	Message string

	// Err is the last stage failure, a *StageError.
	Err error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLayout sets the layout engine used before rendering. The default lays
// out on A4 with default metrics.
func WithLayout(e *layout.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithAcceptedTypes replaces the accepted input media types. The default
// accepts only PDF.
func WithAcceptedTypes(mediaTypes ...string) Option {
	return func(p *Pipeline) {
		p.accepted = p.accepted[:0]
		for _, mt := range mediaTypes {
			if mt = baseMediaType(mt); mt != "" && !slices.Contains(p.accepted, mt) {
				p.accepted = append(p.accepted, mt)
			}
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline is the session state machine. It is safe for concurrent use.
type Pipeline struct {
	extractor Extractor
	generator Generator
	renderer  Renderer
	engine    *layout.Engine
	accepted  []string
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	token     uint64
	session   string
	doc       types.SourceDocument
	text      string
	notes     string
	output    *types.RenderedDocument
	err       error
	message   string
	observers map[int]Observer
	nextObs   int
}

// New creates an idle pipeline.
func New(x Extractor, g Generator, r Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: x,
		generator: g,
		renderer:  r,
		accepted:  []string{types.MediaTypePDF},
		logger:    slog.Default(),
		observers: make(map[int]Observer),
	}
	for _, o := range opts {
		o(p)
	}
	if p.engine == nil {
		// A4 is a valid geometry.
		p.engine, _ = layout.NewEngine(layout.A4())
	}
	return p
}

// AcceptedTypes returns the media types Select accepts.
func (p *Pipeline) AcceptedTypes() []string {
	return slices.Clone(p.accepted)
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a copy of the current session.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers an observer and returns a function that removes it.
func (p *Pipeline) Subscribe(o Observer) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = o
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.observers, id)
	}
}

// Select starts a new session for doc. A document whose media type is not
// accepted is rejected with a *ValidationError and the state is unchanged.
// Selecting from any state other than Idle resets the previous session
// first, discarding any in-flight work.
func (p *Pipeline) Select(doc types.SourceDocument) error {
	mt := baseMediaType(doc.MediaType)
	if !slices.Contains(p.accepted, mt) {
		return &ValidationError{MediaType: mt, Accepted: p.AcceptedTypes()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Kind != Idle {
		p.logger.Info("replacing session", "session", p.session, "state", p.state)
		p.resetLocked()
	}
	p.token++
	p.session = uuid.NewString()
	p.doc = types.SourceDocument{Name: doc.Name, MediaType: mt, Data: bytes.Clone(doc.Data)}
	p.logger.Info("document selected", "session", p.session, "file", doc.Name, "media_type", mt, "bytes", len(doc.Data))
	p.transition(At(Selected))
	return nil
}

// Process runs extraction then generation for the selected document. It
// ends in Ready or Failed and returns the stage failure, if any.
func (p *Pipeline) Process(ctx context.Context) error {
	p.mu.Lock()
	if p.state.Kind != Selected {
		defer p.mu.Unlock()
		return p.invalidLocked("process")
	}
	token, doc := p.token, p.doc
	p.transition(At(ExtractingText))
	p.mu.Unlock()

	text, err := guard(StageExtract, func() (string, error) {
		return p.extractor.Extract(ctx, doc)
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w from %s", extract.ErrEmptyText, doc.Name)
	}

	p.mu.Lock()
	if token != p.token {
		p.mu.Unlock()
		return p.stale(StageExtract)
	}
	if err != nil {
		defer p.mu.Unlock()
		msg := "Could not extract text from the selected document."
		if doc.Name != "" {
			msg = fmt.Sprintf("Could not extract text from %s.", doc.Name)
		}
		return p.failLocked(StageExtract, err, msg)
	}
	p.text = text
	p.logger.Debug("text extracted", "session", p.session, "chars", len(text))
	p.transition(At(GeneratingNotes))
	p.mu.Unlock()

	return p.generate(ctx, token, text)
}

// Regenerate produces new notes from the already extracted text. It is
// legal from Ready and after a generation failure.
func (p *Pipeline) Regenerate(ctx context.Context) error {
	p.mu.Lock()
	if p.state != At(Ready) && p.state != FailedAt(StageGenerate) {
		defer p.mu.Unlock()
		return p.invalidLocked("regenerate")
	}
	token, text := p.token, p.text
	p.notes = ""
	p.output = nil
	p.clearErrLocked()
	p.transition(At(GeneratingNotes))
	p.mu.Unlock()

	return p.generate(ctx, token, text)
}

func (p *Pipeline) generate(ctx context.Context, token uint64, text string) error {
	prompt, err := generate.Prompt(text)
	var notes string
	if err == nil {
		notes, err = guard(StageGenerate, func() (string, error) {
			return p.generator.Generate(ctx, prompt)
		})
	}
	if err == nil && strings.TrimSpace(notes) == "" {
		err = ErrEmptyNotes
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.token {
		return p.stale(StageGenerate)
	}
	if err != nil {
		return p.failLocked(StageGenerate, err, generate.UserMessage(generate.Classify(err)))
	}
	p.notes = notes
	p.logger.Info("notes ready", "session", p.session, "chars", len(notes))
	p.transition(At(Ready))
	return nil
}

// Render lays out the notes and renders them. It always returns to Ready;
// a failure is recorded on the snapshot and returned, leaving the notes
// intact so rendering can be retried.
func (p *Pipeline) Render() error {
	p.mu.Lock()
	if p.state.Kind != Ready {
		defer p.mu.Unlock()
		return p.invalidLocked("render")
	}
	token, notes, name := p.token, p.notes, p.doc.Name
	p.clearErrLocked()
	p.transition(At(RenderingOutput))
	p.mu.Unlock()

	var doc layout.Document
	out, err := guard(StageRender, func() (types.RenderedDocument, error) {
		doc = p.engine.Layout(notes, name)
		return p.renderer.Render(doc, name)
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.token {
		return p.stale(StageRender)
	}
	if err != nil {
		se := &StageError{Stage: StageRender, Err: err}
		p.err = se
		p.message = "Could not render the notes. Try again or choose another page size."
		p.output = nil
		p.logger.Warn("render failed", "session", p.session, "error", err)
		p.transition(At(Ready))
		return se
	}
	p.output = &out
	p.logger.Info("document rendered", "session", p.session, "file", out.FileName, "pages", doc.PageCount(), "bytes", len(out.Data))
	p.transition(At(Ready))
	return nil
}

// Reset abandons the current session and returns to Idle. It is legal
// from every state; results of in-flight stages become stale.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.InFlight() {
		p.logger.Info("abandoning in-flight stage", "session", p.session, "state", p.state)
	}
	p.resetLocked()
}

func (p *Pipeline) resetLocked() {
	p.token++
	p.session = ""
	p.doc = types.SourceDocument{}
	p.text = ""
	p.notes = ""
	p.output = nil
	p.clearErrLocked()
	p.transition(At(Idle))
}

func (p *Pipeline) clearErrLocked() {
	p.err = nil
	p.message = ""
}

func (p *Pipeline) failLocked(stage Stage, err error, msg string) error {
	se := &StageError{Stage: stage, Err: err}
	p.err = se
	p.message = msg
	p.logger.Warn("stage failed", "session", p.session, "stage", stage, "error", err)
	p.transition(FailedAt(stage))
	return se
}

func (p *Pipeline) invalidLocked(trigger string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, p.state)
}

func (p *Pipeline) stale(stage Stage) error {
	p.logger.Debug("discarding stale result", "stage", stage)
	return fmt.Errorf("%w: %s", ErrStale, stage)
}

func (p *Pipeline) transition(s State) {
	p.logger.Debug("state change", "session", p.session, "from", p.state, "to", s)
	p.state = s
	if len(p.observers) == 0 {
		return
	}
	snap := p.snapshotLocked()
	for _, id := range slices.Sorted(maps.Keys(p.observers)) {
		p.observers[id](snap)
	}
}

func (p *Pipeline) snapshotLocked() Snapshot {
	var out *types.RenderedDocument
	if p.output != nil {
		o := *p.output
		o.Data = bytes.Clone(o.Data)
		out = &o
	}
	return Snapshot{
		State:         p.state,
		SessionID:     p.session,
		FileName:      p.doc.Name,
		MediaType:     p.doc.MediaType,
		ExtractedText: p.text,
		Notes:         p.notes,
		Output:        out,
		Message:       p.message,
		Err:           p.err,
	}
}

// guard runs a collaborator call, turning a panic into an ErrPanic error so
// the stage fails instead of taking down the caller.
func guard[T any](stage Stage, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, stage, r)
		}
	}()
	return fn()
}

func baseMediaType(mt string) string {
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
