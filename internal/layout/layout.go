// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout converts lightweight-markup notes into a paginated document
// of placed lines. The engine promotes the first top-level heading to the
// document title, wraps every line to the printable width, and starts a new
// page before any line that would cross the bottom margin.
package layout

import (
	"strings"

	"github.com/pdiddy/notes-engine/internal/markup"
	"github.com/pdiddy/notes-engine/pkg/types"
)

// DefaultTitle is used when the notes carry no top-level heading and the
// source has no file name.
const DefaultTitle = "Generated Notes"

// Align is the horizontal alignment of a placed line.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
)

// Line is one wrapped line placed on a page. Y is the top of the line,
// measured from the top edge of the page.
type Line struct {
	Text   string      `json:"text" yaml:"text"`
	Role   markup.Role `json:"role" yaml:"role"`
	Style  Style       `json:"style" yaml:"style"`
	Size   SizeClass   `json:"size" yaml:"size"`
	Font   float64     `json:"font" yaml:"font"`
	Indent float64     `json:"indent,omitempty" yaml:"indent,omitempty"`
	Page   int         `json:"page" yaml:"page"`
	Y      float64     `json:"y" yaml:"y"`
	Height float64     `json:"height" yaml:"height"`
	Align  Align       `json:"align" yaml:"align"`

	// Blank lines only take up vertical space and are never drawn.
	Blank bool `json:"blank,omitempty" yaml:"blank,omitempty"`

	// Bullet marks the first sub-line of a list item.
	Bullet bool `json:"bullet,omitempty" yaml:"bullet,omitempty"`
}

// Document is the output of the layout engine.
type Document struct {
	Title    string   `json:"title" yaml:"title"`
	Geometry Geometry `json:"geometry" yaml:"geometry"`
	Pages    [][]Line `json:"pages" yaml:"pages"`
}

// PageCount returns the number of pages.
func (d Document) PageCount() int {
	return len(d.Pages)
}

// Lines returns every placed line in placement order.
func (d Document) Lines() []Line {
	var out []Line
	for _, page := range d.Pages {
		out = append(out, page...)
	}
	return out
}

// Engine lays out notes on a fixed page geometry.
type Engine struct {
	geom     Geometry
	metrics  Metrics
	measurer Measurer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics overrides the default font sizes and spacing.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMeasurer sets the text width measurer used for wrapping.
func WithMeasurer(m Measurer) Option {
	return func(e *Engine) {
		if m != nil {
			e.measurer = m
		}
	}
}

// NewEngine creates an engine for the given geometry. The geometry must
// leave a printable area.
func NewEngine(geom Geometry, opts ...Option) (*Engine, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		geom:     geom,
		metrics:  DefaultMetrics(),
		measurer: ApproxMeasurer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Geometry returns the engine's page geometry.
func (e *Engine) Geometry() Geometry {
	return e.geom
}

// Layout places raw on pages. It never fails: malformed markup is laid out
// as plain text. sourceName feeds the fallback title and may be empty.
func Layout(raw, sourceName string, geom Geometry) Document {
	e := &Engine{geom: geom, metrics: DefaultMetrics(), measurer: ApproxMeasurer{}}
	return e.Layout(raw, sourceName)
}

// Layout places raw on pages using the engine's geometry and metrics.
func (e *Engine) Layout(raw, sourceName string) Document {
	title, body := splitTitle(raw, sourceName)
	p := &pager{geom: e.geom}

	th := e.metrics.LineHeight(SizeTitle)
	for _, text := range e.wrap(title, e.geom.TextWidth(), StyleBold, e.metrics.TitleSize) {
		p.place(Line{
			Text:   text,
			Role:   markup.Heading,
			Style:  StyleBold,
			Size:   SizeTitle,
			Font:   e.metrics.TitleSize,
			Height: th,
			Align:  AlignCenter,
		})
	}
	p.gap(e.metrics.TitleGap)

	prevBlank := false
	for _, raw := range body {
		c := markup.Classify(raw)
		if c.IsBlank() {
			if !prevBlank {
				p.blank(e.metrics.LineHeight(SizeBody))
			}
			prevBlank = true
			continue
		}
		prevBlank = false

		style, size, indent := e.styleFor(c)
		font := e.metrics.FontSize(size)
		h := e.metrics.LineHeight(size)
		for i, text := range e.wrap(c.Text, e.geom.TextWidth()-indent, style, font) {
			p.place(Line{
				Text:   text,
				Role:   c.Role,
				Style:  style,
				Size:   size,
				Font:   font,
				Indent: indent,
				Height: h,
				Align:  AlignLeft,
				Bullet: c.Role == markup.ListItem && i == 0,
			})
		}
		if c.Role == markup.Heading {
			p.gap(e.metrics.HeadingGap)
		}
	}

	return Document{Title: title, Geometry: e.geom, Pages: p.result()}
}

// styleFor maps a classified role to style, size class and indent. Minor
// headings are italic rather than bold.
func (e *Engine) styleFor(c markup.Classification) (Style, SizeClass, float64) {
	switch {
	case c.IsHeading(markup.LevelTitle):
		return StyleBold, SizeH2, 0
	case c.IsHeading(markup.LevelSub):
		return StyleBold, SizeH3, 0
	case c.IsHeading(markup.LevelMinor):
		return StyleItalic, SizeH4, 0
	case c.Role == markup.ListItem:
		return StylePlain, SizeBody, e.metrics.ListIndent
	default:
		return StylePlain, SizeBody, 0
	}
}

// wrap breaks text greedily into lines no wider than width. A word wider
// than width is placed on a line of its own.
func (e *Engine) wrap(text string, width float64, style Style, size float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		candidate := cur + " " + w
		if e.measurer.Width(candidate, style, size) <= width {
			cur = candidate
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	return append(lines, cur)
}

// pager tracks the vertical cursor and creates pages on demand.
type pager struct {
	geom   Geometry
	pages  [][]Line
	cursor float64

	// breakPending forces the next placed line onto a new page.
	breakPending bool
}

func (p *pager) newPage() {
	p.pages = append(p.pages, nil)
	p.cursor = p.geom.Margin
	p.breakPending = false
}

func (p *pager) place(l Line) {
	switch {
	case len(p.pages) == 0:
		p.newPage()
	case p.breakPending:
		p.newPage()
	case p.cursor+l.Height > p.geom.bottom() && len(p.pages[len(p.pages)-1]) > 0:
		p.newPage()
	}
	last := len(p.pages) - 1
	l.Page = last
	l.Y = p.cursor
	p.pages[last] = append(p.pages[last], l)
	p.cursor += l.Height
}

// gap advances the cursor. A gap that does not fit on the page becomes a
// page break before the next line.
func (p *pager) gap(h float64) {
	if p.cursor+h > p.geom.bottom() {
		p.breakPending = true
		return
	}
	p.cursor += h
}

// blank places a spacing line, or a page break when it does not fit.
func (p *pager) blank(h float64) {
	if p.breakPending || p.cursor+h > p.geom.bottom() {
		p.breakPending = true
		return
	}
	p.place(Line{Role: markup.Plain, Style: StylePlain, Size: SizeBody, Height: h, Align: AlignLeft, Blank: true})
}

func (p *pager) result() [][]Line {
	if len(p.pages) == 0 {
		p.newPage()
	}
	return p.pages
}

// splitTitle splits raw into lines and removes the first top-level heading,
// returning its cleaned text as the title. Without one the title falls back
// to FallbackTitle(sourceName). Leading and trailing blank lines of the body
// are dropped.
func splitTitle(raw, sourceName string) (string, []string) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(raw) == "" {
		return FallbackTitle(sourceName), nil
	}
	lines := strings.Split(raw, "\n")

	title := ""
	for i, line := range lines {
		if c := markup.Classify(line); c.IsHeading(markup.LevelTitle) {
			title = c.Text
			lines = append(lines[:i:i], lines[i+1:]...)
			break
		}
	}
	if title == "" {
		title = FallbackTitle(sourceName)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return title, lines
}

// FallbackTitle derives a title from the source file name ("syllabus.pdf"
// gives "syllabus - Notes"), or returns DefaultTitle.
func FallbackTitle(sourceName string) string {
	if base := types.BaseName(sourceName); base != "" {
		return base + " - Notes"
	}
	return DefaultTitle
}
