// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render draws laid-out notes into a PDF with gofpdf. Every line is
// drawn at the position the layout engine computed; the renderer makes no
// pagination decisions of its own.
package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/pdiddy/notes-engine/internal/layout"
	"github.com/pdiddy/notes-engine/pkg/types"
)

// ErrRender wraps every failure to produce an output document.
var ErrRender = errors.New("render failed")

const (
	// FontFamily is the core PDF font used for all text.
	FontFamily = "Helvetica"

	// Extension of rendered documents.
	Extension = ".pdf"

	creator      = "notes-engine"
	bulletGlyph  = "•"
	bulletOffset = 10.0
)

// PDFRenderer renders a layout.Document as PDF bytes.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render draws doc and returns the PDF with a file name derived from
// sourceName.
func (r *PDFRenderer) Render(doc layout.Document, sourceName string) (types.RenderedDocument, error) {
	g := doc.Geometry
	if err := g.Validate(); err != nil {
		return types.RenderedDocument{}, fmt.Errorf("%w: %w", ErrRender, err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: g.PageWidth, Ht: g.PageHeight},
	})
	pdf.SetMargins(g.Margin, g.Margin, g.Margin)
	pdf.SetAutoPageBreak(false, g.Margin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator(creator, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pages := doc.Pages
	if len(pages) == 0 {
		pages = [][]layout.Line{nil}
	}
	for _, page := range pages {
		pdf.AddPage()
		for _, l := range page {
			if l.Blank {
				continue
			}
			drawLine(pdf, tr, g, l)
		}
	}

	if pdf.Err() {
		return types.RenderedDocument{}, fmt.Errorf("%w: %w", ErrRender, pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return types.RenderedDocument{}, fmt.Errorf("%w: writing pdf: %w", ErrRender, err)
	}

	return types.RenderedDocument{
		FileName:  OutputName(sourceName, Extension),
		MediaType: types.MediaTypePDF,
		Data:      buf.Bytes(),
	}, nil
}

func drawLine(pdf *gofpdf.Fpdf, tr func(string) string, g layout.Geometry, l layout.Line) {
	pdf.SetFont(FontFamily, fontStyle(l.Style), l.Font)

	x := g.Margin + l.Indent
	w := g.TextWidth() - l.Indent
	align := "L"
	if l.Align == layout.AlignCenter {
		x, w, align = g.Margin, g.TextWidth(), "C"
	}

	if l.Bullet {
		pdf.SetXY(x-bulletOffset, l.Y)
		pdf.CellFormat(bulletOffset, l.Height, tr(bulletGlyph), "", 0, "L", false, 0, "")
	}
	pdf.SetXY(x, l.Y)
	pdf.CellFormat(w, l.Height, tr(l.Text), "", 0, align, false, 0, "")
}

// fontStyle maps a layout style to a gofpdf style string.
func fontStyle(s layout.Style) string {
	switch s {
	case layout.StyleBold:
		return "B"
	case layout.StyleItalic:
		return "I"
	default:
		return ""
	}
}

// OutputName returns "<basename>-notes<ext>" for a named source, or
// "notes<ext>" when there is no usable name.
func OutputName(sourceName, ext string) string {
	if base := types.BaseName(sourceName); base != "" {
		return base + "-notes" + ext
	}
	return "notes" + ext
}
