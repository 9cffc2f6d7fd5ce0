// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"sync"

	"github.com/jung-kurt/gofpdf"

	"github.com/pdiddy/notes-engine/internal/layout"
)

// Measurer reports string widths from the same core font metrics the
// renderer draws with, so wrapped lines fit the page exactly.
type Measurer struct {
	mu  sync.Mutex
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// NewMeasurer creates a gofpdf-backed layout.Measurer.
func NewMeasurer() *Measurer {
	pdf := gofpdf.New("P", "pt", "A4", "")
	return &Measurer{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

// Width implements layout.Measurer.
func (m *Measurer) Width(text string, style layout.Style, size float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(FontFamily, fontStyle(style), size)
	return m.pdf.GetStringWidth(m.tr(text))
}
