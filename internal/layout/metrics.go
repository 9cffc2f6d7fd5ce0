// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import "unicode/utf8"

// Style is the font style of a line.
type Style string

const (
	StylePlain  Style = "plain"
	StyleBold   Style = "bold"
	StyleItalic Style = "italic"
)

// SizeClass is the font size class of a line.
type SizeClass string

const (
	SizeTitle SizeClass = "title"
	SizeH2    SizeClass = "h2"
	SizeH3    SizeClass = "h3"
	SizeH4    SizeClass = "h4"
	SizeBody  SizeClass = "body"
)

// Metrics holds the font sizes and spacing used by the layout engine, in points.
type Metrics struct {
	TitleSize float64
	H2Size    float64
	H3Size    float64
	H4Size    float64
	BodySize  float64

	// LineSpacing multiplies a font size to give its line height.
	LineSpacing float64

	// TitleGap is the vertical space after the title.
	TitleGap float64

	// HeadingGap is the vertical space after a heading's last line.
	HeadingGap float64

	// ListIndent is the left indent of list items.
	ListIndent float64
}

// DefaultMetrics returns the standard sizes: 20/16/14/12/11 pt.
func DefaultMetrics() Metrics {
	return Metrics{
		TitleSize:   20,
		H2Size:      16,
		H3Size:      14,
		H4Size:      12,
		BodySize:    11,
		LineSpacing: 1.5,
		TitleGap:    12,
		HeadingGap:  6,
		ListIndent:  18,
	}
}

// FontSize returns the point size for a size class.
func (m Metrics) FontSize(c SizeClass) float64 {
	switch c {
	case SizeTitle:
		return m.TitleSize
	case SizeH2:
		return m.H2Size
	case SizeH3:
		return m.H3Size
	case SizeH4:
		return m.H4Size
	default:
		return m.BodySize
	}
}

// LineHeight returns the line height for a size class.
func (m Metrics) LineHeight(c SizeClass) float64 {
	return m.FontSize(c) * m.LineSpacing
}

// Measurer reports the rendered width of text in points.
type Measurer interface {
	Width(text string, style Style, size float64) float64
}

// ApproxMeasurer estimates widths from an average glyph width, expressed as
// a fraction of the font size. Bold text is widened slightly.
type ApproxMeasurer struct {
	// GlyphWidth is the average glyph width as a fraction of the size (default 0.5).
	GlyphWidth float64
}

// Width implements Measurer.
func (a ApproxMeasurer) Width(text string, style Style, size float64) float64 {
	gw := a.GlyphWidth
	if gw <= 0 {
		gw = 0.5
	}
	if style == StyleBold {
		gw *= 1.1
	}
	return float64(utf8.RuneCountInString(text)) * gw * size
}
