// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for geometry validation.
var (
	ErrInvalidGeometry = errors.New("invalid page geometry")
	ErrUnknownPageSize = errors.New("unknown page size")
)

// Geometry is the fixed page size and uniform margin, in points.
type Geometry struct {
	PageWidth  float64 `json:"page_width" yaml:"page_width"`
	PageHeight float64 `json:"page_height" yaml:"page_height"`
	Margin     float64 `json:"margin" yaml:"margin"`
}

// DefaultMargin is the margin used when none is configured.
const DefaultMargin = 56.0

// pageSizes maps named page sizes to portrait width and height in points.
var pageSizes = map[string][2]float64{
	"a4":     {595.28, 841.89},
	"letter": {612, 792},
	"legal":  {612, 1008},
}

// PageSize returns the geometry of a named page size ("a4", "letter",
// "legal") with the given margin. A non-positive margin uses DefaultMargin.
func PageSize(name string, margin float64) (Geometry, error) {
	dims, ok := pageSizes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Geometry{}, fmt.Errorf("%w: %q (use a4, letter, or legal)", ErrUnknownPageSize, name)
	}
	if margin <= 0 {
		margin = DefaultMargin
	}
	g := Geometry{PageWidth: dims[0], PageHeight: dims[1], Margin: margin}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// A4 returns A4 portrait geometry with the default margin.
func A4() Geometry {
	return Geometry{PageWidth: pageSizes["a4"][0], PageHeight: pageSizes["a4"][1], Margin: DefaultMargin}
}

// Validate checks that the geometry leaves a printable area.
func (g Geometry) Validate() error {
	if g.PageWidth <= 0 || g.PageHeight <= 0 {
		return fmt.Errorf("%w: page size %.2fx%.2f", ErrInvalidGeometry, g.PageWidth, g.PageHeight)
	}
	if g.Margin < 0 {
		return fmt.Errorf("%w: negative margin %.2f", ErrInvalidGeometry, g.Margin)
	}
	if g.TextWidth() <= 0 || g.TextHeight() <= 0 {
		return fmt.Errorf("%w: margin %.2f leaves no printable area", ErrInvalidGeometry, g.Margin)
	}
	return nil
}

// TextWidth is the printable width between the left and right margins.
func (g Geometry) TextWidth() float64 {
	return g.PageWidth - 2*g.Margin
}

// TextHeight is the printable height between the top and bottom margins.
func (g Geometry) TextHeight() float64 {
	return g.PageHeight - 2*g.Margin
}

// bottom is the lowest y a line may reach.
func (g Geometry) bottom() float64 {
	return g.PageHeight - g.Margin
}
