// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns source documents into plain text. Backends preserve
// reading order and join pages with a blank line. The Dispatcher routes a
// document to the backend registered for its media type.
package extract

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"mime"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/pdiddy/notes-engine/pkg/types"
)

// Sentinel errors returned by extractors.
var (
	ErrEmptyText            = errors.New("no text could be extracted")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

// Media types handled by TextExtractor.
const (
	MediaTypeText     = "text/plain"
	MediaTypeMarkdown = "text/markdown"
)

// Backend extracts the text of one document.
type Backend interface {
	Extract(ctx context.Context, doc types.SourceDocument) (string, error)
}

// Dispatcher routes documents to a Backend by media type.
type Dispatcher struct {
	routes map[string]Backend
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[string]Backend)}
}

// Register routes mediaType to b, replacing any earlier registration.
func (d *Dispatcher) Register(mediaType string, b Backend) *Dispatcher {
	d.routes[baseMediaType(mediaType)] = b
	return d
}

// MediaTypes returns the registered media types in sorted order.
func (d *Dispatcher) MediaTypes() []string {
	return slices.Sorted(maps.Keys(d.routes))
}

// Extract runs the backend registered for doc's media type. Whitespace-only
// output is reported as ErrEmptyText.
func (d *Dispatcher) Extract(ctx context.Context, doc types.SourceDocument) (string, error) {
	mt := baseMediaType(doc.MediaType)
	b, ok := d.routes[mt]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, doc.MediaType)
	}
	text, err := b.Extract(ctx, doc)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w from %s", ErrEmptyText, describe(doc))
	}
	return text, nil
}

// TextExtractor passes text documents through. Input that is not valid
// UTF-8 is decoded as Windows-1252.
type TextExtractor struct{}

// Extract implements Backend.
func (TextExtractor) Extract(_ context.Context, doc types.SourceDocument) (string, error) {
	data := doc.Data
	data = trimBOM(data)
	if utf8.Valid(data) {
		return normalizeNewlines(string(data)), nil
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", describe(doc), err)
	}
	return normalizeNewlines(string(s)), nil
}

// baseMediaType drops parameters such as "; charset=utf-8" and lowercases.
func baseMediaType(mt string) string {
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func describe(doc types.SourceDocument) string {
	if doc.Name != "" {
		return doc.Name
	}
	return "document"
}
