// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path"
	"strings"
)

// MediaTypePDF is the media type accepted by the pipeline by default.
const MediaTypePDF = "application/pdf"

// SourceDocument is a user-selected input: an opaque byte buffer plus the
// declared media type. Name is the original file name and may be empty.
type SourceDocument struct {
	Name      string
	MediaType string
	Data      []byte
}

// BaseName returns the file name without directory and extension, or ""
// when the document has no name.
func (d SourceDocument) BaseName() string {
	return BaseName(d.Name)
}

// RenderedDocument is the binary output of the rendering stage.
type RenderedDocument struct {
	// FileName is the suggested output file name (e.g. "syllabus-notes.pdf").
	FileName string

	// MediaType of Data (e.g. "application/pdf").
	MediaType string

	Data []byte
}

// BaseName strips directory and extension from a file name or URL path.
func BaseName(name string) string {
	if name == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
