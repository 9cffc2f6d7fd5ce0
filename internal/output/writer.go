// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes rendered documents and note sources to disk.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/notes-engine/pkg/types"
)

// NotesExtension is the extension of saved note markup.
const NotesExtension = ".md"

// Writer writes files into a single output directory. Every write goes
// through a temporary file and a rename, so a reader never sees a partial
// document.
type Writer struct {
	Dir string
}

// New creates a Writer for dir, creating the directory if needed. An empty
// dir means the working directory.
func New(dir string) (*Writer, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{Dir: dir}, nil
}

// WriteDocument writes a rendered document under its suggested file name and
// returns the written path.
func (w *Writer) WriteDocument(doc types.RenderedDocument) (string, error) {
	return w.Write(doc.FileName, doc.Data)
}

// WriteNotes writes note markup next to the rendered output, named after
// the source document.
func (w *Writer) WriteNotes(sourceName, notes string) (string, error) {
	name := "notes" + NotesExtension
	if base := types.BaseName(sourceName); base != "" {
		name = base + "-notes" + NotesExtension
	}
	if !strings.HasSuffix(notes, "\n") {
		notes += "\n"
	}
	return w.Write(name, []byte(notes))
}

// Write atomically writes data to name inside the output directory. Any
// directory components of name are dropped.
func (w *Writer) Write(name string, data []byte) (string, error) {
	name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errors.New("writing output: empty file name")
	}
	dest := filepath.Join(w.Dir, name)

	tmp, err := os.CreateTemp(w.Dir, ".notes-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", name, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return dest, nil
}
