// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notes-engine/pkg/types"
)

func TestNewCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "pdf")
	w, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteDocument(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := w.WriteDocument(types.RenderedDocument{FileName: "syllabus-notes.pdf", Data: []byte("%PDF-1.3")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir, "syllabus-notes.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	// Overwrites in place and leaves no temp files behind.
	_, err = w.WriteDocument(types.RenderedDocument{FileName: "syllabus-notes.pdf", Data: []byte("v2")})
	require.NoError(t, err)
	entries, err := os.ReadDir(w.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "v2", string(data))
}

func TestWriteStripsDirectories(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := w.Write("../../escape.pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir, "escape.pdf"), path)

	_, err = w.Write("", []byte("x"))
	assert.Error(t, err)
}

func TestWriteNotes(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := w.WriteNotes("docs/lecture 3.pdf", "## Title\nbody")
	require.NoError(t, err)
	assert.Equal(t, "lecture 3-notes.md", filepath.Base(path))
	data, _ := os.ReadFile(path)
	assert.Equal(t, "## Title\nbody\n", string(data))

	path, err = w.WriteNotes("", "x\n")
	require.NoError(t, err)
	assert.Equal(t, "notes.md", filepath.Base(path))
}
