// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source loads user-selected documents from local paths or http(s)
// URLs into memory and determines their media type.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/notes-engine/internal/httputil"
	"github.com/pdiddy/notes-engine/pkg/types"
)

// MaxSize is the largest document Load accepts.
const MaxSize = 64 << 20

// ErrTooLarge is returned for documents over MaxSize.
var ErrTooLarge = errors.New("document too large")

const downloadRetries = 3

var extMediaTypes = map[string]string{
	".pdf":      types.MediaTypePDF,
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
}

// IsURL reports whether ref is an http or https URL.
func IsURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load reads ref, a file path or an http(s) URL, into a SourceDocument.
func Load(ctx context.Context, client *http.Client, ref string) (types.SourceDocument, error) {
	if IsURL(ref) {
		return fetch(ctx, client, ref)
	}
	return readFile(ref)
}

func readFile(p string) (types.SourceDocument, error) {
	info, err := os.Stat(p)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("reading %s: %w", p, err)
	}
	if info.IsDir() {
		return types.SourceDocument{}, fmt.Errorf("reading %s: is a directory", p)
	}
	if info.Size() > MaxSize {
		return types.SourceDocument{}, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrTooLarge, p, info.Size(), MaxSize)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("reading %s: %w", p, err)
	}
	name := filepath.Base(p)
	return types.SourceDocument{Name: name, MediaType: DetectMediaType(name, data), Data: data}, nil
}

func fetch(ctx context.Context, client *http.Client, rawURL string) (types.SourceDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf, text/plain;q=0.9, */*;q=0.5")

	resp, err := httputil.DoWithRetry(ctx, client, req, downloadRetries)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.SourceDocument{}, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("reading download: %w", err)
	}
	if len(data) > MaxSize {
		return types.SourceDocument{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, rawURL, MaxSize)
	}

	name := downloadName(rawURL, resp.Header.Get("Content-Disposition"))
	mediaType := DetectMediaType(name, data)
	if ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && ct != "application/octet-stream" && ct != mediaType {
		// Trust a recognised file signature over a generic server header.
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			mediaType = ct
		}
	}
	return types.SourceDocument{Name: name, MediaType: mediaType, Data: data}, nil
}

// downloadName prefers the Content-Disposition filename, then the last URL
// path segment.
func downloadName(rawURL, disposition string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if fn := path.Base(strings.ReplaceAll(params["filename"], "\\", "/")); fn != "" && fn != "." && fn != "/" {
			return fn
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return ""
}

// DetectMediaType determines a document's media type from its content
// signature, then its file extension, then content sniffing.
func DetectMediaType(name string, data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return types.MediaTypePDF
	}
	if mt, ok := extMediaTypes[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}
