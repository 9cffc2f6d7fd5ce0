// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/notes-engine/pkg/types"
)

var disableConfigDir sync.Once

// PDFExtractor reads text from PDF content streams with pdfcpu. It handles
// PDFs whose fonts use a single-byte encoding; scanned pages and CID fonts
// yield no text and need the markitdown backend.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFExtractor{}
}

// Extract implements Backend. Pages without text are skipped.
func (p *PDFExtractor) Extract(ctx context.Context, doc types.SourceDocument) (string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.Data), conf)
	if err != nil {
		return "", fmt.Errorf("reading pdf %s: %w", describe(doc), err)
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	for nr := 1; nr <= pdfCtx.PageCount; nr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, nr)
		if err != nil {
			return "", fmt.Errorf("reading page %d of %s: %w", nr, describe(doc), err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading page %d of %s: %w", nr, describe(doc), err)
		}
		if text := pageText(content); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, PageSeparator), nil
}
