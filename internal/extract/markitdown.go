// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdiddy/notes-engine/internal/container"
	"github.com/pdiddy/notes-engine/pkg/types"
)

// ImageMarkitdown is the container image used by MarkitdownExtractor.
const ImageMarkitdown = "markitdown:latest"

// MarkitdownExtractor extracts text by piping the document through the
// markitdown container image. It handles documents the native PDF
// extractor cannot, at the cost of a container start per document.
type MarkitdownExtractor struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownExtractor verifies that the markitdown image exists in rt.
func NewMarkitdownExtractor(ctx context.Context, rt container.Runtime) (*MarkitdownExtractor, error) {
	if err := rt.ImageExists(ctx, ImageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownExtractor{runtime: rt, image: ImageMarkitdown}, nil
}

// Extract implements Backend.
func (m *MarkitdownExtractor) Extract(ctx context.Context, doc types.SourceDocument) (string, error) {
	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, bytes.NewReader(doc.Data), &out); err != nil {
		return "", fmt.Errorf("converting %s with markitdown: %w", describe(doc), err)
	}
	return normalizeNewlines(out.String()), nil
}
