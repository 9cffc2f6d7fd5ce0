// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// DefaultVertexModel is used when no model is configured.
const DefaultVertexModel = "gemini-2.0-flash"

// contentGenerator is the part of *genai.GenerativeModel the backend uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexBackend generates notes with a Gemini model on Vertex AI.
// Credentials come from Application Default Credentials.
type VertexBackend struct {
	client *genai.Client
	model  contentGenerator
}

// NewVertexBackend connects to Vertex AI in project and location.
func NewVertexBackend(ctx context.Context, project, location, model string) (*VertexBackend, error) {
	if project == "" || location == "" {
		return nil, &Error{Kind: KindInvalidCredentials, Err: errors.New("vertex backend needs a project and a location")}
	}
	if model == "" {
		model = DefaultVertexModel
	}

	client, err := genai.NewClient(ctx, project, location)
	if err != nil {
		return nil, classified(fmt.Errorf("genai.NewClient: %w", err))
	}

	gm := client.GenerativeModel(model)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}
	gm.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: genai.Ptr[int32](defaultMaxTokens),
	}

	return &VertexBackend{client: client, model: gm}, nil
}

// Generate implements Backend.
func (v *VertexBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classified(fmt.Errorf("calling Vertex AI: %w", err))
	}
	notes := cleanResponse(responseText(resp))
	if notes == "" {
		return "", &Error{Kind: KindUnknown, Err: errors.New("Vertex AI returned no text")}
	}
	return notes, nil
}

// Close releases the underlying client.
func (v *VertexBackend) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
