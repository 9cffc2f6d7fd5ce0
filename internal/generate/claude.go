// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/notes-engine/internal/httputil"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const (
	// DefaultClaudeModel is used when no model is configured.
	DefaultClaudeModel = "claude-sonnet-4-5-20250929"

	defaultMaxTokens = 8192
)

// ClaudeBackend generates notes with the Claude Messages API.
type ClaudeBackend struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client

	// RateLimitRetries bounds the HTTP 429 retries done by httputil.DoWithRetry.
	RateLimitRetries int
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements Backend.
func (c *ClaudeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", &Error{Kind: KindInvalidCredentials, Err: errors.New("no Anthropic API key configured")}
	}
	model := c.Model
	if model == "" {
		model = DefaultClaudeModel
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    SystemInstruction,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.RateLimitRetries)
	if err != nil {
		return "", classified(fmt.Errorf("calling Claude API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{
			Kind: kindForStatus(resp.StatusCode),
			Err:  fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, errorMessage(body)),
		}
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", &Error{Kind: KindUnknown, Err: fmt.Errorf("decoding Claude response: %w", err)}
	}

	var text strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	notes := cleanResponse(text.String())
	if notes == "" {
		return "", &Error{Kind: KindUnknown, Err: errors.New("no text content in Claude API response")}
	}
	return notes, nil
}

// errorMessage extracts the message of an API error body, falling back to
// the raw body.
func errorMessage(body []byte) string {
	var eb claudeErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	return strings.TrimSpace(string(body))
}
