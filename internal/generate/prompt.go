// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate turns extracted document text into structured notes
// using a generative text service. Backends share one prompt, one error
// taxonomy and one retry policy.
package generate

import (
	"bytes"
	"context"
	"strings"
	"text/template"
)

// SystemInstruction is sent as the system prompt where the backend supports one.
const SystemInstruction = "You are a study assistant. You turn source material into clear, well-organised study notes."

// notesPromptTmpl appends the fixed note-taking instructions to the source text.
var notesPromptTmpl = template.Must(template.New("notes").Parse(`{{.Text}}

---

Make proper detailed notes of given topic which are provided above. The notes should be well-structured, covering key concepts, definitions, examples if applicable, and main takeaways. Organize them in a way that is easy to read and understand, possibly using headings, bullet points, or numbered lists.

Format the notes with these markers only:
- Start the first line with "## " followed by the topic; use "## " again only for major parts.
- Start section headings with "### " and sub-section headings with "#### ".
- Start list items with "- ".
- Mark key terms as **term** and light emphasis as *text*.
Do not use tables, code blocks, links or images.
`))

// Prompt builds the generation prompt for text.
func Prompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := notesPromptTmpl.Execute(&buf, struct{ Text string }{Text: strings.TrimSpace(text)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Backend generates text for a prompt.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Backend.
func (f BackendFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// cleanResponse trims whitespace and a surrounding markdown code fence.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```markdown"); ok {
		s = strings.TrimSuffix(rest, "```")
	} else if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = strings.TrimSuffix(rest, "```")
	}
	return strings.TrimSpace(s)
}
