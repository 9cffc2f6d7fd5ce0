// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/notes-engine/internal/markup"
)

// Preview renders notes as plain terminal text. It reads lines through the
// same classifier and title promotion as Layout, so the preview shows the
// same title and the same line order as the paginated document.
func Preview(raw, sourceName string) string {
	title, body := splitTitle(raw, sourceName)

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(underline(title, "="))
	b.WriteString("\n")

	prevBlank := true
	for _, line := range body {
		c := markup.Classify(line)
		if c.IsBlank() {
			prevBlank = true
			continue
		}
		if prevBlank || c.Role == markup.Heading {
			b.WriteString("\n")
		}
		prevBlank = false

		switch {
		case c.IsHeading(markup.LevelTitle):
			b.WriteString(c.Text + "\n" + underline(c.Text, "-") + "\n")
		case c.IsHeading(markup.LevelSub):
			b.WriteString(strings.ToUpper(c.Text) + "\n")
		case c.IsHeading(markup.LevelMinor):
			b.WriteString("_" + c.Text + "_\n")
		case c.Role == markup.ListItem:
			b.WriteString("  • " + c.Text + "\n")
		default:
			b.WriteString(c.Text + "\n")
		}
	}
	return b.String()
}

func underline(s, ch string) string {
	return strings.Repeat(ch, utf8.RuneCountInString(s))
}
