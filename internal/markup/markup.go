// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markup classifies single lines of lightweight markup (headings,
// list items, emphasis) and returns their cleaned display text. Both the
// paginated layout and the on-screen preview read lines through Classify.
package markup

import (
	"regexp"
	"strings"
)

// Role is the structural role of a line.
type Role int

const (
	Plain Role = iota
	Heading
	ListItem
)

func (r Role) String() string {
	switch r {
	case Heading:
		return "heading"
	case ListItem:
		return "list-item"
	default:
		return "plain"
	}
}

// MarshalText encodes the role by name in YAML and JSON dumps.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Heading levels recognised by the classifier. A top-level heading is the
// candidate document title.
const (
	LevelTitle = 2
	LevelSub   = 3
	LevelMinor = 4
)

// Classification is the result of classifying one line.
type Classification struct {
	Role Role

	// Level is the heading level (2, 3 or 4) for Heading lines, 0 otherwise.
	Level int

	// Text is the display text with structural and emphasis markers removed.
	Text string
}

// IsBlank reports whether the line carries no text.
func (c Classification) IsBlank() bool {
	return c.Role == Plain && c.Text == ""
}

// IsHeading reports whether the line is a heading of the given level.
func (c Classification) IsHeading(level int) bool {
	return c.Role == Heading && c.Level == level
}

var (
	strongPattern = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	lightPattern  = regexp.MustCompile(`\*([^*]+)\*`)
)

// Classify determines the structural role of line and its cleaned text.
// Detection order is heading-2, heading-3, heading-4, list item, plain;
// marker runs must have exactly the defined length. Classifying the
// returned Text again always yields Plain with identical text.
func Classify(line string) Classification {
	trimmed := strings.TrimSpace(line)
	role, level, rest := marker(trimmed)
	return Classification{
		Role:  role,
		Level: level,
		Text:  clean(rest),
	}
}

// marker detects the structural marker at the start of a trimmed line and
// returns the remainder after it. Plain lines are returned unchanged.
func marker(s string) (Role, int, string) {
	hashes := 0
	for hashes < len(s) && s[hashes] == '#' {
		hashes++
	}
	if hashes >= LevelTitle && hashes <= LevelMinor && hashes < len(s) && s[hashes] == ' ' {
		return Heading, hashes, s[hashes+1:]
	}
	if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") {
		return ListItem, 0, s[2:]
	}
	return Plain, 0, s
}

// clean strips emphasis markers, and any structural marker uncovered by
// doing so, until the text no longer changes.
func clean(s string) string {
	s = strings.TrimSpace(s)
	for {
		next := strings.TrimSpace(stripEmphasis(s))
		if role, _, rest := marker(next); role != Plain {
			next = strings.TrimSpace(rest)
		}
		if next == s {
			return s
		}
		s = next
	}
}

// stripEmphasis replaces **text** and then *text* with their inner text.
func stripEmphasis(s string) string {
	s = strongPattern.ReplaceAllString(s, "$1")
	return lightPattern.ReplaceAllString(s, "$1")
}
