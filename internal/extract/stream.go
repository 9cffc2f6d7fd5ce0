// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// spaceKerning is the TJ displacement (in thousandths of an em) treated
// as a word gap.
const spaceKerning = 250

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokString
	tokNumber
	tokArrayStart
	tokArrayEnd
	tokOther
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// scanner tokenizes a PDF content stream.
type scanner struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *scanner) next() (token, bool) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			return token{kind: tokString, text: s.literal()}, true
		case c == '<':
			if s.peek(1) == '<' {
				s.pos += 2
				return token{kind: tokOther}, true
			}
			return token{kind: tokString, text: s.hex()}, true
		case c == '>':
			s.pos++
			if s.peek(0) == '>' {
				s.pos++
			}
			return token{kind: tokOther}, true
		case c == '[':
			s.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			s.pos++
			return token{kind: tokArrayEnd}, true
		case c == '/':
			s.pos++
			s.regular()
			return token{kind: tokOther}, true
		default:
			word := s.regular()
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				return token{kind: tokNumber, text: word, num: n}, true
			}
			return token{kind: tokOperator, text: word}, true
		}
	}
	return token{}, false
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.data) {
		return s.data[s.pos+off]
	}
	return 0
}

// regular reads a run of regular characters. A stray delimiter is consumed
// on its own so the scanner always advances.
func (s *scanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start && s.pos < len(s.data) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a parenthesised string, honouring nesting and escapes.
func (s *scanner) literal() string {
	s.pos++
	depth := 1
	var b []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return string(b)
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				b = append(b, '\n')
			case 'r':
				b = append(b, '\r')
			case 't':
				b = append(b, '\t')
			case 'b':
				b = append(b, '\b')
			case 'f':
				b = append(b, '\f')
			case '\r':
				if s.peek(0) == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.peek(0) >= '0' && s.peek(0) <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					b = append(b, byte(v))
				} else {
					b = append(b, e)
				}
			}
		case '(':
			depth++
			b = append(b, c)
		case ')':
			depth--
			if depth == 0 {
				return string(b)
			}
			b = append(b, c)
		default:
			b = append(b, c)
		}
	}
	return string(b)
}

// hex reads a <...> string. An odd final digit is padded with zero.
func (s *scanner) hex() string {
	s.pos++
	var b []byte
	hi, have := byte(0), false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		v, ok := hexValue(c)
		if !ok {
			continue
		}
		if have {
			b = append(b, hi<<4|v)
			have = false
		} else {
			hi, have = v, true
		}
	}
	if have {
		b = append(b, hi<<4)
	}
	return string(b)
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// skipInlineImage moves past inline image data up to its EI operator.
func (s *scanner) skipInlineImage() {
	for {
		i := bytes.Index(s.data[s.pos:], []byte("EI"))
		if i < 0 {
			s.pos = len(s.data)
			return
		}
		at := s.pos + i
		s.pos = at + 2
		if at > 0 && isSpace(s.data[at-1]) && (s.pos >= len(s.data) || isSpace(s.data[s.pos])) {
			return
		}
	}
}

// pageText collects the text shown by a content stream. Text positioning
// that moves to a new line, and the end of a text object, start a new
// output line.
func pageText(content []byte) string {
	s := &scanner{data: content}
	var (
		out      strings.Builder
		operands []token
		array    []token
		inArray  bool
	)

	lastString := func() {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == tokString {
				out.WriteString(decodeText(operands[i].text))
				return
			}
		}
	}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokArrayStart:
			inArray, array = true, nil
		case tokArrayEnd:
			inArray = false
		case tokString, tokNumber:
			if inArray {
				array = append(array, tok)
			} else {
				operands = append(operands, tok)
			}
		case tokOperator:
			switch tok.text {
			case "Tj":
				lastString()
			case "'", "\"":
				out.WriteByte('\n')
				lastString()
			case "TJ":
				for _, el := range array {
					if el.kind == tokString {
						out.WriteString(decodeText(el.text))
					} else if el.num <= -spaceKerning {
						out.WriteByte(' ')
					}
				}
			case "Td", "TD":
				if len(operands) >= 2 && operands[len(operands)-1].num != 0 {
					out.WriteByte('\n')
				} else {
					out.WriteByte(' ')
				}
			case "T*", "Tm", "ET":
				out.WriteByte('\n')
			case "ID":
				s.skipInlineImage()
			}
			operands = operands[:0]
			if !inArray {
				array = nil
			}
		}
	}
	return normalizeLines(out.String())
}

// decodeText converts a PDF string to UTF-8. Strings with a UTF-16 byte
// order mark are decoded as UTF-16BE, everything else as Windows-1252.
func decodeText(raw string) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		u := make([]uint16, 0, (len(raw)-2)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			u = append(u, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(u))
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// normalizeLines collapses runs of whitespace within each line and drops
// empty lines.
func normalizeLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			lines = append(lines, strings.Join(f, " "))
		}
	}
	return strings.Join(lines, "\n")
}
