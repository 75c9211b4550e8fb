package rag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnsupportedType is returned for file types text cannot be extracted from.
var ErrUnsupportedType = errors.New("unsupported file type")

// ExtractText returns the plain text of an uploaded file. fileType is the
// lower-case extension without the dot.
func ExtractText(fileType string, data []byte) (string, error) {
	data = decodeBOM(data)
	switch fileType {
	case "txt", "md", "csv", "json":
		return normalize(string(data)), nil
	case "html", "htm":
		return extractHTML(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

// decodeBOM converts UTF-16 input to UTF-8 when it starts with a byte order
// mark and drops a UTF-8 mark. Input without a mark is returned unchanged.
func decodeBOM(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(data, []byte{0xFE, 0xFF}) &&
		!bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return data
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return data
	}
	return out
}

// normalize returns valid UTF-8 without NUL bytes, which Postgres text
// columns reject.
func normalize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// extractHTML collects visible text, skipping script, style and similar
// elements, and puts block-level elements on their own lines.
func extractHTML(data []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(data))
	var sb strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("parse html: %w", err)
			}
			return collapseLines(normalize(sb.String())), nil

		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if isInvisible(a) {
				skip++
			} else if isBlock(a) {
				sb.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if isBlock(atom.Lookup(name)) {
				sb.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if isInvisible(a) && skip > 0 {
				skip--
			} else if isBlock(a) {
				sb.WriteByte('\n')
			}

		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func isInvisible(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return true
	}
	return false
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr, atom.H1, atom.H2, atom.H3,
		atom.H4, atom.H5, atom.H6, atom.Section, atom.Article, atom.Pre, atom.Blockquote:
		return true
	}
	return false
}

// collapseLines squeezes runs of whitespace inside lines and drops empty lines.
func collapseLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
