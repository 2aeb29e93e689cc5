package stage

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Details holds rich-text content blocks in the editor's JSON shape:
// [{"type": "p", "children": [{"text": "..."}]}, ...].
type Details []any

// DetailsFromText wraps plain text as one paragraph per line.
func DetailsFromText(s string) Details {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	d := make(Details, 0, len(lines))
	for _, line := range lines {
		d = append(d, map[string]any{
			"type":     "p",
			"children": []any{map[string]any{"text": line}},
		})
	}
	return d
}

// PlainText flattens the blocks, one line per top-level block.
func (d Details) PlainText() string {
	lines := make([]string, 0, len(d))
	for _, block := range d {
		var b strings.Builder
		collectText(block, &b)
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func (d Details) IsEmpty() bool {
	return strings.TrimSpace(d.PlainText()) == ""
}

func collectText(node any, b *strings.Builder) {
	switch n := node.(type) {
	case string:
		b.WriteString(n)
	case map[string]any:
		if t, ok := n["text"].(string); ok {
			b.WriteString(t)
		}
		if children, ok := n["children"].([]any); ok {
			for _, c := range children {
				collectText(c, b)
			}
		}
	case []any:
		for _, c := range n {
			collectText(c, b)
		}
	}
}

const (
	DefaultFontSize = 32.0
	TextPadding     = 14.0
	lineHeightRate  = 1.5
	narrowRate      = 0.6
)

// MeasureText estimates the rendered size of text without font metrics: narrow runes
// take 0.6 em, East Asian wide and fullwidth runes a full em.
func MeasureText(text string, fontSize float64) (w, h float64) {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		var lw float64
		for len(line) > 0 {
			r, size := utf8.DecodeRuneInString(line)
			line = line[size:]
			switch width.LookupRune(r).Kind() {
			case width.EastAsianWide, width.EastAsianFullwidth:
				lw += fontSize
			default:
				lw += fontSize * narrowRate
			}
		}
		w = max(w, lw)
	}
	return w, float64(len(lines)) * fontSize * lineHeightRate
}
