// Package sanitize reduces model or scraped output to plain text before it
// is stored on a listing.
package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML removes markup from s and decodes entities. Text inside script
// and style elements is dropped. Line breaks are kept.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "li", "div":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div":
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Text strips markup and normalizes whitespace while keeping paragraph
// breaks. Use for long-form copy.
func Text(s string) string {
	lines := strings.Split(StripHTML(s), "\n")
	paragraphs := make([]string, 0, len(lines))
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paragraphs = append(paragraphs, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return strings.Join(paragraphs, "\n\n")
}

// Line strips markup and collapses all whitespace to single spaces.
func Line(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}

// Lines applies Line to every element and drops the ones left empty.
func Lines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = Line(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
