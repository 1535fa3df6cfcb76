package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BlurbLength is how many characters of plain text an upcoming card shows.
const BlurbLength = 175

// PlainText strips markup from an HTML fragment and collapses whitespace.
// Script and style contents are dropped; block elements become word breaks.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF, or malformed input: keep what was read so far.
			return collapse(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch a {
			case atom.Script, atom.Style:
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case atom.Br, atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.H1, atom.H2, atom.H3, atom.H4:
				b.WriteByte(' ')
			}
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Lede splits a description at its first period. The lede keeps the period;
// the rest is trimmed. Text without a period is all lede.
func Lede(desc string) (lede, more string) {
	desc = strings.TrimSpace(desc)
	i := strings.IndexByte(desc, '.')
	if i < 0 {
		return desc, ""
	}
	return desc[:i+1], strings.TrimSpace(desc[i+1:])
}

// Blurb returns the first n characters of the description's plain text
// followed by "...".
func Blurb(desc string, n int) string {
	r := []rune(PlainText(desc))
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
