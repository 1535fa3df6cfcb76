package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"":                                     "",
		"plain text":                           "plain text",
		"<p>One</p><p>Two</p>":                 "One Two",
		"Line<br>break":                        "Line break",
		"Fish &amp; chips":                     "Fish & chips",
		"<b>bold</b>  and\n\t<i>italic</i>":    "bold and italic",
		"<script>alert(1)</script>visible":     "visible",
		"<style>p{color:red}</style><p>ok</p>": "ok",
		"<p>unterminated <a href='x'>link":     "unterminated link",
	}
	for in, want := range cases {
		assert.Equal(t, want, PlainText(in), "input %q", in)
	}
}

func TestLede(t *testing.T) {
	lede, more := Lede("  First sentence. Second one. Third.  ")
	assert.Equal(t, "First sentence.", lede)
	assert.Equal(t, "Second one. Third.", more)

	lede, more = Lede("No period")
	assert.Equal(t, "No period", lede)
	assert.Equal(t, "", more)

	lede, more = Lede("Only one.")
	assert.Equal(t, "Only one.", lede)
	assert.Equal(t, "", more)
}

func TestBlurb(t *testing.T) {
	assert.Equal(t, "short...", Blurb("<p>short</p>", BlurbLength))
	assert.Equal(t, strings.Repeat("é", 5)+"...", Blurb(strings.Repeat("é", 9), 5))
}
