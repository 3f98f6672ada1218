package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"plain text", "Recorded live in 1959.", "Recorded live in 1959."},
		{"paragraphs", "<p>First pressing.</p><p>Remastered 2009.</p>", "First pressing.\nRemastered 2009."},
		{"nested inline", "<p><strong>Kind</strong> of <em>Blue</em></p>", "Kind of Blue"},
		{"br variants", "One<br>Two<br/>Three<br />Four", "One\nTwo\nThree\nFour"},
		{"entities", "Simon &amp; Garfunkel&nbsp;&mdash; live", "Simon & Garfunkel — live"},
		{"script dropped", "<p>Bio</p><script>alert(1)</script><style>p{}</style>", "Bio"},
		{"uppercase tags", "<P>Loud</P><DIV>Quiet</DIV>", "Loud\nQuiet"},
		{"whitespace collapsed", "<p>  lots   of\tspace  </p>\n\n\n<p>next</p>", "lots of space\nnext"},
		{"unclosed tag", "<p>Dangling", "Dangling"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripTags(tt.input))
		})
	}
}
