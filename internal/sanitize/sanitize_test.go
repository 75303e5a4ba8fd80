package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text untouched", in: "Just words", want: "Just words"},
		{
			name: "inline tags and entities",
			in:   "<p>A <strong>B</strong> &nbsp;C&#39;s</p>",
			want: "A B  C's",
		},
		{name: "block tags become word boundaries", in: "<p>One</p><p>Two</p>", want: "One Two"},
		{name: "line break", in: "first<br>second<br/>third", want: "first second third"},
		{name: "list items", in: "<ul><li>red</li><li>blue</li></ul>", want: "red blue"},
		{name: "named entities", in: "Tom &amp; Jerry &eacute;t&eacute;", want: "Tom & Jerry \u00e9t\u00e9"},
		{name: "numeric entities", in: "&#8220;quoted&#8221; &#x41;", want: "“quoted” A"},
		{name: "script content dropped", in: "<script>alert(1)</script>Hi", want: "Hi"},
		{name: "malformed markup", in: "<b>bold <i>unclosed", want: "bold unclosed"},
		{name: "comments dropped", in: "a<!-- hidden -->b", want: "ab"},
		{name: "decomposed accents composed", in: "cafe\u0301", want: "caf\u00e9"},
		{name: "surrounding whitespace trimmed", in: "  <div> padded </div>  ", want: "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_NoResidualMarkup(t *testing.T) {
	out := Text(`<div class="x"><h2>Title</h2><p>Body &lt;ok&gt; &nbsp;&quot;q&quot;</p></div>`)

	assert.Equal(t, `Title Body <ok>  "q"`, out)
	assert.NotContains(t, out, "&nbsp;")
	assert.NotContains(t, out, "&quot;")
	assert.False(t, strings.ContainsRune(out, '\u00a0'))
}
