package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &Goldmark{}, r)

	r, err = New("Basic")
	require.NoError(t, err)
	assert.IsType(t, Basic{}, r)

	_, err = New("pandoc")
	assert.Error(t, err)
}

func TestBasic_Headers(t *testing.T) {
	out, err := Basic{}.Render("# One\n## Two\n### Three")
	require.NoError(t, err)
	assert.Equal(t, "<h1>One</h1><br><h2>Two</h2><br><h3>Three</h3>", string(out))
}

func TestBasic_BoldBeforeItalic(t *testing.T) {
	out, _ := Basic{}.Render("**bold** and *soft*")
	// Bold runs first; the greedy italic rule then sees no "*" left in the
	// bold span and only wraps the single-star text.
	assert.Equal(t, "<strong>bold</strong> and <em>soft</em>", string(out))
}

func TestBasic_CodeAndLinks(t *testing.T) {
	out, _ := Basic{}.Render("see `x := 1` and [docs](https://go.dev)")
	assert.Equal(t, `see <code>x := 1</code> and <a href="https://go.dev">docs</a>`, string(out))
}

func TestBasic_FencedCode(t *testing.T) {
	out, _ := Basic{}.Render("```\nnpm start\n```")
	assert.Equal(t, "<pre><code><br>npm start<br></code></pre>", string(out))
}

func TestBasic_DoesNotEscapeHTML(t *testing.T) {
	out, _ := Basic{}.Render("<b>raw</b>")
	assert.Equal(t, "<b>raw</b>", string(out))
}

func TestGoldmark_Render(t *testing.T) {
	g := NewGoldmark()
	out, err := g.Render("# Title\n\nSome **bold** text.")
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<h1 id="title">Title</h1>`)
	assert.Contains(t, s, "<strong>bold</strong>")
}

func TestGoldmark_RawHTMLOmitted(t *testing.T) {
	out, err := NewGoldmark().Render("<script>alert(1)</script>\n\ntext")
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(out), "<script>"))
}

func TestGoldmark_Empty(t *testing.T) {
	out, err := NewGoldmark().Render("   ")
	require.NoError(t, err)
	assert.Empty(t, out)
}
