package stylesheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSS = `@charset "utf-8";
/* a comment */
@font-face { font-family: "Serif"; src: url(../fonts/serif.otf); }
body { font-size: 24px; background: url("../images/cover.jpg"); }
p, h1 { margin: 12pt 0; }
.empty { }
`

func TestToIndented(t *testing.T) {
	out, err := ToIndented([]byte(sampleCSS))
	require.NoError(t, err)

	assert.Contains(t, out, "@font-face\n")
	assert.Contains(t, out, "\n  src: url(../fonts/serif.otf)\n")
	assert.Contains(t, out, "\nbody\n  font-size: 24px\n")
	assert.Contains(t, out, "\np, h1\n  margin: 12pt 0\n")
	assert.NotContains(t, out, "comment")
	assert.NotContains(t, out, ".empty")
}

func TestToCSS(t *testing.T) {
	in := "@import url(base.css)\n" +
		"@font-face\n" +
		"  font-family: \"Serif\"\n" +
		".epub_main\n" +
		"  body&\n" +
		"    font-size: 1.50em\n" +
		"  p, h1\n" +
		"    margin: 1.00em 0\n" +
		"    a:hover\n" +
		"      color: red\n" +
		"@media screen\n" +
		"  p\n" +
		"    color: blue\n"

	want := "@import url(base.css);\n" +
		"@font-face {\n" +
		"  font-family: \"Serif\";\n" +
		"}\n" +
		"body.epub_main {\n" +
		"  font-size: 1.50em;\n" +
		"}\n" +
		".epub_main p, .epub_main h1 {\n" +
		"  margin: 1.00em 0;\n" +
		"}\n" +
		".epub_main p a:hover, .epub_main h1 a:hover {\n" +
		"  color: red;\n" +
		"}\n" +
		"@media screen {\n" +
		"  p {\n" +
		"    color: blue;\n" +
		"  }\n" +
		"}\n"

	assert.Equal(t, want, ToCSS(in))
}

func TestToEm(t *testing.T) {
	tests := map[string]string{
		"24px":    "1.50em",
		"12pt":    "1.00em",
		"2em":     "2.00em",
		".5em":    "0.50em",
		"150%":    "1.50em",
		"-8px":    "-0.50em",
		"x-large": "1.50em",
		"medium":  "1.00em",
		"smaller": "0.80em",
		"larger":  "1.20em",
		"1rem":    "1rem",
		"auto":    "auto",
		"0":       "0",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToEm(in), "ToEm(%q)", in)
	}
}

func TestConvertSizes(t *testing.T) {
	in := "body\n  font-size: 24px\n  color: red\n  margin-top: 12pt auto\n  padding:8px\n"
	want := "body\n  font-size: 1.50em\n  color: red\n  margin-top: 1.00em auto\n  padding: 0.50em\n"
	assert.Equal(t, want, ConvertSizes(in))
}

func TestConvertSizesImportant(t *testing.T) {
	in := "p\n  margin: 8px!important\n  padding: 16px 8px ! important\n  font-size: 12pt !IMPORTANT\n"
	want := "p\n  margin: 0.50em !important\n  padding: 1.00em 0.50em !important\n  font-size: 1.00em !important\n"
	assert.Equal(t, want, ConvertSizes(in))
}

func TestHoistAtRules(t *testing.T) {
	in := "p\n  color: red\n@font-face\n  font-family: x\n@import url(a.css)\nh1\n  color: blue\n"
	blocks, rest := HoistAtRules(in)
	assert.Equal(t, []string{"@font-face\n  font-family: x\n", "@import url(a.css)\n"}, blocks)
	assert.Equal(t, "p\n  color: red\nh1\n  color: blue\n", rest)
}

func TestNamespace(t *testing.T) {
	in := "@charset \"utf-8\"\n@font-face\n  font-family: x\nbody\n  color: red\nhtml\n  margin: 0\np\n  color: blue\n"
	out, dropped := Namespace(in, "epub_main")

	assert.Equal(t, []string{`@charset "utf-8"`}, dropped)
	assert.Equal(t, "@font-face\n  font-family: x\n"+
		".epub_main\n"+
		"  body&\n    color: red\n"+
		"  &\n    margin: 0\n"+
		"  p\n    color: blue\n", out)

	css := ToCSS(out)
	assert.Contains(t, css, "body.epub_main {\n  color: red;\n}\n")
	assert.Contains(t, css, ".epub_main {\n  margin: 0;\n}\n")
	assert.Contains(t, css, ".epub_main p {\n  color: blue;\n}\n")
	assert.True(t, strings.HasPrefix(css, "@font-face {"))
}

func TestScopeSelector(t *testing.T) {
	tests := map[string]string{
		"html":         "&",
		"html body":    "body&",
		"html > p":     "p",
		"body":         "body&",
		"body.chapter": "body&.chapter",
		"body > p":     "body& > p",
		"bodyish":      "bodyish",
		"p.body":       "p.body",
	}
	for in, want := range tests {
		assert.Equal(t, want, scopeSelector(in), "scopeSelector(%q)", in)
	}
}

func TestNamespaceClass(t *testing.T) {
	assert.Equal(t, "epub_c43968-emerald", NamespaceClass("OEBPS/c43968-emerald.css"))
	assert.Equal(t, "epub_my_file", NamespaceClass("my%20file.css"))
	assert.Equal(t, "epub_a_b_", NamespaceClass("a.b(.css"))
}

func TestRewriteURLs(t *testing.T) {
	in := "  background: url(\"a.png\")\n" +
		"  src: url( 'fonts/b.otf#x' )\n" +
		"  list: url(c.gif)\n" +
		"  logo: url(http://example.com/x.png)\n" +
		"  img: url(data:image/png;base64,AAAA)\n" +
		"  empty: url()\n" +
		"@import \"d.css\"\n"

	var seen []string
	out := RewriteURLs(in, func(ref string) (string, bool) {
		seen = append(seen, ref)
		if ref == "c.gif" {
			return "", false
		}
		return "assets/" + ref, true
	})

	assert.Equal(t, []string{"a.png", "fonts/b.otf#x", "c.gif", "d.css"}, seen)
	assert.Contains(t, out, `url("assets/a.png")`)
	assert.Contains(t, out, `url( 'assets/fonts/b.otf#x' )`)
	assert.Contains(t, out, `url(c.gif)`)
	assert.Contains(t, out, `url(http://example.com/x.png)`)
	assert.Contains(t, out, `url(data:image/png;base64,AAAA)`)
	assert.Contains(t, out, `url()`)
	assert.Contains(t, out, `@import "assets/d.css"`)
}

func TestReferences(t *testing.T) {
	refs := References("a\n  b: url(x.png)\n  c: url(https://x/y)\n")
	assert.Equal(t, []string{"x.png"}, refs)
}

func TestMinify(t *testing.T) {
	out, err := Minify([]byte("body {\n  color: red;\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", string(out))
}
