package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adammathes/epubnorm/internal/fixture"
	"github.com/adammathes/epubnorm/pkg/epub"
	"github.com/adammathes/epubnorm/pkg/report"
)

func open(t *testing.T, opts fixture.Options) *epub.Document {
	t.Helper()
	st, err := fixture.Memory(opts)
	require.NoError(t, err)
	doc, err := epub.Open(st, epub.WithJournal(""))
	require.NoError(t, err)
	return doc
}

func locations(r *report.Report, code string) []string {
	var out []string
	for _, m := range r.ByCode(code) {
		out = append(out, m.Location)
	}
	return out
}

func TestVerifyOriginal(t *testing.T) {
	r := Verify(open(t, fixture.Options{SpacedName: true}))

	assert.True(t, r.IsValid(), "%v", r.Messages)
	assert.Equal(t, []string{"OEBPS/html/01_cover.html", "OEBPS/html/01_cover.html"}, locations(r, CodeContentLink))
}

func TestVerifyNormalized(t *testing.T) {
	doc := open(t, fixture.Options{Chapters: 2, ParagraphsPerChapter: 2, SpacedName: true})
	_, err := doc.Normalize()
	require.NoError(t, err)

	r := Verify(doc)
	assert.True(t, r.IsValid(), "%v", r.Messages)
	assert.Equal(t, []string{"OEBPS/0d6339-01_cover.xhtml"}, locations(r, CodeContentLink))
	assert.Empty(t, r.ByCode(CodeStylesheetURL))
	assert.Empty(t, r.ByCode(CodeTOCRef))
}

func TestVerifyBrokenTOC(t *testing.T) {
	r := Verify(open(t, fixture.Options{BrokenTOC: true}))
	assert.False(t, r.IsValid())
	assert.Equal(t, []string{"OEBPS/toc.ncx"}, locations(r, CodeTOCRef))
}

func TestVerifyMissingManifestFile(t *testing.T) {
	doc := open(t, fixture.Options{})
	require.NoError(t, doc.Storage().Remove("OEBPS/images/cover.jpg"))

	r := Verify(doc)
	assert.Len(t, r.ByCode(CodeManifestFile), 1)
	assert.Len(t, r.ByCode(CodeContentLink), 3)
	assert.Len(t, r.ByCode(CodeStylesheetURL), 1)
}

func TestResolves(t *testing.T) {
	st, err := fixture.Memory(fixture.Options{SpacedName: true})
	require.NoError(t, err)

	from := "OEBPS/html/002_alsoby.html"
	assert.True(t, resolves(st, from, "01_cover.html#x"))
	assert.True(t, resolves(st, from, "my%20chapter.html"))
	assert.True(t, resolves(st, from, "#fish"))
	assert.True(t, resolves(st, from, "https://example.com"))
	assert.True(t, resolves(st, from, " "))
	assert.False(t, resolves(st, from, "gone.html"))
}
