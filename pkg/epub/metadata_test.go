package epub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adammathes/epubnorm/internal/fixture"
)

func TestMetadataGet(t *testing.T) {
	doc, _ := openFixture(t, fixture.Options{})
	md := doc.Metadata()

	assert.Equal(t, map[string]string{
		"title":       "Emerald Fixture",
		"isbn":        "9780000000002",
		"language":    "en",
		"creator":     "A. Author",
		"publisher":   "Fixture Press",
		"description": "A messy book.",
		"date":        "2011-03-04",
	}, md.All())

	_, err := md.Get("colour")
	assert.Error(t, err)
}

func TestMetadataSet(t *testing.T) {
	doc, st := openFixture(t, fixture.Options{})
	md := doc.Metadata()

	require.NoError(t, md.Set("title", "New Title"))
	require.NoError(t, md.Set("isbn", "978-1-23-456789-7"))
	require.NoError(t, md.Set("date", "2020-01-02T08:00:00"))
	assert.Error(t, md.Set("isbn", "123"))
	assert.Error(t, md.Set("date", "sometime"))

	md.element().RemoveChild(md.find("publisher"))
	_, err := md.Get("publisher")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, md.Set("publisher", "New Press"))

	reopened, err := Open(st, WithJournal(""))
	require.NoError(t, err)
	got := reopened.Metadata().All()
	assert.Equal(t, "New Title", got["title"])
	assert.Equal(t, "9781234567897", got["isbn"])
	assert.Equal(t, "2020-01-02", got["date"])
	assert.Equal(t, "New Press", got["publisher"])
}
