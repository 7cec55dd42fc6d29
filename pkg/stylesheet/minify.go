package stylesheet

import (
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
)

// MediaType of the sheets handled here.
const MediaType = "text/css"

// Minify strips whitespace and redundant syntax from a sheet.
func Minify(src []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc(MediaType, mincss.Minify)
	return m.Bytes(MediaType, src)
}
