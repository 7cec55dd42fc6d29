package epub

import (
	"strings"

	"github.com/adammathes/epubnorm/pkg/paths"
)

// DefaultMediaType is used for files with an unknown extension.
const DefaultMediaType = "application/octet-stream"

func extOf(href string) string {
	p, _ := paths.SplitFragment(href)
	return strings.ToLower(paths.Ext(p))
}

// MediaTypeFor infers a media type from the extension of p.
func MediaTypeFor(p string) string {
	switch extOf(p) {
	case ".xhtml", ".html", ".htm":
		return "application/xhtml+xml"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	case ".ncx":
		return "application/x-dtbncx+xml"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	case ".ttf":
		return "font/ttf"
	case ".otf":
		return "font/otf"
	case ".mp3":
		return "audio/mpeg"
	case ".mp4":
		return "video/mp4"
	case ".smil":
		return "application/smil+xml"
	case ".xml":
		return "application/xml"
	case ".txt":
		return "text/plain"
	}
	return DefaultMediaType
}
