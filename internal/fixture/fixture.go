// Package fixture builds small, deliberately disorganized EPUB 2 books
// for tests: nested directories, .html documents, an unlisted image, a
// script, a missing link and a TOC whose play order differs from its
// document order.
package fixture

import (
	"fmt"
	"strings"

	"github.com/adammathes/epubnorm/pkg/archive"
	"github.com/adammathes/epubnorm/pkg/paths"
)

// Root is the directory holding the book's content.
const Root = "OEBPS"

// Options tweak the generated book.
type Options struct {
	// PackagePath is where the package document is written. The default
	// is OEBPS/content.opf.
	PackagePath string
	// Chapters adds generated chapters to the manifest, spine and TOC.
	Chapters int
	// ParagraphsPerChapter sizes the generated chapters.
	ParagraphsPerChapter int
	// BrokenTOC adds a TOC entry pointing at a file that does not exist.
	BrokenTOC bool
	// SpacedName adds a chapter whose file name contains a space.
	SpacedName bool
}

func (o Options) packagePath() string {
	if o.PackagePath == "" {
		return Root + "/content.opf"
	}
	return o.PackagePath
}

// Cover image bytes.
var (
	CoverJPEG = []byte("\xff\xd8\xff\xe0fixture-cover")
	ExtraPNG  = []byte("\x89PNG\r\n\x1a\nfixture-extra")
	SerifOTF  = []byte("OTTOfixture-font")
)

// Files returns every entry of the book keyed by archive path.
func Files(opts Options) map[string][]byte {
	pkg := opts.packagePath()
	files := map[string][]byte{
		archive.MimetypeName:           []byte(archive.EPUBMimetype),
		"META-INF/container.xml":       []byte(container(pkg)),
		pkg:                            []byte(packageDocument(opts)),
		Root + "/toc.ncx":              []byte(ncx(opts)),
		Root + "/html/01_cover.html":   []byte(coverHTML),
		Root + "/html/002_alsoby.html": []byte(alsoByHTML(opts)),
		Root + "/css/emerald.css":      []byte(emeraldCSS),
		Root + "/images/cover.jpg":     CoverJPEG,
		Root + "/images/extra.png":     ExtraPNG,
		Root + "/fonts/serif.otf":      SerifOTF,
	}
	if opts.SpacedName {
		files[Root+"/html/my chapter.html"] = []byte(chapterHTML("My Chapter", 1))
	}
	for n := 1; n <= opts.Chapters; n++ {
		files[chapterPath(n)] = []byte(chapterHTML(fmt.Sprintf("Chapter %d", n), opts.ParagraphsPerChapter))
	}
	return files
}

// Build writes the book into st.
func Build(st archive.Storage, opts Options) error {
	for name, data := range Files(opts) {
		if err := st.Write(name, data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// Memory returns the book in an in-memory storage.
func Memory(opts Options) (*archive.FS, error) {
	st := archive.NewMemory()
	if err := Build(st, opts); err != nil {
		return nil, err
	}
	return st, nil
}

// WriteZip writes the book as an EPUB file.
func WriteZip(zipPath string, opts Options) error {
	st, err := Memory(opts)
	if err != nil {
		return err
	}
	return archive.Pack(st, zipPath)
}

func chapterPath(n int) string {
	return fmt.Sprintf("%s/html/chapter%03d.html", Root, n)
}

// href expresses a path under Root relative to the package document.
func href(opts Options, rel string) string {
	return paths.EscapePath(paths.Relative(Root+"/"+rel, opts.packagePath()))
}

func container(pkg string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + pkg + `" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`
}

func packageDocument(opts Options) string {
	var manifest, spine strings.Builder
	item := func(id, rel, mediaType string) {
		fmt.Fprintf(&manifest, "    <item id=%q href=%q media-type=%q/>\n", id, href(opts, rel), mediaType)
	}
	item("ncx", "toc.ncx", "application/x-dtbncx+xml")
	item("cover", "html/01_cover.html", "application/xhtml+xml")
	item("body002", "html/002_alsoby.html", "application/xhtml+xml")
	item("css", "css/emerald.css", "text/css")
	item("coverimg", "images/cover.jpg", "image/jpeg")
	item("font", "fonts/serif.otf", "application/vnd.ms-opentype")
	spine.WriteString("    <itemref idref=\"cover\"/>\n    <itemref idref=\"body002\"/>\n")
	if opts.SpacedName {
		item("spaced", "html/my chapter.html", "application/xhtml+xml")
		spine.WriteString("    <itemref idref=\"spaced\"/>\n")
	}
	for n := 1; n <= opts.Chapters; n++ {
		id := fmt.Sprintf("chapter%03d", n)
		item(id, strings.TrimPrefix(chapterPath(n), Root+"/"), "application/xhtml+xml")
		fmt.Fprintf(&spine, "    <itemref idref=%q/>\n", id)
	}

	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Emerald Fixture</dc:title>
    <dc:identifier id="bookid">urn:isbn:978-0-00-000000-2</dc:identifier>
    <dc:language>en</dc:language>
    <dc:creator>A. Author</dc:creator>
    <dc:publisher>Fixture Press</dc:publisher>
    <dc:description>&lt;p&gt;A &lt;b&gt;messy&lt;/b&gt;
      book.&lt;/p&gt;</dc:description>
    <dc:date>2011-03-04T10:00:00Z</dc:date>
    <meta name="cover" content="coverimg"/>
  </metadata>
  <manifest>
` + manifest.String() + `  </manifest>
  <spine toc="ncx">
` + spine.String() + `  </spine>
  <guide>
    <reference type="cover" title="Cover" href="` + href(opts, "html/01_cover.html") + `"/>
    <reference type="text" title="Also By" href="` + href(opts, "html/002_alsoby.html") + `#top"/>
  </guide>
</package>
`
}

func navPoint(id string, order int, label, src, children string) string {
	return fmt.Sprintf(`<navPoint id=%q playOrder="%d"><navLabel><text>%s</text></navLabel><content src=%q/>%s</navPoint>`,
		id, order, label, src, children)
}

func ncx(opts Options) string {
	var points strings.Builder
	points.WriteString(navPoint("np3", 3, "Fish", "html/002_alsoby.html#fish", "") + "\n")
	points.WriteString(navPoint("np1", 1, "Cover", "html/01_cover.html",
		navPoint("np1a", 5, "Self", "html/01_cover.html#self", "")+
			navPoint("np1b", 4, "Top", "html/01_cover.html#top", "")) + "\n")
	points.WriteString(navPoint("np2", 2, "Also By", "html/002_alsoby.html", "") + "\n")
	order := 6
	if opts.SpacedName {
		points.WriteString(navPoint("spaced", order, "My Chapter", "html/my chapter.html", "") + "\n")
		order++
	}
	for n := 1; n <= opts.Chapters; n++ {
		src := strings.TrimPrefix(chapterPath(n), Root+"/")
		points.WriteString(navPoint(fmt.Sprintf("ch%03d", n), order, fmt.Sprintf("Chapter %d", n), src, "") + "\n")
		order++
	}
	if opts.BrokenTOC {
		points.WriteString(navPoint("gone", order, "Gone", "html/missing.html", "") + "\n")
	}

	return `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="bookid"/></head>
  <docTitle><text>Emerald Fixture</text></docTitle>
  <navMap>
` + points.String() + `  </navMap>
</ncx>
`
}

const coverHTML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<title>Cover</title>
<link rel="stylesheet" type="text/css" href="../css/emerald.css"/>
<script type="text/javascript" src="../js/app.js"></script>
</head>
<body>
<div id="self"><img src="../images/cover.jpg" alt="cover"/></div>
<p><a href="002_alsoby.html#top">Also by</a></p>
<p><a href="http://example.com/book?id=1&amp;x=2">Publisher</a></p>
<p><a href="#self">Top</a></p>
<p><img src="../images/extra.png" alt="extra"/></p>
<p><a href="missing.html">Gone</a></p>
<p><a href="mailto:author@example.com">Mail</a></p>
</body>
</html>
`

func alsoByHTML(opts Options) string {
	extra := ""
	if opts.SpacedName {
		extra = `<p><a href="my chapter.html#start">My chapter</a></p>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Also By</title><link rel="stylesheet" href="../css/emerald.css"/></head>
<body>
<h1 id="top">Also by<a id="anchor"/></h1>
<p id="fish">Fish</p>
<p><a href="01_cover.html">Back</a></p>
` + extra + `
</body>
</html>
`
}

func chapterHTML(title string, paragraphs int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>` + title + `</title><link rel="stylesheet" href="../css/emerald.css"/></head>
<body>
<h1 id="start">` + title + `</h1>
`)
	for p := 1; p <= paragraphs; p++ {
		fmt.Fprintf(&b, "<p>Paragraph %d of %s. <a href=\"01_cover.html#self\">Cover</a></p>\n", p, title)
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

const emeraldCSS = `@charset "utf-8";
@font-face { font-family: "Serif"; src: url(../fonts/serif.otf); }
body { font-size: 24px; background: url("../images/cover.jpg"); }
p { margin: 12pt 0; }
a.external { background: url(http://example.com/x.png); }
`
