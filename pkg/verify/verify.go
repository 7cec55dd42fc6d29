// Package verify checks that a book is self-consistent: every pointer
// from the container, the package document, the TOC, content documents
// and stylesheets lands on a file that exists.
package verify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/adammathes/epubnorm/pkg/archive"
	"github.com/adammathes/epubnorm/pkg/epub"
	"github.com/adammathes/epubnorm/pkg/paths"
	"github.com/adammathes/epubnorm/pkg/report"
	"github.com/adammathes/epubnorm/pkg/stylesheet"
)

// Check codes.
const (
	CodePackageMissing = "VFY-001"
	CodeManifestFile   = "VFY-002"
	CodeDuplicateID    = "VFY-003"
	CodeDuplicateHref  = "VFY-004"
	CodeSpineRef       = "VFY-005"
	CodeTOCRef         = "VFY-006"
	CodeContentLink    = "VFY-007"
	CodeStylesheetURL  = "VFY-008"
	CodeGuideRef       = "VFY-009"
	CodeMimetype       = "VFY-010"
	CodeUnreadable     = "VFY-011"
)

// Verify runs every check against doc.
func Verify(doc *epub.Document) *report.Report {
	r := report.NewReport()
	st := doc.Storage()

	checkMimetype(st, r)
	if !st.Exists(doc.OPFPath()) {
		r.AddWithLocation(report.Fatal, CodePackageMissing,
			"package document named by the container does not exist", doc.OPFPath())
		return r
	}
	checkManifest(doc, r)
	checkSpine(doc, r)
	checkGuide(doc, r)
	checkTOC(doc, r)
	checkContentDocuments(doc, r)
	checkStylesheets(doc, r)
	return r
}

func checkMimetype(st archive.Storage, r *report.Report) {
	data, err := st.Read(archive.MimetypeName)
	if err != nil {
		r.Add(report.Warning, CodeMimetype, "mimetype file is missing")
		return
	}
	if got := strings.TrimSpace(string(data)); got != archive.EPUBMimetype {
		r.Add(report.Warning, CodeMimetype, fmt.Sprintf("mimetype is %q, want %q", got, archive.EPUBMimetype))
	}
}

func checkManifest(doc *epub.Document, r *report.Report) {
	ids := make(map[string]bool)
	hrefs := make(map[string]string)
	for _, e := range doc.Manifest().Entries() {
		if ids[e.ID] {
			r.AddWithLocation(report.Error, CodeDuplicateID, fmt.Sprintf("manifest id %q is used more than once", e.ID), doc.OPFPath())
		}
		ids[e.ID] = true

		p, _ := paths.SplitFragment(e.Href)
		abs := paths.Clean(doc.OPFDir(), paths.UnescapePath(p))
		if other, ok := hrefs[abs]; ok {
			r.AddWithLocation(report.Error, CodeDuplicateHref, fmt.Sprintf("items %q and %q share %s", other, e.ID, abs), doc.OPFPath())
		}
		hrefs[abs] = e.ID

		if !doc.Storage().Exists(abs) {
			r.AddWithLocation(report.Error, CodeManifestFile, fmt.Sprintf("manifest item %q points at missing file %s", e.ID, abs), doc.OPFPath())
		}
	}
}

func checkSpine(doc *epub.Document, r *report.Report) {
	for _, id := range doc.Spine().IDRefs() {
		if _, err := doc.Manifest().Item(id); err != nil {
			r.AddWithLocation(report.Error, CodeSpineRef, fmt.Sprintf("spine idref %q: %v", id, err), doc.OPFPath())
		}
	}
}

func checkGuide(doc *epub.Document, r *report.Report) {
	for _, ref := range doc.Guide().References() {
		if !resolves(doc.Storage(), doc.OPFPath(), ref.Href) {
			r.AddWithLocation(report.Error, CodeGuideRef, fmt.Sprintf("guide reference %q does not resolve", ref.Href), doc.OPFPath())
		}
	}
}

func checkTOC(doc *epub.Document, r *report.Report) {
	toc, err := doc.TOC()
	if errors.Is(err, epub.ErrNotFound) {
		return
	}
	if err != nil {
		r.Add(report.Error, CodeUnreadable, fmt.Sprintf("toc: %v", err))
		return
	}
	src := toc.Item().Path()
	stack := toc.Entries()
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !resolves(doc.Storage(), src, e.URL) {
			r.AddWithLocation(report.Error, CodeTOCRef, fmt.Sprintf("toc entry %q does not resolve", e.URL), src)
		}
		stack = append(stack, e.Children...)
	}
}

func checkContentDocuments(doc *epub.Document, r *report.Report) {
	items, err := doc.Manifest().ContentDocuments()
	if err != nil {
		r.Add(report.Error, CodeUnreadable, err.Error())
		return
	}
	for _, it := range items {
		data, err := it.Read()
		if err != nil {
			continue // reported by the manifest check
		}
		d, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			r.AddWithLocation(report.Error, CodeUnreadable, err.Error(), it.Path())
			continue
		}
		d.Find("[href], [src]").Each(func(_ int, s *goquery.Selection) {
			for _, attr := range []string{"href", "src"} {
				v, ok := s.Attr(attr)
				if ok && !resolves(doc.Storage(), it.Path(), v) {
					r.AddWithLocation(report.Warning, CodeContentLink, fmt.Sprintf("%s %q does not resolve", attr, v), it.Path())
				}
			}
		})
	}
}

func checkStylesheets(doc *epub.Document, r *report.Report) {
	items, err := doc.Manifest().Stylesheets()
	if err != nil {
		r.Add(report.Error, CodeUnreadable, err.Error())
		return
	}
	for _, it := range items {
		data, err := it.Read()
		if err != nil {
			continue
		}
		for _, ref := range stylesheet.References(string(data)) {
			if !resolves(doc.Storage(), it.Path(), ref) {
				r.AddWithLocation(report.Warning, CodeStylesheetURL, fmt.Sprintf("url %q does not resolve", ref), it.Path())
			}
		}
	}
}

// resolves reports whether ref, found in the file at from, names an
// existing file. External, blank and same-document references always
// resolve.
func resolves(st archive.Storage, from, ref string) bool {
	ref = strings.TrimSpace(ref)
	if paths.IsBlank(ref) || paths.IsExternal(ref) {
		return true
	}
	p, _, _ := paths.SplitRef(ref)
	if p == "" {
		return true
	}
	return st.Exists(paths.Resolve(from, paths.UnescapePath(p)))
}
