package epub

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/adammathes/epubnorm/pkg/paths"
	"github.com/adammathes/epubnorm/pkg/report"
)

// Guide is a view of the package guide.
type Guide struct {
	doc *Document
}

// Reference is one guide landmark.
type Reference struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Href  string `json:"href"`
}

func (g *Guide) nodes() []*etree.Element {
	el := g.doc.opf.Root().SelectElement("guide")
	if el == nil {
		return nil
	}
	return el.SelectElements("reference")
}

// References lists the landmarks in document order.
func (g *Guide) References() []Reference {
	var refs []Reference
	for _, n := range g.nodes() {
		refs = append(refs, Reference{
			Type:  n.SelectAttrValue("type", ""),
			Title: n.SelectAttrValue("title", ""),
			Href:  n.SelectAttrValue("href", ""),
		})
	}
	return refs
}

// Standardize escapes the path of every reference.
func (g *Guide) Standardize() error {
	nodes := g.nodes()
	if len(nodes) == 0 {
		return nil
	}
	for _, n := range nodes {
		href := n.SelectAttrValue("href", "")
		if paths.IsBlank(href) || paths.IsExternal(href) {
			continue
		}
		p, frag := paths.SplitFragment(href)
		n.CreateAttr("href", paths.WithFragment(paths.EscapePath(p), frag))
	}
	return g.doc.saveOPF()
}

// Normalize points every reference at its item's normalized path, as
// seen from the canonical package document. A reference to a file that
// is not in the manifest is a broken book and fails.
func (g *Guide) Normalize() error {
	nodes := g.nodes()
	if len(nodes) == 0 {
		return nil
	}
	m := g.doc.Manifest()
	for _, n := range nodes {
		href := n.SelectAttrValue("href", "")
		p, frag := paths.SplitFragment(href)
		if paths.IsBlank(p) || paths.IsExternal(href) {
			continue
		}
		it, err := m.ItemForPath(paths.Clean(g.doc.OPFDir(), paths.UnescapePath(p)))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				err = &ReferenceError{Source: g.doc.opfPath, Ref: href, Err: ErrBrokenReference}
			}
			g.doc.record(report.Error, report.CodeBrokenReference, fmt.Sprintf("guide reference %q: %v", href, err), g.doc.opfPath)
			return err
		}
		n.CreateAttr("href", paths.WithFragment(it.NormalizedHref(CanonicalOPFPath), frag))
	}
	return g.doc.saveOPF()
}
