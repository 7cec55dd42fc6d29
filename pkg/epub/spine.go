package epub

import (
	"fmt"

	"github.com/beevik/etree"
)

// Spine is a view of the package spine.
type Spine struct {
	doc *Document
}

func (s *Spine) existing() *etree.Element {
	return s.doc.opf.Root().SelectElement("spine")
}

// TOCID is the manifest id of the navigation document, empty when the
// spine names none.
func (s *Spine) TOCID() string {
	el := s.existing()
	if el == nil {
		return ""
	}
	return el.SelectAttrValue("toc", "")
}

// TOC returns the navigation document item.
func (s *Spine) TOC() (*Item, error) {
	id := s.TOCID()
	if id == "" {
		return nil, fmt.Errorf("spine has no toc: %w", ErrNotFound)
	}
	return NewItem(s.doc, id)
}

// IDRefs lists the spine's idrefs in reading order.
func (s *Spine) IDRefs() []string {
	el := s.existing()
	if el == nil {
		return nil
	}
	var refs []string
	for _, ref := range el.SelectElements("itemref") {
		refs = append(refs, ref.SelectAttrValue("idref", ""))
	}
	return refs
}

// Items returns the spine's items in reading order.
func (s *Spine) Items() ([]*Item, error) {
	var items []*Item
	for _, id := range s.IDRefs() {
		it, err := NewItem(s.doc, id)
		if err != nil {
			return nil, fmt.Errorf("spine: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Add appends an item to the reading order.
func (s *Spine) Add(it *Item) error {
	el := s.doc.section("spine")
	ref := el.CreateElement(qualify(el, "itemref"))
	ref.CreateAttr("idref", it.ID())
	return s.doc.saveOPF()
}
