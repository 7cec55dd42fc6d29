package epub

import (
	"errors"
	"fmt"
	"slices"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/adammathes/epubnorm/pkg/paths"
	"github.com/adammathes/epubnorm/pkg/report"
)

// Manifest is a view of the package manifest.
type Manifest struct {
	doc *Document
}

func (m *Manifest) element() *etree.Element {
	return m.doc.section("manifest")
}

func (m *Manifest) nodes() []*etree.Element {
	return m.element().SelectElements("item")
}

func (m *Manifest) node(id string) *etree.Element {
	for _, n := range m.nodes() {
		if n.SelectAttrValue("id", "") == id {
			return n
		}
	}
	return nil
}

// lookupKey folds case and Unicode normalization form so that paths
// written by different tools compare equal.
func lookupKey(p string) string {
	return norm.NFC.String(cases.Fold().String(p))
}

// Item returns the item with the given id.
func (m *Manifest) Item(id string) (*Item, error) {
	return NewItem(m.doc, id)
}

// ItemForPath returns the item whose href resolves to the archive path p.
// More than one match means the manifest is corrupt and is an error.
func (m *Manifest) ItemForPath(p string) (*Item, error) {
	want := lookupKey(paths.Clean(p))
	var found []*etree.Element
	for _, n := range m.nodes() {
		href, _ := paths.SplitFragment(n.SelectAttrValue("href", ""))
		if href == "" {
			continue
		}
		if lookupKey(paths.Clean(m.doc.OPFDir(), paths.UnescapePath(href))) == want {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("no manifest item for %s: %w", p, ErrNotFound)
	case 1:
		return itemFromNode(m.doc, found[0])
	}
	return nil, fmt.Errorf("%d manifest items for %s: %w", len(found), p, ErrAmbiguousLookup)
}

// Items returns the items of the given kinds in manifest order, or every
// item when no kind is given.
func (m *Manifest) Items(kinds ...ItemKind) ([]*Item, error) {
	var out []*Item
	for _, n := range m.nodes() {
		it, err := itemFromNode(m.doc, n)
		if err != nil {
			return nil, err
		}
		if len(kinds) == 0 || slices.Contains(kinds, it.kind) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Assets returns images, stylesheets and generic files.
func (m *Manifest) Assets() ([]*Item, error) {
	return m.Items(KindImage, KindStylesheet, KindGeneric)
}

func (m *Manifest) Images() ([]*Item, error) {
	return m.Items(KindImage)
}

func (m *Manifest) ContentDocuments() ([]*Item, error) {
	return m.Items(KindContentDocument)
}

func (m *Manifest) Stylesheets() ([]*Item, error) {
	return m.Items(KindStylesheet)
}

// Misc returns items that are neither documents, stylesheets nor images.
func (m *Manifest) Misc() ([]*Item, error) {
	return m.Items(KindGeneric)
}

// CoverImage returns the item named by the <meta name="cover"> entry.
func (m *Manifest) CoverImage() (*Item, error) {
	for _, meta := range m.doc.section("metadata").SelectElements("meta") {
		if meta.SelectAttrValue("name", "") == "cover" {
			return m.Item(meta.SelectAttrValue("content", ""))
		}
	}
	return nil, fmt.Errorf("cover image: %w", ErrNotFound)
}

// Add registers the file at archive path p. A path that is already in
// the manifest returns the existing item; a path that does not exist in
// the archive fails with ErrNotFound.
func (m *Manifest) Add(p string) (*Item, error) {
	p = paths.Clean(p)
	existing, err := m.ItemForPath(p)
	if err == nil {
		m.doc.record(report.Info, report.CodeDuplicate, "already in manifest as "+existing.id, p,
			zap.Error(ErrDuplicateManifestEntry))
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if !m.doc.storage.Exists(p) {
		return nil, fmt.Errorf("adding %s: %w", p, ErrNotFound)
	}

	id := m.uniqueID(paths.Hash(p))
	parent := m.element()
	el := parent.CreateElement(qualify(parent, "item"))
	el.CreateAttr("id", id)
	el.CreateAttr("href", paths.EscapePath(paths.RelativeToDir(p, m.doc.OPFDir())))
	el.CreateAttr("media-type", MediaTypeFor(p))
	if err := m.doc.saveOPF(); err != nil {
		return nil, err
	}
	m.doc.record(report.Info, report.CodeRegistered, "added to manifest as "+id, p)
	return NewItem(m.doc, id)
}

// uniqueID makes base a valid XML id that is not yet in use.
func (m *Manifest) uniqueID(base string) string {
	if base[0] >= '0' && base[0] <= '9' {
		base = "item_" + base
	}
	id := base
	for n := 2; m.node(id) != nil; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	return id
}

// Standardize escapes every href and standardizes the content documents
// and stylesheets.
func (m *Manifest) Standardize() error {
	for _, n := range m.nodes() {
		href := n.SelectAttrValue("href", "")
		if href == "" {
			continue
		}
		p, frag := paths.SplitFragment(href)
		n.CreateAttr("href", paths.WithFragment(paths.EscapePath(p), frag))
	}
	if err := m.doc.saveOPF(); err != nil {
		return err
	}

	items, err := m.Items(KindContentDocument, KindStylesheet)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := it.Standardize(); err != nil {
			return fmt.Errorf("standardizing %s: %w", it.Path(), err)
		}
	}
	return nil
}

// Normalize rewrites the references of every item, moves every file to
// its normalized path and finally moves the package document. The order
// matters: references are resolved against the old paths while the
// targets are computed from them. Colliding targets abort before any
// file is touched.
func (m *Manifest) Normalize() error {
	if _, err := m.planRelocations(); err != nil {
		return err
	}
	if err := m.normalizeItemContents(); err != nil {
		return err
	}
	if err := m.normalizeItemLocation(); err != nil {
		return err
	}
	return m.normalizeOPFPath()
}

// normalizeItemContents normalizes each content document and stylesheet
// exactly once, including those added to the manifest along the way.
// Added items missed Standardize, so they get it first.
func (m *Manifest) normalizeItemContents() error {
	done := make(map[string]bool)
	first := true
	for {
		items, err := m.Items(KindContentDocument, KindStylesheet)
		if err != nil {
			return err
		}
		pending := 0
		for _, it := range items {
			if done[it.id] {
				continue
			}
			done[it.id] = true
			pending++
			if !first {
				if err := it.Standardize(); err != nil {
					return fmt.Errorf("standardizing %s: %w", it.Path(), err)
				}
			}
			if err := it.Normalize(); err != nil {
				return fmt.Errorf("normalizing %s: %w", it.Path(), err)
			}
		}
		if pending == 0 {
			return nil
		}
		first = false
	}
}

type relocation struct {
	item     *Item
	from, to string
}

func (m *Manifest) planRelocations() ([]relocation, error) {
	items, err := m.Items()
	if err != nil {
		return nil, err
	}
	plan := make([]relocation, 0, len(items))
	taken := make(map[string]string, len(items))
	for _, it := range items {
		to := it.NormalizedPath()
		key := lookupKey(to)
		if other, ok := taken[key]; ok {
			return nil, fmt.Errorf("%s and %s both normalize to %s: %w", other, it.id, to, ErrPathCollision)
		}
		taken[key] = it.id
		plan = append(plan, relocation{item: it, from: it.Path(), to: to})
	}
	return plan, nil
}

// normalizeItemLocation moves every file and points the manifest at the
// new locations, relative to the canonical package document path.
func (m *Manifest) normalizeItemLocation() error {
	plan, err := m.planRelocations()
	if err != nil {
		return err
	}
	for _, r := range plan {
		if r.from == r.to {
			continue
		}
		if !m.doc.storage.Exists(r.from) {
			return fmt.Errorf("moving %s: %w", r.from, ErrNotFound)
		}
		if err := m.doc.storage.Move(r.from, r.to); err != nil {
			return fmt.Errorf("moving %s: %w", r.from, err)
		}
		m.doc.recordMove(r.from, r.to)
	}
	for _, r := range plan {
		r.item.setHref(paths.EscapePath(paths.Relative(r.to, CanonicalOPFPath)))
	}
	return m.doc.saveOPF()
}

func (m *Manifest) normalizeOPFPath() error {
	return m.doc.moveOPF(CanonicalOPFPath)
}

// Entry is a manifest node as written, without resolution.
type Entry struct {
	ID        string `json:"id"`
	Href      string `json:"href"`
	MediaType string `json:"media_type"`
}

// Entries lists the manifest nodes as written, duplicates included.
func (m *Manifest) Entries() []Entry {
	var out []Entry
	for _, n := range m.nodes() {
		out = append(out, Entry{
			ID:        n.SelectAttrValue("id", ""),
			Href:      n.SelectAttrValue("href", ""),
			MediaType: n.SelectAttrValue("media-type", ""),
		})
	}
	return out
}
