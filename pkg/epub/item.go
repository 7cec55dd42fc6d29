package epub

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/beevik/etree"

	"github.com/adammathes/epubnorm/pkg/paths"
)

var normalizedNameRe = regexp.MustCompile(`^[0-9a-f]{6}-`)

// Item is a view of one manifest entry. It holds no state of its own
// beyond the manifest node, so its path always reflects the package
// document as it is now.
type Item struct {
	doc  *Document
	node *etree.Element
	id   string
	kind ItemKind
}

// NewItem looks up the manifest entry with the given id.
func NewItem(doc *Document, id string) (*Item, error) {
	node := doc.Manifest().node(id)
	if node == nil {
		return nil, fmt.Errorf("manifest item %q: %w", id, ErrNotFound)
	}
	if node.SelectAttr("href") == nil {
		return nil, fmt.Errorf("%w: manifest item %q has no href", ErrInvalidEPUB, id)
	}
	return &Item{
		doc:  doc,
		node: node,
		id:   id,
		kind: classify(id, doc.Spine().TOCID(), node.SelectAttrValue("media-type", ""), node.SelectAttrValue("href", "")),
	}, nil
}

func itemFromNode(doc *Document, node *etree.Element) (*Item, error) {
	id := node.SelectAttrValue("id", "")
	if id == "" {
		return nil, fmt.Errorf("%w: manifest item %q has no id", ErrInvalidEPUB, node.SelectAttrValue("href", ""))
	}
	return NewItem(doc, id)
}

// ID is the manifest id.
func (i *Item) ID() string { return i.id }

// Kind is the behavior class decided when the item was looked up.
func (i *Item) Kind() ItemKind { return i.kind }

// MediaType is the declared media type.
func (i *Item) MediaType() string { return i.node.SelectAttrValue("media-type", "") }

// Href is the manifest href as written.
func (i *Item) Href() string { return i.node.SelectAttrValue("href", "") }

func (i *Item) setHref(href string) {
	i.node.CreateAttr("href", href)
}

// Path is the archive path of the item.
func (i *Item) Path() string {
	p, _ := paths.SplitFragment(i.Href())
	return paths.Clean(i.doc.OPFDir(), paths.UnescapePath(p))
}

// NormalizedPath is where the item is moved to. It is derived from the
// current path only, so it stays the same until the file actually moves.
// Items already sitting at a normalized name keep it.
func (i *Item) NormalizedPath() string {
	cur := i.Path()
	root := i.kind.root()
	ext := paths.Ext(cur)
	if i.kind == KindContentDocument {
		ext = ContentDocumentExt
	}
	if paths.Dir(cur) == root && normalizedNameRe.MatchString(paths.Stem(cur)) && paths.Ext(cur) == ext {
		return cur
	}
	return root + "/" + paths.Hash(cur) + "-" + paths.Stem(cur) + ext
}

// NormalizedHref is the escaped reference to the normalized path as seen
// from the file at from.
func (i *Item) NormalizedHref(from string) string {
	return paths.EscapePath(paths.Relative(i.NormalizedPath(), from))
}

// Read returns the item's bytes.
func (i *Item) Read() ([]byte, error) {
	return i.doc.storage.Read(i.Path())
}

// Write replaces the item's bytes.
func (i *Item) Write(data []byte) error {
	return i.doc.storage.Write(i.Path(), data)
}

// Extract copies the item into destDir on the local disk.
func (i *Item) Extract(destDir string) error {
	return i.doc.storage.Extract(i.Path(), destDir)
}

// Standardize prepares the item's contents for normalization.
func (i *Item) Standardize() error {
	switch i.kind {
	case KindStylesheet:
		return i.standardizeStylesheet()
	case KindContentDocument:
		return i.standardizeContentDocument()
	case KindNavigation:
		toc, err := loadTOC(i)
		if err != nil {
			return err
		}
		return toc.Standardize()
	}
	return nil
}

// Normalize rewrites the item's references to their normalized targets.
func (i *Item) Normalize() error {
	switch i.kind {
	case KindStylesheet:
		return i.normalizeStylesheet()
	case KindContentDocument:
		return i.normalizeContentDocument()
	case KindNavigation:
		toc, err := loadTOC(i)
		if err != nil {
			return err
		}
		return toc.Normalize()
	}
	return nil
}

// Compress minifies the item. Items that cannot be minified are left
// alone.
func (i *Item) Compress() error {
	switch i.kind {
	case KindStylesheet:
		return i.compressStylesheet()
	case KindContentDocument:
		return i.compressContentDocument()
	}
	i.doc.log.Debug("nothing to compress")
	return nil
}

// Resolve finds the item a reference inside this item points at. Files
// that exist but are not in the manifest are added to it.
func (i *Item) Resolve(ref string) (*Item, error) {
	return i.resolve(ref, true)
}

func (i *Item) resolve(ref string, register bool) (*Item, error) {
	p, _, _ := paths.SplitRef(ref)
	if p == "" {
		return i, nil
	}
	abs := paths.Clean(paths.Dir(i.Path()), paths.UnescapePath(p))

	m := i.doc.Manifest()
	target, err := m.ItemForPath(abs)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if register && i.doc.storage.Exists(abs) {
		return m.Add(abs)
	}
	return nil, &ReferenceError{Source: i.Path(), Ref: ref, Err: ErrMissingReference}
}

// rewriteRef maps a reference found inside this item to the normalized
// target, expressed relative to this item's normalized path. Query and
// fragment are carried over; same-document links are returned as is.
func (i *Item) rewriteRef(ref string, register bool) (string, error) {
	p, query, frag := paths.SplitRef(ref)
	if p == "" {
		return ref, nil
	}
	target, err := i.resolve(ref, register)
	if err != nil {
		return "", err
	}
	return paths.WithFragment(target.NormalizedHref(i.NormalizedPath())+query, frag), nil
}
