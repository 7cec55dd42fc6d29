package epub

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/adammathes/epubnorm/pkg/paths"
	"github.com/adammathes/epubnorm/pkg/report"
)

// TOC is a parsed NCX navigation document.
type TOC struct {
	item *Item
	ncx  *etree.Document
}

// TOCEntry is one navigation point.
type TOCEntry struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	URL      string      `json:"url"`
	Position int         `json:"position"`
	Children []*TOCEntry `json:"children"`
}

func loadTOC(it *Item) (*TOC, error) {
	data, err := it.Read()
	if err != nil {
		return nil, fmt.Errorf("reading toc: %w", err)
	}
	ncx := etree.NewDocument()
	if err := ncx.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", it.Path(), err)
	}
	return &TOC{item: it, ncx: ncx}, nil
}

// Item returns the manifest item holding the TOC.
func (t *TOC) Item() *Item { return t.item }

func (t *TOC) save() error {
	data, err := t.ncx.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", t.item.Path(), err)
	}
	return t.item.Write(data)
}

// navPoints returns every navigation point at any depth.
func (t *TOC) navPoints() []*etree.Element {
	navMap := t.ncx.FindElement("//navMap")
	if navMap == nil {
		return nil
	}
	var out []*etree.Element
	stack := []*etree.Element{navMap}
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, np := range el.SelectElements("navPoint") {
			out = append(out, np)
			stack = append(stack, np)
		}
	}
	return out
}

func contentOf(np *etree.Element) *etree.Element {
	c := np.SelectElement("content")
	if c == nil || c.SelectAttr("src") == nil {
		return nil
	}
	return c
}

// Standardize escapes the path of every entry's source.
func (t *TOC) Standardize() error {
	for _, np := range t.navPoints() {
		c := contentOf(np)
		if c == nil {
			continue
		}
		src := c.SelectAttrValue("src", "")
		if paths.IsBlank(src) || paths.IsExternal(src) {
			continue
		}
		p, frag := paths.SplitFragment(src)
		c.CreateAttr("src", paths.WithFragment(paths.EscapePath(p), frag))
	}
	return t.save()
}

// Normalize points every entry at the normalized path of its target, as
// seen from the TOC's own normalized path. An entry whose target cannot
// be found fails with ErrBrokenReference.
func (t *TOC) Normalize() error {
	for _, np := range t.navPoints() {
		c := contentOf(np)
		if c == nil {
			continue
		}
		src := c.SelectAttrValue("src", "")
		if paths.IsBlank(src) || paths.IsExternal(src) {
			continue
		}
		rewritten, err := t.item.rewriteRef(src, false)
		if err != nil {
			if errors.Is(err, ErrMissingReference) {
				err = &ReferenceError{Source: t.item.Path(), Ref: src, Err: ErrBrokenReference}
			}
			t.item.doc.record(report.Error, report.CodeBrokenReference, fmt.Sprintf("toc entry %q: %v", src, err), t.item.Path())
			return err
		}
		c.CreateAttr("src", rewritten)
	}
	return t.save()
}

// Entries returns the navigation tree with siblings ordered by play
// order at every level.
func (t *TOC) Entries() []*TOCEntry {
	navMap := t.ncx.FindElement("//navMap")
	if navMap == nil {
		return nil
	}
	type frame struct {
		el     *etree.Element
		parent *TOCEntry
	}
	root := &TOCEntry{}
	stack := []frame{{navMap, root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, np := range f.el.SelectElements("navPoint") {
			e := &TOCEntry{
				ID:       np.SelectAttrValue("id", ""),
				Position: playOrder(np),
				Children: []*TOCEntry{},
			}
			if label := np.FindElement("navLabel/text"); label != nil {
				e.Label = strings.TrimSpace(label.Text())
			}
			if c := contentOf(np); c != nil {
				e.URL = c.SelectAttrValue("src", "")
			}
			f.parent.Children = append(f.parent.Children, e)
			stack = append(stack, frame{np, e})
		}
	}

	levels := [][]*TOCEntry{root.Children}
	for len(levels) > 0 {
		level := levels[len(levels)-1]
		levels = levels[:len(levels)-1]
		sort.SliceStable(level, func(a, b int) bool { return level[a].Position < level[b].Position })
		for _, e := range level {
			levels = append(levels, e.Children)
		}
	}
	return root.Children
}

func playOrder(np *etree.Element) int {
	n, err := strconv.Atoi(strings.TrimSpace(np.SelectAttrValue("playOrder", "")))
	if err != nil {
		return 0
	}
	return n
}
