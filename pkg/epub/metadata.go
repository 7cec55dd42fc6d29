package epub

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

// MetadataKeys are the keys Get and Set understand.
var MetadataKeys = []string{"title", "isbn", "language", "creator", "publisher", "description", "date"}

const dcNamespace = "http://purl.org/dc/elements/1.1/"

var (
	isbnRe      = regexp.MustCompile(`^\d{13}$`)
	dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "2006-01", "2006"}
)

// Metadata is a key/value view over the package metadata.
type Metadata struct {
	doc *Document
}

func (m *Metadata) element() *etree.Element {
	return m.doc.section("metadata")
}

func (m *Metadata) find(tag string) *etree.Element {
	return m.element().SelectElement(tag)
}

// create adds a dc element, declaring the namespace when the package
// does not.
func (m *Metadata) create(tag string) *etree.Element {
	md := m.element()
	if md.SelectAttr("xmlns:dc") == nil && m.doc.opf.Root().SelectAttr("xmlns:dc") == nil {
		md.CreateAttr("xmlns:dc", dcNamespace)
	}
	return md.CreateElement("dc:" + tag)
}

// Get returns the value for key. ErrNotFound means the book does not
// carry it.
func (m *Metadata) Get(key string) (string, error) {
	switch key {
	case "title", "language", "creator", "publisher":
		if el := m.find(key); el != nil {
			return strings.TrimSpace(el.Text()), nil
		}
	case "description":
		if el := m.find(key); el != nil {
			return stripMarkup(el.Text()), nil
		}
	case "isbn":
		if el := m.isbnElement(); el != nil {
			return isbnDigits(el.Text()), nil
		}
	case "date":
		if el := m.find(key); el != nil {
			v := strings.TrimSpace(el.Text())
			if t, ok := parseDate(v); ok {
				return t.Format("2006-01-02"), nil
			}
			return v, nil
		}
	default:
		return "", fmt.Errorf("unknown metadata key %q", key)
	}
	return "", fmt.Errorf("metadata %s: %w", key, ErrNotFound)
}

// All returns every key the book carries.
func (m *Metadata) All() map[string]string {
	out := make(map[string]string)
	for _, k := range MetadataKeys {
		if v, err := m.Get(k); err == nil {
			out[k] = v
		}
	}
	return out
}

// Set stores value under key, creating the element when missing.
func (m *Metadata) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var el *etree.Element
	switch key {
	case "title", "language", "creator", "publisher", "description":
		el = m.find(key)
	case "isbn":
		digits := isbnDigits(value)
		if !isbnRe.MatchString(digits) {
			return fmt.Errorf("isbn %q: want 13 digits", value)
		}
		value = "urn:isbn:" + digits
		el = m.isbnElement()
		if el == nil {
			el = m.create("identifier")
		}
	case "date":
		t, ok := parseDate(value)
		if !ok {
			return fmt.Errorf("date %q: unrecognized format", value)
		}
		value = t.Format("2006-01-02")
		el = m.find(key)
	default:
		return fmt.Errorf("unknown metadata key %q", key)
	}
	if el == nil {
		el = m.create(key)
	}
	el.SetText(value)
	return m.doc.saveOPF()
}

func (m *Metadata) isbnElement() *etree.Element {
	for _, el := range m.element().SelectElements("identifier") {
		if isbnRe.MatchString(isbnDigits(el.Text())) {
			return el
		}
	}
	return nil
}

func isbnDigits(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(strings.ToLower(v), "urn:isbn:") {
		v = v[len("urn:isbn:"):]
	}
	return strings.NewReplacer("-", "", " ", "").Replace(v)
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stripMarkup reduces an HTML fragment to its collapsed text.
func stripMarkup(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
