package epub

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tdewolff/minify/v2"
	minxml "github.com/tdewolff/minify/v2/xml"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/adammathes/epubnorm/pkg/paths"
	"github.com/adammathes/epubnorm/pkg/report"
	"github.com/adammathes/epubnorm/pkg/stylesheet"
)

var (
	xmlDeclRe     = regexp.MustCompile(`^\s*<\?xml[^>]*\?>\s*`)
	selfClosingRe = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9:-]*)(\s[^<>]*?)?\s*/>`)
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// linkAttrs are the attributes carrying a URL.
var linkAttrs = map[string]bool{"href": true, "src": true}

// markup is a parsed content document. The XML declaration is kept
// aside because the HTML parser would turn it into a comment.
type markup struct {
	decl string
	doc  *goquery.Document
}

// expandSelfClosing rewrites <p/> style tags of non-void elements to an
// explicit open/close pair, which is what an XHTML author meant.
func expandSelfClosing(data []byte) []byte {
	return selfClosingRe.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := selfClosingRe.FindSubmatch(m)
		if voidElements[strings.ToLower(string(sub[1]))] {
			return m
		}
		tag := string(sub[1])
		return []byte("<" + tag + string(sub[2]) + "></" + tag + ">")
	})
}

func parseMarkup(data []byte) (*markup, error) {
	mk := &markup{}
	if decl := xmlDeclRe.Find(data); decl != nil {
		mk.decl = strings.TrimSpace(string(decl))
		data = data[len(decl):]
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(expandSelfClosing(data)))
	if err != nil {
		return nil, err
	}
	mk.doc = doc
	return mk, nil
}

func (mk *markup) render() ([]byte, error) {
	var buf bytes.Buffer
	if mk.decl != "" {
		buf.WriteString(mk.decl)
		buf.WriteByte('\n')
	}
	for _, n := range mk.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (i *Item) readMarkup() (*markup, error) {
	data, err := i.Read()
	if err != nil {
		return nil, err
	}
	mk, err := parseMarkup(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", i.Path(), err)
	}
	return mk, nil
}

func (i *Item) writeMarkup(mk *markup) error {
	data, err := mk.render()
	if err != nil {
		return fmt.Errorf("rendering %s: %w", i.Path(), err)
	}
	return i.Write(data)
}

// standardizeContentDocument drops scripts and tags the body with the
// namespace class of every linked stylesheet. The parser already
// supplies missing <html> and <body> wrappers.
func (i *Item) standardizeContentDocument() error {
	mk, err := i.readMarkup()
	if err != nil {
		return err
	}

	mk.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		i.doc.record(report.Info, report.CodeScriptRemoved, "script removed", i.Path(), zap.String("src", src))
		s.Remove()
	})

	body := mk.doc.Find("body").First()
	mk.doc.Find(`link[rel~="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || paths.IsBlank(href) || paths.IsExternal(href) {
			return
		}
		p, _ := paths.SplitFragment(href)
		if normalizedNameRe.MatchString(paths.Stem(paths.UnescapePath(p))) {
			return
		}
		body.AddClass(stylesheet.NamespaceClass(p))
	})

	return i.writeMarkup(mk)
}

// normalizeContentDocument rewrites every href and src attribute.
func (i *Item) normalizeContentDocument() error {
	mk, err := i.readMarkup()
	if err != nil {
		return err
	}
	for _, root := range mk.doc.Nodes {
		if err := walkLinks(root, func(n *html.Node, a *html.Attribute) error {
			v, err := i.normalizeLink(a.Val)
			if err != nil {
				return err
			}
			a.Val = v
			return nil
		}); err != nil {
			return err
		}
	}
	return i.writeMarkup(mk)
}

// walkLinks visits the URL attributes of every element in document
// order.
func walkLinks(root *html.Node, fn func(*html.Node, *html.Attribute) error) error {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode {
			for k := range n.Attr {
				if linkAttrs[n.Attr[k].Key] {
					if err := fn(n, &n.Attr[k]); err != nil {
						return err
					}
				}
			}
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return nil
}

// normalizeLink maps one attribute value. Values that cannot be
// resolved are reported and returned unchanged; only a corrupt
// manifest is an error.
func (i *Item) normalizeLink(raw string) (string, error) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), " ", "%20")
	if paths.IsBlank(v) || paths.IsExternal(v) {
		return raw, nil
	}
	u, err := url.Parse(v)
	if err != nil {
		i.doc.record(report.Warning, report.CodeInvalidURL, fmt.Sprintf("unparsable link %q", raw), i.Path(), zap.Error(err))
		return raw, nil
	}
	if u.Path == "" {
		return raw, nil
	}
	out, err := i.rewriteRef(v, true)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ErrMissingReference):
		i.doc.record(report.Warning, report.CodeMissingReference, fmt.Sprintf("link target %q not found", raw), i.Path())
		return raw, nil
	}
	return "", err
}

func (i *Item) compressContentDocument() error {
	data, err := i.Read()
	if err != nil {
		return err
	}
	m := minify.New()
	m.AddFunc("application/xhtml+xml", minxml.Minify)
	out, err := m.Bytes("application/xhtml+xml", data)
	if err != nil {
		return err
	}
	return i.Write(out)
}
