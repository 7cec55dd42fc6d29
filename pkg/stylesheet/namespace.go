package stylesheet

import (
	"regexp"
	"strings"

	"github.com/adammathes/epubnorm/pkg/paths"
)

var classUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// NamespaceClass is the class a sheet's rules are scoped to, derived
// from the sheet's file name.
func NamespaceClass(filename string) string {
	return "epub_" + classUnsafe.ReplaceAllString(paths.Stem(paths.UnescapeSegment(filename)), "_")
}

// HoistAtRules separates top-level at-rule blocks from the rest of the
// indented sheet. A block is an "@" line at indentation zero plus every
// following line indented deeper than it.
func HoistAtRules(indented string) (blocks []string, rest string) {
	var cur []string
	var other []string
	flush := func() {
		if cur != nil {
			blocks = append(blocks, strings.Join(cur, "\n")+"\n")
			cur = nil
		}
	}
	for _, line := range strings.Split(indented, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if indentOf(line) == 0 {
			flush()
			if strings.HasPrefix(line, "@") {
				cur = []string{line}
				continue
			}
		} else if cur != nil {
			cur = append(cur, line)
			continue
		}
		other = append(other, line)
	}
	flush()
	return blocks, joinLines(other)
}

// Namespace scopes every rule of an indented sheet under class. At-rule
// blocks are hoisted to the top unscoped, except @charset blocks, which
// are dropped and returned so the caller can report them.
func Namespace(indented, class string) (out string, dropped []string) {
	blocks, rest := HoistAtRules(indented)

	var b strings.Builder
	for _, blk := range blocks {
		if strings.HasPrefix(blk, "@charset") {
			dropped = append(dropped, strings.TrimSpace(blk))
			continue
		}
		b.WriteString(blk)
	}
	if rest == "" {
		return b.String(), dropped
	}
	b.WriteString("." + class + "\n")
	for _, line := range strings.Split(strings.TrimSuffix(rest, "\n"), "\n") {
		if indentOf(line) == 0 {
			line = scopeSelectors(line)
		}
		b.WriteString(Indent + line + "\n")
	}
	return b.String(), dropped
}

// scopeSelectors rewrites root selectors so they land on the namespace
// element itself: "html" becomes the namespace and "body" becomes
// "body" carrying the namespace class.
func scopeSelectors(list string) string {
	parts := SplitSelectors(list)
	for i, p := range parts {
		parts[i] = scopeSelector(p)
	}
	return strings.Join(parts, ", ")
}

func scopeSelector(sel string) string {
	if sel == "html" {
		return "&"
	}
	if rest, ok := cutRoot(sel, "html"); ok {
		sel = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ">"))
		if sel == "" {
			return "&"
		}
	}
	if sel == "body" {
		return "body&"
	}
	if rest, ok := cutRoot(sel, "body"); ok {
		return "body&" + rest
	}
	return sel
}

// cutRoot reports whether sel starts with the element name, followed by
// the end of the selector or something that is not part of a name.
func cutRoot(sel, name string) (string, bool) {
	if !strings.HasPrefix(sel, name) {
		return "", false
	}
	rest := sel[len(name):]
	if rest == "" {
		return rest, true
	}
	switch rest[0] {
	case ' ', '.', '#', ':', '[', '>', '+', '~':
		return rest, true
	}
	return "", false
}
