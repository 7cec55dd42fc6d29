package stylesheet

import (
	"regexp"
	"strings"

	"github.com/adammathes/epubnorm/pkg/paths"
)

var (
	urlRe    = regexp.MustCompile(`(url\(\s*["']?)([^"')\n]*)(["']?\s*\))`)
	importRe = regexp.MustCompile(`(@import\s+["'])([^"'\n]+)(["'])`)
)

// Rewriter maps a reference found in a sheet to its replacement. ok is
// false when the reference should be left alone.
type Rewriter func(ref string) (replacement string, ok bool)

// RewriteURLs applies fn to every url() and quoted @import reference.
// Blank and external references are never passed to fn. Quotes around
// the reference are kept as they were.
func RewriteURLs(text string, fn Rewriter) string {
	apply := func(re *regexp.Regexp) func(string) string {
		return func(match string) string {
			m := re.FindStringSubmatch(match)
			ref := strings.TrimSpace(m[2])
			if paths.IsBlank(ref) || paths.IsExternal(ref) {
				return match
			}
			repl, ok := fn(ref)
			if !ok {
				return match
			}
			return m[1] + repl + m[3]
		}
	}
	text = urlRe.ReplaceAllStringFunc(text, apply(urlRe))
	return importRe.ReplaceAllStringFunc(text, apply(importRe))
}

// References lists the local url() and @import references of a sheet.
func References(text string) []string {
	var refs []string
	RewriteURLs(text, func(ref string) (string, bool) {
		refs = append(refs, ref)
		return "", false
	})
	return refs
}
