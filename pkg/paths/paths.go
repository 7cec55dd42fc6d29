// Package paths holds the slash-separated path helpers shared by the
// normalizer: joining and cleaning archive paths, computing relative
// hrefs, splitting fragments off URLs and escaping file names.
//
// Archive paths are always relative to the archive root, use "/" as the
// separator and are never touched on disk by anything in this package.
package paths

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 6

var externalRe = regexp.MustCompile(`^[a-zA-Z]+:`)

// Clean joins the non-empty parts and lexically cleans the result,
// collapsing "." and ".." elements. An empty result is ".".
func Clean(parts ...string) string {
	p := path.Join(parts...)
	if p == "" {
		return "."
	}
	return strings.TrimPrefix(p, "/")
}

// Dir returns the directory part of an archive path, "." for top-level
// entries.
func Dir(p string) string {
	return path.Dir(Clean(p))
}

// Resolve resolves ref against the directory containing the file from.
func Resolve(from, ref string) string {
	return Clean(Dir(from), ref)
}

// Relative returns target expressed relative to the directory holding
// the file from. An empty from means the archive root.
//
//	Relative("OEBPS/assets/a.jpg", "OEBPS/b.xhtml") == "assets/a.jpg"
//	Relative("OEBPS/a.css", "OEBPS/text/b.xhtml") == "../a.css"
func Relative(target, from string) string {
	dir := "."
	if from != "" {
		dir = Dir(from)
	}
	return RelativeToDir(target, dir)
}

// RelativeToDir returns target expressed relative to dir.
func RelativeToDir(target, dir string) string {
	t := segments(Clean(target))
	d := segments(Clean(dir))

	i := 0
	for i < len(t) && i < len(d) && t[i] == d[i] {
		i++
	}

	out := make([]string, 0, len(d)-i+len(t)-i)
	for range d[i:] {
		out = append(out, "..")
	}
	out = append(out, t[i:]...)
	if len(out) == 0 {
		return "."
	}
	return strings.Join(out, "/")
}

func segments(p string) []string {
	if p == "." || p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// SplitFragment splits "path#fragment" into its two halves. The fragment
// keeps its leading "#", so "a.html#" and "a.html" stay distinct and
// WithFragment restores the input exactly.
func SplitFragment(u string) (string, string) {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i], u[i:]
	}
	return u, ""
}

// SplitRef splits a relative reference into path, query and fragment.
// Query and fragment keep their "?" and "#" markers.
func SplitRef(u string) (p, query, fragment string) {
	p, fragment = SplitFragment(u)
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p, query = p[:i], p[i:]
	}
	return p, query, fragment
}

// WithFragment is the inverse of SplitFragment.
func WithFragment(p, fragment string) string {
	return p + fragment
}

// IsExternal reports whether u starts with a URL scheme such as
// "http:" or "mailto:".
func IsExternal(u string) bool {
	return externalRe.MatchString(u)
}

// IsBlank reports whether u carries no reference at all.
func IsBlank(u string) bool {
	return strings.TrimSpace(u) == ""
}

// EscapeSegment percent-encodes a single file name for use inside a URL
// path. Spaces become %20, never "+". Already escaped input is decoded
// first so escaping twice is harmless.
func EscapeSegment(name string) string {
	return url.PathEscape(UnescapeSegment(name))
}

// UnescapeSegment decodes percent escapes, returning the input unchanged
// when it is not validly escaped.
func UnescapeSegment(name string) string {
	s, err := url.PathUnescape(name)
	if err != nil {
		return name
	}
	return s
}

// EscapePath escapes only the file name of p, leaving the directory
// part readable.
func EscapePath(p string) string {
	dir, file := path.Split(p)
	return dir + EscapeSegment(file)
}

// UnescapePath decodes every percent escape in p.
func UnescapePath(p string) string {
	return UnescapeSegment(p)
}

// Ext returns the extension of the file name in p, including the dot.
func Ext(p string) string {
	return path.Ext(path.Base(p))
}

// Stem returns the file name of p without its extension.
func Stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Hash returns the first HashLength hex characters of the MD5 digest of
// p. The digest only depends on the string, so the same archive path
// always yields the same name.
func Hash(p string) string {
	sum := md5.Sum([]byte(p))
	return hex.EncodeToString(sum[:])[:HashLength]
}
