package epub

import (
	"fmt"
	"strings"
)

// ItemKind is the behavior class of a manifest item.
type ItemKind int

const (
	KindGeneric ItemKind = iota
	KindStylesheet
	KindContentDocument
	KindNavigation
	KindImage
)

var kindNames = map[ItemKind]string{
	KindGeneric:         "generic",
	KindStylesheet:      "stylesheet",
	KindContentDocument: "content-document",
	KindNavigation:      "navigation",
	KindImage:           "image",
}

func (k ItemKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// ParseKind maps a user-facing name to a kind. Short aliases such as
// "css", "html" and "toc" are accepted.
func ParseKind(s string) (ItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic", "misc":
		return KindGeneric, nil
	case "stylesheet", "css":
		return KindStylesheet, nil
	case "content-document", "content", "html", "xhtml":
		return KindContentDocument, nil
	case "navigation", "toc", "ncx":
		return KindNavigation, nil
	case "image", "images":
		return KindImage, nil
	}
	return KindGeneric, fmt.Errorf("unknown item kind %q", s)
}

// classify decides the kind of an item once. The spine's navigation id
// wins over the declared media type, which wins over the extension.
func classify(id, navID, mediaType, href string) ItemKind {
	if navID != "" && id == navID {
		return KindNavigation
	}
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case mt == "text/css":
		return KindStylesheet
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "application/xhtml"), mt == "text/html":
		return KindContentDocument
	}
	switch extOf(href) {
	case ".css":
		return KindStylesheet
	case ".png", ".jpeg", ".jpg", ".gif", ".svg", ".webp":
		return KindImage
	case ".html", ".xhtml", ".htm":
		return KindContentDocument
	}
	return KindGeneric
}

// root is the directory items of this kind are normalized into.
func (k ItemKind) root() string {
	switch k {
	case KindImage, KindGeneric:
		return AssetRoot
	}
	return ContentRoot
}
