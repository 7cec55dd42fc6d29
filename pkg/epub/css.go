package epub

import (
	"errors"
	"fmt"

	"github.com/adammathes/epubnorm/pkg/report"
	"github.com/adammathes/epubnorm/pkg/stylesheet"
)

func (i *Item) readIndented() (string, error) {
	data, err := i.Read()
	if err != nil {
		return "", err
	}
	ind, err := stylesheet.ToIndented(data)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", i.Path(), err)
	}
	return ind, nil
}

// standardizeStylesheet converts sizes to em and scopes the sheet under
// its namespace class. A sheet that already carries a normalized name
// has been scoped before and is only resized.
func (i *Item) standardizeStylesheet() error {
	ind, err := i.readIndented()
	if err != nil {
		return err
	}
	ind = stylesheet.ConvertSizes(ind)
	if i.NormalizedPath() != i.Path() {
		var dropped []string
		ind, dropped = stylesheet.Namespace(ind, stylesheet.NamespaceClass(i.Path()))
		for _, rule := range dropped {
			i.doc.record(report.Info, report.CodeCharsetDropped, "removed "+rule, i.Path())
		}
	}
	return i.Write([]byte(stylesheet.ToCSS(ind)))
}

// normalizeStylesheet rewrites url() and @import references.
func (i *Item) normalizeStylesheet() error {
	ind, err := i.readIndented()
	if err != nil {
		return err
	}
	var fatal error
	ind = stylesheet.RewriteURLs(ind, func(ref string) (string, bool) {
		if fatal != nil {
			return "", false
		}
		out, err := i.rewriteRef(ref, true)
		switch {
		case err == nil:
			return out, true
		case errors.Is(err, ErrMissingReference):
			i.doc.record(report.Warning, report.CodeMissingReference, fmt.Sprintf("url %q not found", ref), i.Path())
		default:
			fatal = err
		}
		return "", false
	})
	if fatal != nil {
		return fatal
	}
	return i.Write([]byte(stylesheet.ToCSS(ind)))
}

func (i *Item) compressStylesheet() error {
	data, err := i.Read()
	if err != nil {
		return err
	}
	out, err := stylesheet.Minify(data)
	if err != nil {
		return err
	}
	return i.Write(out)
}
