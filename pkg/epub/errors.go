package epub

import (
	"errors"
	"fmt"

	"github.com/adammathes/epubnorm/pkg/archive"
)

var (
	// ErrNotFound is returned when a named archive entry or manifest item
	// does not exist.
	ErrNotFound = archive.ErrNotFound

	// ErrMissingReference marks a link inside a content document or
	// stylesheet whose target is absent from the archive.
	ErrMissingReference = errors.New("missing reference")

	// ErrBrokenReference marks a TOC or guide entry that cannot be
	// resolved. It aborts normalization.
	ErrBrokenReference = errors.New("broken reference")

	ErrDuplicateManifestEntry = errors.New("duplicate manifest entry")
	ErrAmbiguousLookup        = errors.New("ambiguous manifest lookup")
	ErrArchiveWriteFailure    = archive.ErrWriteFailure

	// ErrPathCollision is returned when two items would be moved to the
	// same normalized path.
	ErrPathCollision = errors.New("normalized path collision")

	ErrInvalidEPUB = errors.New("invalid epub")
)

// ReferenceError describes a reference that could not be resolved.
type ReferenceError struct {
	Source string // archive path of the referring document
	Ref    string // reference as written in the source
	Err    error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Source, e.Ref, e.Err)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}
