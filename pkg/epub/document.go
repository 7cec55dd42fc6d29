// Package epub normalizes the layout of an EPUB container. Every
// manifest item is renamed to a content-addressed path under a flat
// canonical tree and every internal reference (manifest, guide, TOC,
// HTML attributes, CSS url()) is rewritten to follow it.
package epub

import (
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/adammathes/epubnorm/pkg/archive"
	"github.com/adammathes/epubnorm/pkg/paths"
	"github.com/adammathes/epubnorm/pkg/report"
)

// Canonical layout.
const (
	ContainerPath      = "META-INF/container.xml"
	PackageMediaType   = "application/oebps-package+xml"
	CanonicalOPFPath   = "OEBPS/content.opf"
	ContentRoot        = "OEBPS"
	AssetRoot          = "OEBPS/assets"
	ContentDocumentExt = ".xhtml"
	DefaultJournal     = "log.txt"
)

// Document is one open EPUB. It owns the parsed container and package
// documents; manifest, spine, guide and metadata views are rebuilt from
// them on every access because normalization edits them in place.
type Document struct {
	storage archive.Storage
	log     *zap.Logger
	journal string
	report  *report.Report

	container *etree.Document
	opfPath   string
	opf       *etree.Document
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.log = l
		}
	}
}

// WithJournal sets the archive path recoverable problems are journaled
// to. An empty name disables the journal.
func WithJournal(name string) Option {
	return func(d *Document) {
		d.journal = name
	}
}

// Open parses the container and package documents found in st.
func Open(st archive.Storage, opts ...Option) (*Document, error) {
	d := &Document{
		storage: st,
		log:     zap.NewNop(),
		journal: DefaultJournal,
		report:  report.NewReport(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.journal != "" {
		d.log = teeJournal(d.log, st, d.journal)
	}

	if err := d.readContainer(); err != nil {
		return nil, err
	}
	if err := d.readOPF(); err != nil {
		return nil, err
	}
	return d, nil
}

// Extract unpacks the EPUB at zipPath, opens it and hands it to fn. The
// working tree is packed back into zipPath whether or not fn succeeds;
// when backup is set a failed write restores the original archive.
func Extract(zipPath string, backup bool, fn func(*Document) error, opts ...Option) error {
	return archive.WithExtracted(zipPath, backup, func(_ string, st archive.Storage) error {
		d, err := Open(st, opts...)
		if err != nil {
			return err
		}
		return fn(d)
	})
}

// ExtractTo unpacks the EPUB at zipPath into dir.
func ExtractTo(zipPath, dir string) error {
	return archive.ExtractTo(zipPath, dir)
}

func (d *Document) readContainer() error {
	data, err := d.storage.Read(ContainerPath)
	if err != nil {
		return fmt.Errorf("%w: reading container: %w", ErrInvalidEPUB, err)
	}
	c := etree.NewDocument()
	if err := c.ReadFromBytes(data); err != nil {
		return fmt.Errorf("%w: parsing container.xml: %w", ErrInvalidEPUB, err)
	}
	rf := c.FindElement("//rootfile[@full-path]")
	if rf == nil {
		return fmt.Errorf("%w: container.xml has no rootfile", ErrInvalidEPUB)
	}
	d.container = c
	d.opfPath = paths.Clean(paths.UnescapePath(rf.SelectAttrValue("full-path", "")))
	return nil
}

func (d *Document) readOPF() error {
	data, err := d.storage.Read(d.opfPath)
	if err != nil {
		return fmt.Errorf("%w: reading package document: %w", ErrInvalidEPUB, err)
	}
	opf := etree.NewDocument()
	if err := opf.ReadFromBytes(data); err != nil {
		return fmt.Errorf("%w: parsing %s: %w", ErrInvalidEPUB, d.opfPath, err)
	}
	if opf.Root() == nil {
		return fmt.Errorf("%w: %s has no package element", ErrInvalidEPUB, d.opfPath)
	}
	d.opf = opf
	return nil
}

// Storage returns the backend the document lives in.
func (d *Document) Storage() archive.Storage { return d.storage }

// Logger returns the document's logger, journal included.
func (d *Document) Logger() *zap.Logger { return d.log }

// Report returns the findings of the latest pass.
func (d *Document) Report() *report.Report { return d.report }

// OPFPath is the archive path of the package document.
func (d *Document) OPFPath() string { return d.opfPath }

// OPFDir is the directory manifest hrefs are relative to.
func (d *Document) OPFDir() string { return paths.Dir(d.opfPath) }

// Manifest returns a view of the package manifest.
func (d *Document) Manifest() *Manifest { return &Manifest{doc: d} }

// Spine returns a view of the package spine.
func (d *Document) Spine() *Spine { return &Spine{doc: d} }

// Guide returns a view of the package guide.
func (d *Document) Guide() *Guide { return &Guide{doc: d} }

// Metadata returns a view of the package metadata.
func (d *Document) Metadata() *Metadata { return &Metadata{doc: d} }

// TOC returns the navigation document named by the spine. It fails
// with ErrNotFound when the book has none.
func (d *Document) TOC() (*TOC, error) {
	item, err := d.Spine().TOC()
	if err != nil {
		return nil, err
	}
	return loadTOC(item)
}

// section returns the named child of the package element, creating it
// when missing.
func (d *Document) section(tag string) *etree.Element {
	root := d.opf.Root()
	if el := root.SelectElement(tag); el != nil {
		return el
	}
	return root.CreateElement(qualify(root, tag))
}

// qualify prefixes tag with the namespace prefix used by parent.
func qualify(parent *etree.Element, tag string) string {
	if parent.Space == "" {
		return tag
	}
	return parent.Space + ":" + tag
}

func (d *Document) saveOPF() error {
	d.opf.Indent(2)
	data, err := d.opf.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", d.opfPath, err)
	}
	return d.storage.Write(d.opfPath, data)
}

func (d *Document) saveContainer() error {
	d.container.Indent(2)
	data, err := d.container.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing container: %w", err)
	}
	return d.storage.Write(ContainerPath, data)
}

// moveOPF relocates the package document and repoints the container.
func (d *Document) moveOPF(to string) error {
	if d.opfPath == to {
		return nil
	}
	if err := d.storage.Move(d.opfPath, to); err != nil {
		return fmt.Errorf("moving package document: %w", err)
	}
	rf := d.container.FindElement("//rootfile[@full-path]")
	rf.CreateAttr("full-path", paths.EscapePath(to))
	rf.CreateAttr("media-type", PackageMediaType)
	d.recordMove(d.opfPath, to)
	d.opfPath = to
	return d.saveContainer()
}

// record reports a condition and journals it.
func (d *Document) record(sev report.Severity, code, msg, location string, fields ...zap.Field) {
	d.report.AddWithLocation(sev, code, msg, location)
	fields = append([]zap.Field{zap.String("code", code), zap.String("location", location)}, fields...)
	switch sev {
	case report.Fatal, report.Error:
		d.log.Error(msg, fields...)
	case report.Warning:
		d.log.Warn(msg, fields...)
	default:
		d.log.Info(msg, fields...)
	}
}

func (d *Document) recordMove(from, to string) {
	d.report.AddMove(from, to)
	d.log.Info("moved", zap.String("from", from), zap.String("to", to))
}

// Standardize prepares the book for normalization: TOC sources, guide
// hrefs and manifest hrefs are escaped, and every content document and
// stylesheet is standardized.
func (d *Document) Standardize() error {
	toc, err := d.TOC()
	switch {
	case err == nil:
		if err := toc.Standardize(); err != nil {
			return err
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}
	if err := d.Guide().Standardize(); err != nil {
		return err
	}
	return d.Manifest().Standardize()
}

// Normalize standardizes the book, rewrites every internal reference to
// its normalized target and then moves every file, the package document
// last. It returns what was done and what was recovered from.
func (d *Document) Normalize() (*report.Report, error) {
	start := time.Now()
	d.report = report.NewReport()
	defer func() { d.report.Elapsed = time.Since(start) }()

	d.log.Info("normalizing", zap.String("opf", d.opfPath))
	if _, err := d.Manifest().planRelocations(); err != nil {
		return d.report, fmt.Errorf("manifest: %w", err)
	}
	for _, dir := range []string{"META-INF", ContentRoot} {
		if err := d.storage.Mkdir(dir); err != nil {
			return d.report, err
		}
	}
	if err := d.Standardize(); err != nil {
		return d.report, fmt.Errorf("standardize: %w", err)
	}

	toc, err := d.TOC()
	switch {
	case err == nil:
		if err := toc.Normalize(); err != nil {
			return d.report, fmt.Errorf("toc: %w", err)
		}
	case !errors.Is(err, ErrNotFound):
		return d.report, err
	}
	if err := d.Guide().Normalize(); err != nil {
		return d.report, fmt.Errorf("guide: %w", err)
	}
	if err := d.Manifest().Normalize(); err != nil {
		return d.report, fmt.Errorf("manifest: %w", err)
	}

	if err := d.storage.CleanEmptyDirs(); err != nil {
		return d.report, err
	}
	d.log.Info("normalized",
		zap.Int("moved", len(d.report.Moves)),
		zap.Int("warnings", d.report.WarningCount()),
		zap.Duration("elapsed", time.Since(start)))
	return d.report, nil
}

// Compress minifies the items of the given kinds, stylesheets and
// content documents when none are given.
func (d *Document) Compress(kinds ...ItemKind) error {
	if len(kinds) == 0 {
		kinds = []ItemKind{KindStylesheet, KindContentDocument}
	}
	items, err := d.Manifest().Items(kinds...)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := it.Compress(); err != nil {
			return fmt.Errorf("compressing %s: %w", it.Path(), err)
		}
	}
	return nil
}
