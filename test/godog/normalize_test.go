package godog_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/adammathes/epubnorm/internal/fixture"
	"github.com/adammathes/epubnorm/pkg/archive"
	"github.com/adammathes/epubnorm/pkg/epub"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:        "pretty",
			Paths:         []string{"testdata/features"},
			TestingT:      t,
			StopOnFailure: false,
			Strict:        true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}

// scenarioState holds per-scenario state for step definitions.
type scenarioState struct {
	storage *archive.FS
	doc     *epub.Document

	normalizeErr error
	firstPass    []string
	secondPass   []string
	added        []*epub.Item
}

func (s *scenarioState) open(opts fixture.Options) error {
	st, err := fixture.Memory(opts)
	if err != nil {
		return err
	}
	doc, err := epub.Open(st, epub.WithJournal(""))
	if err != nil {
		return err
	}
	s.storage, s.doc = st, doc
	return nil
}

func (s *scenarioState) read(name string) (string, error) {
	data, err := s.storage.Read(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *scenarioState) normalizedPaths() ([]string, error) {
	items, err := s.doc.Manifest().Items()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, it := range items {
		out = append(out, it.NormalizedPath())
	}
	return out, nil
}

func (s *scenarioState) tocEntry(label string) (*epub.TOCEntry, error) {
	toc, err := s.doc.TOC()
	if err != nil {
		return nil, err
	}
	stack := toc.Entries()
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.Label == label {
			return e, nil
		}
		stack = append(stack, e.Children...)
	}
	return nil, fmt.Errorf("no TOC entry labelled %q", label)
}

func initializeScenario(ctx *godog.ScenarioContext) {
	s := &scenarioState{}

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		*s = scenarioState{}
		return c, nil
	})

	// ================================================================
	// Given steps
	// ================================================================

	ctx.Step(`^the messy fixture book$`, func() error {
		return s.open(fixture.Options{})
	})
	ctx.Step(`^the messy fixture book with (\d+) chapters$`, func(n int) error {
		return s.open(fixture.Options{Chapters: n, ParagraphsPerChapter: 2, SpacedName: true})
	})
	ctx.Step(`^the messy fixture book with a broken TOC$`, func() error {
		return s.open(fixture.Options{BrokenTOC: true})
	})
	ctx.Step(`^the archive file "([^"]*)"$`, func(name string) error {
		return s.storage.Write(name, fixture.ExtraPNG)
	})

	// ================================================================
	// When steps
	// ================================================================

	ctx.Step(`^the book is normalized$`, func() error {
		_, s.normalizeErr = s.doc.Normalize()
		return nil
	})
	ctx.Step(`^I compute the normalized path of every item twice$`, func() error {
		var err error
		if s.firstPass, err = s.normalizedPaths(); err != nil {
			return err
		}
		s.secondPass, err = s.normalizedPaths()
		return err
	})
	ctx.Step(`^I add "([^"]*)" to the manifest twice$`, func(name string) error {
		for range 2 {
			it, err := s.doc.Manifest().Add(name)
			if err != nil {
				return err
			}
			s.added = append(s.added, it)
		}
		return nil
	})

	// ================================================================
	// Then steps
	// ================================================================

	ctx.Step(`^both computations agree$`, func() error {
		if strings.Join(s.firstPass, "\n") != strings.Join(s.secondPass, "\n") {
			return fmt.Errorf("paths changed between calls:\n%v\n%v", s.firstPass, s.secondPass)
		}
		return nil
	})
	ctx.Step(`^item "([^"]*)" would move to "([^"]*)"$`, func(id, want string) error {
		it, err := s.doc.Manifest().Item(id)
		if err != nil {
			return err
		}
		if got := it.NormalizedPath(); got != want {
			return fmt.Errorf("normalized path of %s: got %s, want %s", id, got, want)
		}
		return nil
	})
	ctx.Step(`^item "([^"]*)" is at "([^"]*)" with href "([^"]*)"$`, func(id, path, href string) error {
		if s.normalizeErr != nil {
			return s.normalizeErr
		}
		it, err := s.doc.Manifest().Item(id)
		if err != nil {
			return err
		}
		if it.Path() != path || it.Href() != href {
			return fmt.Errorf("item %s: got %s (%s), want %s (%s)", id, it.Path(), it.Href(), path, href)
		}
		return nil
	})
	ctx.Step(`^the archive contains "([^"]*)"$`, func(name string) error {
		if !s.storage.Exists(name) {
			return fmt.Errorf("%s is missing", name)
		}
		return nil
	})
	ctx.Step(`^the archive does not contain "([^"]*)"$`, func(name string) error {
		if s.storage.Exists(name) {
			return fmt.Errorf("%s still exists", name)
		}
		return nil
	})
	ctx.Step(`^"([^"]*)" contains '([^']*)'$`, func(name, want string) error {
		got, err := s.read(name)
		if err != nil {
			return err
		}
		if !strings.Contains(got, want) {
			return fmt.Errorf("%s does not contain %q:\n%s", name, want, got)
		}
		return nil
	})
	ctx.Step(`^"([^"]*)" starts with '([^']*)'$`, func(name, want string) error {
		got, err := s.read(name)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(got, want) {
			return fmt.Errorf("%s does not start with %q:\n%s", name, want, got)
		}
		return nil
	})
	ctx.Step(`^the TOC entry "([^"]*)" points at "([^"]*)"$`, func(label, want string) error {
		e, err := s.tocEntry(label)
		if err != nil {
			return err
		}
		if e.URL != want {
			return fmt.Errorf("TOC entry %s: got %s, want %s", label, e.URL, want)
		}
		return nil
	})
	ctx.Step(`^the top level TOC labels are "([^"]*)"$`, func(want string) error {
		toc, err := s.doc.TOC()
		if err != nil {
			return err
		}
		var labels []string
		for _, e := range toc.Entries() {
			labels = append(labels, e.Label)
		}
		if got := strings.Join(labels, ", "); got != want {
			return fmt.Errorf("TOC labels: got %s, want %s", got, want)
		}
		return nil
	})
	ctx.Step(`^every manifest item has a distinct path$`, func() error {
		if s.normalizeErr != nil {
			return s.normalizeErr
		}
		items, err := s.doc.Manifest().Items()
		if err != nil {
			return err
		}
		seen := make(map[string]string)
		for _, it := range items {
			if other, ok := seen[it.Path()]; ok {
				return fmt.Errorf("%s and %s share %s", other, it.ID(), it.Path())
			}
			seen[it.Path()] = it.ID()
		}
		return nil
	})
	ctx.Step(`^both additions return item "([^"]*)"$`, func(id string) error {
		if len(s.added) != 2 {
			return fmt.Errorf("expected two additions, got %d", len(s.added))
		}
		for _, it := range s.added {
			if it.ID() != id {
				return fmt.Errorf("added item id: got %s, want %s", it.ID(), id)
			}
		}
		return nil
	})
	ctx.Step(`^the manifest lists "([^"]*)" once$`, func(name string) error {
		_, err := s.doc.Manifest().ItemForPath(name)
		return err
	})
	ctx.Step(`^normalization fails with a broken reference$`, func() error {
		if !errors.Is(s.normalizeErr, epub.ErrBrokenReference) {
			return fmt.Errorf("expected a broken reference, got %v", s.normalizeErr)
		}
		return nil
	})
}
