// generate-test-epubs.go creates messy EPUB files of various sizes for
// benchmarking normalization.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adammathes/epubnorm/internal/fixture"
)

func main() {
	dir := "benchmarks/corpus"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dir, err)
		os.Exit(1)
	}

	sizes := []struct {
		name      string
		chapters  int
		paraPerCh int
	}{
		{"tiny-1ch", 1, 5},
		{"small-5ch", 5, 20},
		{"medium-20ch", 20, 50},
		{"large-50ch", 50, 100},
		{"xlarge-100ch", 100, 200},
	}

	for _, s := range sizes {
		path := filepath.Join(dir, s.name+".epub")
		opts := fixture.Options{Chapters: s.chapters, ParagraphsPerChapter: s.paraPerCh, SpacedName: true}
		if err := fixture.WriteZip(path, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", path, err)
			os.Exit(1)
		}
		fi, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s (%d KB)\n", path, fi.Size()/1024)
	}
}
