package realworld

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/otiai10/copy"

	"github.com/adammathes/epubnorm/pkg/epub"
	"github.com/adammathes/epubnorm/pkg/verify"
)

// TestRealWorldSamples normalizes a copy of every sample EPUB and checks
// that the rewritten book still resolves every internal reference.
//
// Samples must be downloaded first into test/realworld/samples, or set
// REALWORLD_SAMPLES_DIR to point at a directory of EPUBs.
func TestRealWorldSamples(t *testing.T) {
	dir := os.Getenv("REALWORLD_SAMPLES_DIR")
	if dir == "" {
		dir = filepath.Join(findRepoRoot(t), "test", "realworld", "samples")
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*.epub"))
	if err != nil {
		t.Fatalf("globbing samples: %v", err)
	}
	if len(entries) == 0 {
		t.Skipf("no sample EPUBs found in %s", dir)
	}

	for _, sample := range entries {
		name := filepath.Base(sample)
		t.Run(name, func(t *testing.T) {
			work := filepath.Join(t.TempDir(), name)
			if err := copy.Copy(sample, work); err != nil {
				t.Fatalf("copying sample: %v", err)
			}

			err := epub.Extract(work, true, func(doc *epub.Document) error {
				before := verify.Verify(doc)

				rpt, err := doc.Normalize()
				if err != nil {
					return err
				}
				t.Logf("moved %d files in %s", len(rpt.Moves), rpt.Elapsed)

				after := verify.Verify(doc)
				// Normalization must not break anything that resolved before.
				if after.ErrorCount() > before.ErrorCount() {
					t.Errorf("errors grew from %d to %d", before.ErrorCount(), after.ErrorCount())
					for _, m := range after.Messages {
						t.Logf("  %s", m)
					}
				}
				return nil
			}, epub.WithJournal(""))
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
		})
	}
}

// findRepoRoot walks up from the test file location to find the repo root.
func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root (no go.mod)")
		}
		dir = parent
	}
}
