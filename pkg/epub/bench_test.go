package epub

import (
	"fmt"
	"testing"

	"github.com/adammathes/epubnorm/internal/fixture"
)

func BenchmarkNormalize(b *testing.B) {
	for _, chapters := range []int{1, 20, 100} {
		b.Run(fmt.Sprintf("%dch", chapters), func(b *testing.B) {
			opts := fixture.Options{Chapters: chapters, ParagraphsPerChapter: 50}
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				st, err := fixture.Memory(opts)
				if err != nil {
					b.Fatal(err)
				}
				doc, err := Open(st, WithJournal(""))
				if err != nil {
					b.Fatal(err)
				}
				b.StartTimer()
				if _, err := doc.Normalize(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
