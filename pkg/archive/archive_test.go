package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStorage(t *testing.T) {
	st := NewMemory()

	if err := st.Write("OEBPS/html/a.html", []byte("<p>a</p>")); err != nil {
		t.Fatal(err)
	}
	if !st.Exists("OEBPS/html/a.html") {
		t.Fatal("written file does not exist")
	}
	if st.Exists("OEBPS/html") {
		t.Error("directories must not report as existing files")
	}

	data, err := st.Read("OEBPS/html/a.html")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<p>a</p>" {
		t.Errorf("Read = %q", data)
	}

	if _, err := st.Read("missing.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(missing) error = %v, want ErrNotFound", err)
	}

	if err := st.Move("OEBPS/html/a.html", "OEBPS/0d6339-a.xhtml"); err != nil {
		t.Fatal(err)
	}
	if st.Exists("OEBPS/html/a.html") || !st.Exists("OEBPS/0d6339-a.xhtml") {
		t.Error("move did not relocate the file")
	}
	if err := st.Move("OEBPS/0d6339-a.xhtml", "OEBPS/0d6339-a.xhtml"); err != nil {
		t.Errorf("self move: %v", err)
	}
	if err := st.Move("nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Move(missing) error = %v", err)
	}

	if err := st.Append("log.txt", []byte("one\n")); err != nil {
		t.Fatal(err)
	}
	if err := st.Append("log.txt", []byte("two\n")); err != nil {
		t.Fatal(err)
	}
	data, _ = st.Read("log.txt")
	if string(data) != "one\ntwo\n" {
		t.Errorf("Append result = %q", data)
	}

	names, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"OEBPS/0d6339-a.xhtml", "log.txt"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCleanEmptyDirs(t *testing.T) {
	st := NewMemory()
	st.Write("OEBPS/keep/a.css", []byte("x"))
	st.Mkdir("OEBPS/html/deep/er")
	st.Mkdir("META-INF")

	if err := st.CleanEmptyDirs(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"/OEBPS/html/deep/er", "/OEBPS/html", "/META-INF"} {
		if _, err := st.Afero().Stat(d); err == nil {
			t.Errorf("%s should have been removed", d)
		}
	}
	if !st.Exists("OEBPS/keep/a.css") {
		t.Error("file removed with empty dirs")
	}
}

func TestExtract(t *testing.T) {
	st := NewMemory()
	st.Write("OEBPS/images/cover.jpg", []byte("jpg"))
	dest := t.TempDir()

	if err := st.Extract("OEBPS/images/cover.jpg", dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "cover.jpg"))
	if err != nil || string(data) != "jpg" {
		t.Fatalf("extracted data = %q, %v", data, err)
	}
	if err := st.Extract("OEBPS/images/cover.jpg", dest); err == nil {
		t.Error("second extract should refuse to overwrite")
	}
}

func TestPackWritesMimetypeFirst(t *testing.T) {
	st := NewMemory()
	st.Write("OEBPS/content.opf", []byte("<package/>"))
	st.Write("META-INF/container.xml", []byte("<container/>"))
	st.Write("mimetype", []byte("application/epub+zip\n"))

	out := filepath.Join(t.TempDir(), "book.epub")
	if err := Pack(st, out); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	if len(zr.File) != 3 {
		t.Fatalf("entries = %d, want 3", len(zr.File))
	}
	first := zr.File[0]
	if first.Name != "mimetype" || first.Method != zip.Store || len(first.Extra) != 0 {
		t.Errorf("first entry = %s method %d extra %d", first.Name, first.Method, len(first.Extra))
	}

	back, err := LoadZip(out)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := back.Read("mimetype")
	if string(data) != EPUBMimetype {
		t.Errorf("mimetype = %q", data)
	}
	if !back.Exists("OEBPS/content.opf") {
		t.Error("content.opf lost in round trip")
	}
}

type brokenStorage struct {
	*FS
}

func (b brokenStorage) List() ([]string, error) {
	return []string{"ghost.xhtml"}, nil
}

func TestRezipRestoresBackup(t *testing.T) {
	st := NewMemory()
	st.Write("a.txt", []byte("original"))
	out := filepath.Join(t.TempDir(), "book.epub")
	if err := Pack(st, out); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(out)

	err := Rezip(brokenStorage{NewMemory()}, out, true)
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("Rezip error = %v, want ErrWriteFailure", err)
	}
	after, _ := os.ReadFile(out)
	if string(before) != string(after) {
		t.Error("archive not restored from backup")
	}
	if _, err := os.Stat(out + "_bak"); !os.IsNotExist(err) {
		t.Error("backup file left behind")
	}
}

func TestWithExtracted(t *testing.T) {
	st := NewMemory()
	st.Write("OEBPS/a.txt", []byte("a"))
	out := filepath.Join(t.TempDir(), "book.epub")
	if err := Pack(st, out); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WithExtracted(out, true, func(dir string, s Storage) error {
		if err := s.Write("OEBPS/b.txt", []byte("b")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}

	back, err := LoadZip(out)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Exists("OEBPS/b.txt") {
		t.Error("changes made before the error were not re-archived")
	}
}
