package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/otiai10/copy"
)

// MimetypeName is the entry that must come first, stored, in an EPUB.
const MimetypeName = "mimetype"

// EPUBMimetype is the required content of the mimetype entry.
const EPUBMimetype = "application/epub+zip"

// Unzip copies every file entry of the ZIP at zipPath into dst.
// Entries that cannot be read are reported in the returned error but
// do not stop the remaining entries from being copied.
func Unzip(zipPath string, dst Storage) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening epub: %w", err)
	}
	defer zr.Close()

	var errs []error
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			if err := dst.Mkdir(f.Name); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		name := path.Clean("/" + f.Name)[1:]
		if name == "" {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", f.Name, err))
			continue
		}
		if err := dst.Write(name, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// LoadZip reads an EPUB into an in-memory Storage.
func LoadZip(zipPath string) (*FS, error) {
	mem := NewMemory()
	if err := Unzip(zipPath, mem); err != nil {
		return nil, err
	}
	return mem, nil
}

// Pack writes every file of src into a new ZIP at zipPath. The mimetype
// entry is written first, stored (not compressed), with no extra field;
// everything else is deflated in sorted order.
func Pack(src Storage, zipPath string) error {
	names, err := src.List()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	mimedata := []byte(EPUBMimetype)
	if data, err := src.Read(MimetypeName); err == nil {
		mimedata = bytes.TrimSpace(data)
	}
	header := &zip.FileHeader{
		Name:   MimetypeName,
		Method: zip.Store,
	}
	header.SetMode(0o644)
	mw, err := w.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := mw.Write(mimedata); err != nil {
		return err
	}

	for _, name := range names {
		if name == MimetypeName {
			continue
		}
		data, err := src.Read(name)
		if err != nil {
			return err
		}
		fh := &zip.FileHeader{Name: name, Method: zip.Deflate}
		fh.SetMode(0o644)
		fw, err := w.CreateHeader(fh)
		if err != nil {
			return fmt.Errorf("creating zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("writing zip entry %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return os.WriteFile(zipPath, buf.Bytes(), 0o644)
}

// Rezip packs src over zipPath. When backup is set, the existing archive
// is copied aside first and restored if packing fails; the backup is
// removed on success. Failures wrap ErrWriteFailure.
func Rezip(src Storage, zipPath string, backup bool) error {
	bak := zipPath + "_bak"
	hasBackup := false
	if backup {
		if _, err := os.Stat(zipPath); err == nil {
			if err := copy.Copy(zipPath, bak); err != nil {
				return fmt.Errorf("%w: backing up %s: %v", ErrWriteFailure, zipPath, err)
			}
			hasBackup = true
		}
	}

	if err := Pack(src, zipPath); err != nil {
		if hasBackup {
			if rerr := os.Rename(bak, zipPath); rerr != nil {
				return fmt.Errorf("%w: %v (restoring backup: %v)", ErrWriteFailure, err, rerr)
			}
		}
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}

	if hasBackup {
		return os.Remove(bak)
	}
	return nil
}

// WithExtracted unpacks the EPUB at zipPath into a temporary directory,
// runs fn against it and packs the directory back over zipPath. The
// directory is re-archived whether fn succeeds or not; fn's error is
// returned first. The temporary directory is always removed.
func WithExtracted(zipPath string, backup bool, fn func(dir string, st Storage) error) error {
	dir, err := os.MkdirTemp("", "epubnorm-*")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st := NewDir(dir)
	if err := Unzip(zipPath, st); err != nil {
		return err
	}

	fnErr := fn(dir, st)
	packErr := Rezip(st, zipPath, backup)
	if fnErr != nil {
		return errors.Join(fnErr, packErr)
	}
	return packErr
}

// ExtractTo unpacks the EPUB at zipPath into dir without rezipping.
func ExtractTo(zipPath, dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("extract destination must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return Unzip(zipPath, NewDir(dir))
}
