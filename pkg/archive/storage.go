// Package archive provides the storage backends the normalizer works
// against: a directory tree on disk or an in-memory tree, both exposed
// through the same slash-separated Storage interface, plus the ZIP
// unpack/pack helpers used to move an EPUB in and out of them.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Sentinel errors returned by the archive package.
var (
	// ErrNotFound indicates a named entry does not exist in the storage.
	ErrNotFound = errors.New("archive: entry not found")

	// ErrWriteFailure indicates an archive could not be written back.
	// The previous archive has been restored when a backup existed.
	ErrWriteFailure = errors.New("archive: failed to write archive")
)

// Storage is the capability set the normalizer needs from a container.
// Names are archive paths: relative to the root, "/"-separated.
type Storage interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Append(name string, data []byte) error
	Move(from, to string) error
	Remove(name string) error
	Exists(name string) bool
	Mkdir(name string) error
	List() ([]string, error)
	Extract(name, destDir string) error
	CleanEmptyDirs() error
}

// FS is a Storage backed by an afero file system.
type FS struct {
	fs afero.Fs
}

// NewFS wraps an afero file system. Paths are resolved from its root.
func NewFS(fsys afero.Fs) *FS {
	return &FS{fs: fsys}
}

// NewDir returns a Storage rooted at a directory on disk.
func NewDir(dir string) *FS {
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// NewMemory returns an empty in-memory Storage.
func NewMemory() *FS {
	return NewFS(afero.NewMemMapFs())
}

// Afero exposes the underlying file system.
func (s *FS) Afero() afero.Fs {
	return s.fs
}

func (s *FS) name(name string) string {
	return "/" + strings.TrimPrefix(path.Clean("/"+name), "/")
}

// Read returns the contents of an entry.
func (s *FS) Read(name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.name(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the contents of an entry, creating parent directories.
func (s *FS) Write(name string, data []byte) error {
	n := s.name(name)
	if err := s.fs.MkdirAll(path.Dir(n), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}
	if err := afero.WriteFile(s.fs, n, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Append adds data to the end of an entry, creating it when missing.
func (s *FS) Append(name string, data []byte) error {
	n := s.name(name)
	if err := s.fs.MkdirAll(path.Dir(n), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}
	f, err := s.fs.OpenFile(n, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("appending to %s: %w", name, err)
	}
	return f.Close()
}

// Move renames an entry, creating the target directory. Moving an entry
// onto itself is a no-op.
func (s *FS) Move(from, to string) error {
	src, dst := s.name(from), s.name(to)
	if src == dst {
		return nil
	}
	if !s.Exists(from) {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	if err := s.fs.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", to, err)
	}
	if err := s.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to %s: %w", from, to, err)
	}
	return nil
}

// Remove deletes an entry.
func (s *FS) Remove(name string) error {
	if err := s.fs.Remove(s.name(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a regular file exists under name.
func (s *FS) Exists(name string) bool {
	fi, err := s.fs.Stat(s.name(name))
	return err == nil && !fi.IsDir()
}

// Mkdir creates a directory and any missing parents.
func (s *FS) Mkdir(name string) error {
	return s.fs.MkdirAll(s.name(name), 0o755)
}

// List returns every regular file, sorted.
func (s *FS) List() ([]string, error) {
	var names []string
	err := afero.Walk(s.fs, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			names = append(names, strings.TrimPrefix(filepath.ToSlash(p), "/"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Extract copies one entry into destDir on the local disk, keeping its
// file name. It refuses to overwrite an existing file.
func (s *FS) Extract(name, destDir string) error {
	data, err := s.Read(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}
	out := filepath.Join(destDir, path.Base(name))
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("extracting %s: %s already exists", name, out)
	}
	return os.WriteFile(out, data, 0o644)
}

// CleanEmptyDirs removes every directory that holds no files, deepest
// first, so chains of empty parents disappear in one call.
func (s *FS) CleanEmptyDirs() error {
	var dirs []string
	err := afero.Walk(s.fs, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && p != "/" {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directories: %w", err)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") > strings.Count(dirs[j], "/")
	})
	for _, d := range dirs {
		empty, err := afero.IsEmpty(s.fs, d)
		if err != nil {
			return fmt.Errorf("checking %s: %w", d, err)
		}
		if empty {
			if err := s.fs.Remove(d); err != nil {
				return fmt.Errorf("removing %s: %w", d, err)
			}
		}
	}
	return nil
}
