// Package mediastore is the object store for uploaded course media. Buckets
// are directories under a single root; paths handed back to callers are
// always relative to that root.
package mediastore

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Entry describes a stored object within a bucket
type Entry struct {
	Path    string    `json:"path"` // bucket-relative path usable with Open
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store writes and reads media objects on an afero filesystem. Production
// uses afero.OsFs rooted at the configured media directory; tests use
// afero.MemMapFs.
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a store over fs rooted at root
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// NewOSStore creates a store over the real filesystem rooted at root
func NewOSStore(root string) *Store {
	return New(afero.NewOsFs(), root)
}

func (s *Store) objectPath(bucket, name string) (string, error) {
	bucket = strings.Trim(bucket, "/")
	if bucket == "" || strings.Contains(bucket, "..") {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	// Only the base name survives; uploads cannot escape the bucket.
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return path.Join(bucket, name), nil
}

// Save writes the object and returns its root-relative path
func (s *Store) Save(bucket, name string, r io.Reader) (string, error) {
	rel, err := s.objectPath(bucket, name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, rel)
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create bucket directory: %w", err)
	}

	f, err := s.fs.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		// Partial writes are removed so List never reports torn objects.
		_ = s.fs.Remove(full)
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	return rel, nil
}

// Open opens a stored object by its root-relative path
func (s *Store) Open(rel string) (afero.File, error) {
	if strings.Contains(rel, "..") {
		return nil, fmt.Errorf("invalid object path %q", rel)
	}
	f, err := s.fs.Open(filepath.Join(s.root, rel))
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// Stat returns the size of a stored object
func (s *Store) Stat(rel string) (int64, error) {
	if strings.Contains(rel, "..") {
		return 0, fmt.Errorf("invalid object path %q", rel)
	}
	info, err := s.fs.Stat(filepath.Join(s.root, rel))
	if err != nil {
		return 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return info.Size(), nil
}

// List returns the objects in a bucket, newest first
func (s *Store) List(bucket string) ([]Entry, error) {
	bucket = strings.Trim(bucket, "/")
	if bucket == "" || strings.Contains(bucket, "..") {
		return nil, fmt.Errorf("invalid bucket %q", bucket)
	}

	dir := filepath.Join(s.root, bucket)
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket: %w", err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		entries = append(entries, Entry{
			Path:    path.Join(bucket, info.Name()),
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Remove deletes a stored object. Removing an object that is already gone is
// not an error.
func (s *Store) Remove(rel string) error {
	if strings.Contains(rel, "..") {
		return fmt.Errorf("invalid object path %q", rel)
	}
	if err := s.fs.Remove(filepath.Join(s.root, rel)); err != nil {
		if _, statErr := s.fs.Stat(filepath.Join(s.root, rel)); statErr != nil {
			return nil
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}
