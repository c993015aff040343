package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Collection is the ordered set of movie records loaded from, and rewritten
// to, the collection file.
type Collection struct {
	Records []*MovieRecord
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.Records)
}

// Find returns the first record matching the identity, or nil.
func (c *Collection) Find(id Identity) *MovieRecord {
	if i := c.IndexOf(id); i >= 0 {
		return c.Records[i]
	}
	return nil
}

// IndexOf returns the position of the record matching the identity, or -1.
func (c *Collection) IndexOf(id Identity) int {
	for i, r := range c.Records {
		if r.Identity().Matches(id) {
			return i
		}
	}
	return -1
}

// Upsert replaces the record matching rec's identity, or appends rec when no
// match exists. It reports whether an existing record was replaced.
func (c *Collection) Upsert(rec *MovieRecord) bool {
	if i := c.IndexOf(rec.Identity()); i >= 0 {
		c.Records[i] = rec
		return true
	}
	c.Records = append(c.Records, rec)
	return false
}

// Store reads and writes the collection file.
type Store struct {
	path string
}

// NewStore creates a store for the given collection path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the collection file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the collection. A missing file yields an empty collection.
func (s *Store) Load() (*Collection, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Collection{}, nil
		}
		return nil, fmt.Errorf("failed to read collection file: %w", err)
	}

	var records []*MovieRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse collection file %s: %w", s.path, err)
	}

	// Drop entries without a title; they cannot be keyed.
	kept := records[:0]
	for _, r := range records {
		if r != nil && r.Title != "" {
			kept = append(kept, r)
		}
	}

	return &Collection{Records: kept}, nil
}

// Save rewrites the collection atomically: the file is written to a
// temporary sibling and renamed into place, so an interrupted process never
// leaves a half-written collection behind.
func (s *Store) Save(c *Collection) error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create collection directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c.Records)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp collection file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp collection file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp collection file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace collection file: %w", err)
	}

	return nil
}
