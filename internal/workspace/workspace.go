// Package workspace holds the open documents and which one has focus.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotOpen is returned for operations on a document that is not open.
var ErrNotOpen = errors.New("document not open")

// Document is a snapshot of an open document.
type Document struct {
	Path  string
	Text  string
	Dirty bool
}

// Dir is the document's containing directory.
func (d Document) Dir() string { return filepath.Dir(d.Path) }

// Store tracks open documents by absolute path. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	active string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Open registers a document with its current on-disk text.
func (s *Store) Open(path, text string) Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Document{Path: path, Text: text}
	s.docs[path] = d
	return *d
}

// OpenFile reads path from disk and opens it.
func (s *Store) OpenFile(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Document{}, err
	}
	return s.Open(abs, string(data)), nil
}

// Update replaces the buffer text and marks the document unsaved.
func (s *Store) Update(path, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotOpen)
	}
	d.Text = text
	d.Dirty = true
	return nil
}

// MarkSaved records that the editor wrote the buffer itself.
func (s *Store) MarkSaved(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.docs[path]; ok {
		d.Dirty = false
	}
}

// Close forgets a document. Closing the focused document clears focus.
func (s *Store) Close(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, path)
	if s.active == path {
		s.active = ""
	}
}

// Focus makes path the active document.
func (s *Store) Focus(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[path]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotOpen)
	}
	s.active = path
	return nil
}

// Get returns a snapshot of an open document.
func (s *Store) Get(path string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[path]
	if !ok {
		return Document{}, false
	}
	return *d, true
}

// Active returns the focused document, if any.
func (s *Store) Active() (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == "" {
		return Document{}, false
	}
	d, ok := s.docs[s.active]
	if !ok {
		return Document{}, false
	}
	return *d, true
}

// Save writes the buffer to disk if it has unsaved edits. It returns once
// the write has completed.
func (s *Store) Save(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotOpen)
	}
	if !d.Dirty {
		return nil
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(d.Text), mode); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	d.Dirty = false
	return nil
}
