package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_FocusAndActive(t *testing.T) {
	s := NewStore()
	if _, ok := s.Active(); ok {
		t.Fatal("new store has no active document")
	}

	s.Open("/tmp/a.inp", "x")
	if err := s.Focus("/tmp/a.inp"); err != nil {
		t.Fatal(err)
	}
	d, ok := s.Active()
	if !ok || d.Path != "/tmp/a.inp" || d.Dir() != "/tmp" {
		t.Errorf("Active = %+v, %v", d, ok)
	}

	if err := s.Focus("/tmp/missing"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Focus(missing) = %v", err)
	}

	s.Close("/tmp/a.inp")
	if _, ok := s.Active(); ok {
		t.Error("closing the focused document clears focus")
	}
}

func TestStore_SaveWritesDirtyBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rod.ftn")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	if _, err := s.OpenFile(path); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(path, "$begin\n ProblemEndTime = 10\n$end"); err != nil {
		t.Fatal(err)
	}
	if d, _ := s.Get(path); !d.Dirty {
		t.Fatal("update marks dirty")
	}

	if err := s.Save(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "$begin\n ProblemEndTime = 10\n$end" {
		t.Errorf("file = %q", data)
	}
	if fi, _ := os.Stat(path); fi.Mode().Perm() != 0o600 {
		t.Errorf("mode changed to %v", fi.Mode().Perm())
	}
	if d, _ := s.Get(path); d.Dirty {
		t.Error("save clears dirty")
	}
}

func TestStore_SaveCleanIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.inp")
	os.WriteFile(path, []byte("on disk"), 0o644)

	s := NewStore()
	// buffer text differs but is not dirty: nothing is written
	s.Open(path, "buffer")
	if err := s.Save(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(path); string(data) != "on disk" {
		t.Errorf("clean save rewrote file: %q", data)
	}

	s.Update(path, "edited")
	s.MarkSaved(path)
	s.Save(context.Background(), path)
	if data, _ := os.ReadFile(path); string(data) != "on disk" {
		t.Errorf("MarkSaved should suppress write: %q", data)
	}
}

func TestStore_SaveErrors(t *testing.T) {
	s := NewStore()
	if err := s.Save(context.Background(), "/nope"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Save(not open) = %v", err)
	}
	if err := s.Update("/nope", ""); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Update(not open) = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Open("/tmp/x", "")
	if err := s.Save(ctx, "/tmp/x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Save(cancelled) = %v", err)
	}
}
