package segment

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListSortedByOrdinal(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, n := range []string{"000002", "000000", "000001"} {
		path := filepath.Join(dir, s.Prefix()+"_"+n+".mkv")
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	segs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	for i, want := range []int{0, 1, 2} {
		if segs[i].Ordinal != want {
			t.Fatalf("segment %d: ordinal %d, want %d", i, segs[i].Ordinal, want)
		}
	}
}

func TestListIgnoresOtherSessions(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	os.WriteFile(filepath.Join(dir, s.Prefix()+"_000000.mkv"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "seg_deadbeef_000000.mkv"), []byte("x"), 0644)

	segs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment from this session, got %d", len(segs))
	}
}

func TestErase(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	os.WriteFile(filepath.Join(dir, s.Prefix()+"_000000.mkv"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, s.Prefix()+"_000001.mkv"), []byte("x"), 0644)

	if err := s.Erase(); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	segs, _ := s.List()
	if len(segs) != 0 {
		t.Fatalf("expected 0 segments after erase, got %d", len(segs))
	}
}
