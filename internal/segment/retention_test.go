package segment

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSegment(t *testing.T, dir, prefix string, ordinal int) {
	t.Helper()
	path := filepath.Join(dir, prefix+"_"+pad6(ordinal)+".mkv")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
}

func pad6(n int) string {
	s := "000000"
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if len(digits) == 0 {
		return s
	}
	return s[:6-len(digits)] + string(digits)
}

func TestRetentionPrunesOldest(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)

	for i := 0; i < 5; i++ {
		writeSegment(t, dir, s.Prefix(), i)
	}

	r := NewRetention(s, 3)
	r.pass()

	segs, _ := s.List()
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments retained, got %d", len(segs))
	}
	for _, seg := range segs {
		if seg.Ordinal < 2 {
			t.Fatalf("expected oldest segments pruned, found ordinal %d", seg.Ordinal)
		}
	}
}

func TestRetentionIncrementalQueue(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	r := NewRetention(s, 2)

	writeSegment(t, dir, s.Prefix(), 0)
	r.pass()
	writeSegment(t, dir, s.Prefix(), 1)
	r.pass()
	writeSegment(t, dir, s.Prefix(), 2)
	r.pass()

	segs, _ := s.List()
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments retained, got %d", len(segs))
	}
	if segs[0].Ordinal != 1 || segs[1].Ordinal != 2 {
		t.Fatalf("unexpected retained ordinals: %+v", segs)
	}
}
