// Package segment manages the rolling set of encoded video files a Recorder
// session writes to disk: a Store owns the directory and naming scheme, and
// a Retention task prunes it in the background.
package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Segment is one encoded, on-disk video file produced by the encoder
// process. Ordinal is parsed out of the filename; it is read-only outside
// of the encoder that names the file.
type Segment struct {
	Path    string
	Name    string
	Ordinal int
}

// Store owns one session's segment directory and its session-unique naming
// prefix, so cohabiting sessions from crashed prior runs never collide on
// filenames.
type Store struct {
	dir    string
	prefix string
}

// New creates (or reuses) dir and derives a fresh session prefix from a
// random 128-bit id, matching the "random 128-bit id embedded in the
// filename base" requirement.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create segment dir: %w", err)
	}
	return &Store{
		dir:    dir,
		prefix: "seg_" + uuid.New().String(),
	}, nil
}

// Dir returns the segment directory.
func (s *Store) Dir() string { return s.dir }

// Prefix returns the session-unique filename base that every segment name
// of this session starts with.
func (s *Store) Prefix() string { return s.prefix }

// Pattern returns the ffmpeg segment-muxer output template, e.g.
// "seg_<uuid>_%06d.mkv", rooted at Dir().
func (s *Store) Pattern() string {
	return filepath.Join(s.dir, s.prefix+"_%06d.mkv")
}

// glob matches every segment file this session could have produced.
func (s *Store) glob() string {
	return filepath.Join(s.dir, s.prefix+"_*.mkv")
}

// List returns every segment currently on disk for this session, sorted by
// ordinal ascending. Monotonic naming means lexicographic sort is also
// chronological sort.
func (s *Store) List() ([]Segment, error) {
	matches, err := filepath.Glob(s.glob())
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	sort.Strings(matches)

	segs := make([]Segment, 0, len(matches))
	for _, path := range matches {
		name := filepath.Base(path)
		ordinal, ok := parseOrdinal(name, s.prefix)
		if !ok {
			continue
		}
		segs = append(segs, Segment{Path: path, Name: name, Ordinal: ordinal})
	}
	return segs, nil
}

// Erase deletes every segment file belonging to this session. Called on
// Recorder dispose.
func (s *Store) Erase() error {
	segs, err := s.List()
	if err != nil {
		return err
	}
	var firstErr error
	for _, seg := range segs {
		if err := os.Remove(seg.Path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func parseOrdinal(name, prefix string) (int, bool) {
	rest := strings.TrimPrefix(name, prefix+"_")
	rest = strings.TrimSuffix(rest, filepath.Ext(rest))
	if rest == name {
		return 0, false
	}
	n := 0
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
