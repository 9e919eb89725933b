package models

import (
	"fmt"
	"sort"
	"strings"
)

// FileOwnership is the ordered set of hunks one branch claims within a
// single file. Hunks are kept sorted ascending by start line and never
// overlap each other.
type FileOwnership struct {
	Path  string `json:"path"`
	Hunks []Hunk `json:"hunks"`
}

// ParseFileOwnership parses the textual form "path:1-10,15-20-hash"
func ParseFileOwnership(s string) (FileOwnership, error) {
	path, ranges, ok := strings.Cut(s, ":")
	if !ok {
		return FileOwnership{}, fmt.Errorf("invalid file ownership %q: missing ':'", s)
	}
	if path == "" {
		return FileOwnership{}, fmt.Errorf("invalid file ownership %q: empty path", s)
	}

	fo := FileOwnership{Path: path}
	for _, fragment := range strings.Split(ranges, ",") {
		if fragment == "" {
			continue
		}
		hunk, err := ParseHunk(fragment)
		if err != nil {
			return FileOwnership{}, fmt.Errorf("invalid file ownership %q: %w", s, err)
		}
		fo.Add(hunk)
	}

	if len(fo.Hunks) == 0 {
		return FileOwnership{}, fmt.Errorf("invalid file ownership %q: no hunks", s)
	}

	return fo, nil
}

func (fo FileOwnership) String() string {
	hunks := make([]string, len(fo.Hunks))
	for i, h := range fo.Hunks {
		hunks[i] = h.String()
	}
	return fo.Path + ":" + strings.Join(hunks, ",")
}

// Add inserts a hunk, keeping hunks sorted by start line. Existing hunks
// that intersect the new one are removed first, so the newest claim wins
// over any overlapping region it touches.
func (fo *FileOwnership) Add(hunk Hunk) {
	kept := fo.Hunks[:0]
	for _, h := range fo.Hunks {
		if !h.Intersects(hunk) {
			kept = append(kept, h)
		}
	}
	fo.Hunks = append(kept, hunk)
	sort.Slice(fo.Hunks, func(i, j int) bool {
		return fo.Hunks[i].Start < fo.Hunks[j].Start
	})
}

// Remove drops the hunk covering the same range, if present. Hashes are
// ignored when matching so a claim can be released by range alone.
func (fo *FileOwnership) Remove(hunk Hunk) bool {
	for i, h := range fo.Hunks {
		if h.SameRange(hunk) {
			fo.Hunks = append(fo.Hunks[:i], fo.Hunks[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether a hunk with the same range is claimed
func (fo FileOwnership) Contains(hunk Hunk) bool {
	for _, h := range fo.Hunks {
		if h.SameRange(hunk) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no hunks are claimed
func (fo FileOwnership) IsEmpty() bool {
	return len(fo.Hunks) == 0
}

// Equal compares path and the exact hunk sequence
func (fo FileOwnership) Equal(other FileOwnership) bool {
	if fo.Path != other.Path || len(fo.Hunks) != len(other.Hunks) {
		return false
	}
	for i, h := range fo.Hunks {
		if h != other.Hunks[i] {
			return false
		}
	}
	return true
}
