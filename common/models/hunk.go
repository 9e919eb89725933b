package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange indicates a hunk whose end line precedes its start line.
var ErrInvalidRange = errors.New("invalid hunk range")

// Hunk is one contiguous line range within a file, the atomic unit of
// ownership. The range is inclusive on both ends. Hash is an optional
// content fingerprint of the lines the range covered when it was claimed.
// A Hunk is immutable once constructed; a changed range is a new Hunk.
type Hunk struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Hash  string `json:"hash,omitempty"`
}

// NewHunk constructs a hunk, rejecting ranges with End < Start
func NewHunk(start, end uint32, hash string) (Hunk, error) {
	if end < start {
		return Hunk{}, fmt.Errorf("%w: %d-%d", ErrInvalidRange, start, end)
	}
	return Hunk{Start: start, End: end, Hash: hash}, nil
}

// ParseHunk parses the textual form "start-end" or "start-end-hash"
func ParseHunk(s string) (Hunk, error) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) < 2 {
		return Hunk{}, fmt.Errorf("invalid hunk %q: expected start-end", s)
	}

	start, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Hunk{}, fmt.Errorf("invalid hunk %q: bad start line: %w", s, err)
	}
	end, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Hunk{}, fmt.Errorf("invalid hunk %q: bad end line: %w", s, err)
	}

	var hash string
	if len(parts) == 3 {
		hash = parts[2]
	}

	return NewHunk(uint32(start), uint32(end), hash)
}

func (h Hunk) String() string {
	if h.Hash == "" {
		return fmt.Sprintf("%d-%d", h.Start, h.End)
	}
	return fmt.Sprintf("%d-%d-%s", h.Start, h.End, h.Hash)
}

// Intersects reports whether two hunks share at least one line
func (h Hunk) Intersects(other Hunk) bool {
	return h.Start <= other.End && other.Start <= h.End
}

// SameRange reports whether two hunks cover the same lines, ignoring hashes
func (h Hunk) SameRange(other Hunk) bool {
	return h.Start == other.Start && h.End == other.End
}
