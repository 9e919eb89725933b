package models

import (
	"strings"
)

// OwnershipParseError reports a fragment of ownership text that could not
// be decomposed into a file/hunk entry.
type OwnershipParseError struct {
	Fragment string
	Err      error
}

func (e *OwnershipParseError) Error() string {
	return "invalid ownership fragment " + e.Fragment + ": " + e.Err.Error()
}

func (e *OwnershipParseError) Unwrap() error {
	return e.Err
}

// Ownership is the full set of file regions one branch claims: at most one
// FileOwnership per path. The whole value round-trips through a single
// textual form, one file per line.
type Ownership struct {
	Files []FileOwnership
}

// ParseOwnership parses the textual form. Empty text yields an empty
// value. Lines with the same path are merged.
func ParseOwnership(s string) (Ownership, error) {
	var o Ownership
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			continue
		}
		fo, err := ParseFileOwnership(line)
		if err != nil {
			return Ownership{}, &OwnershipParseError{Fragment: line, Err: err}
		}
		o.Put(fo)
	}
	return o, nil
}

func (o Ownership) String() string {
	lines := make([]string, len(o.Files))
	for i, fo := range o.Files {
		lines[i] = fo.String()
	}
	return strings.Join(lines, "\n")
}

// MarshalText implements encoding.TextMarshaler
func (o Ownership) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Ownership) UnmarshalText(text []byte) error {
	parsed, err := ParseOwnership(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Put merges a file's claims into the ownership. An existing entry for the
// same path absorbs the new hunks one by one, so overlap resolution follows
// FileOwnership.Add.
func (o *Ownership) Put(fo FileOwnership) {
	if fo.IsEmpty() {
		return
	}
	for i := range o.Files {
		if o.Files[i].Path == fo.Path {
			for _, h := range fo.Hunks {
				o.Files[i].Add(h)
			}
			return
		}
	}
	o.Files = append(o.Files, fo)
}

// Remove releases one hunk claim on a path. The file entry is dropped once
// its last hunk is released.
func (o *Ownership) Remove(path string, hunk Hunk) bool {
	for i := range o.Files {
		if o.Files[i].Path != path {
			continue
		}
		if !o.Files[i].Remove(hunk) {
			return false
		}
		if o.Files[i].IsEmpty() {
			o.Files = append(o.Files[:i], o.Files[i+1:]...)
		}
		return true
	}
	return false
}

// Take removes and returns the claims for a path. When the path is not
// claimed, an empty FileOwnership for it is returned, so callers can move
// claims between branches without checking presence first.
func (o *Ownership) Take(path string) FileOwnership {
	for i := range o.Files {
		if o.Files[i].Path == path {
			taken := o.Files[i]
			o.Files = append(o.Files[:i], o.Files[i+1:]...)
			return taken
		}
	}
	return FileOwnership{Path: path}
}

// Get returns the claims for a path without removing them
func (o Ownership) Get(path string) (FileOwnership, bool) {
	for _, fo := range o.Files {
		if fo.Path == path {
			return fo, true
		}
	}
	return FileOwnership{}, false
}

// IsEmpty reports whether no file is claimed
func (o Ownership) IsEmpty() bool {
	return len(o.Files) == 0
}

// Equal compares path sets ignoring order, and per-path hunk sequences
// respecting order.
func (o Ownership) Equal(other Ownership) bool {
	if len(o.Files) != len(other.Files) {
		return false
	}
	for _, fo := range o.Files {
		match, ok := other.Get(fo.Path)
		if !ok || !fo.Equal(match) {
			return false
		}
	}
	return true
}
