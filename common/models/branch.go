package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/john-rice/gitbutler/common/git"
)

// ErrMalformedBranchID indicates branch id text that fails its format check.
var ErrMalformedBranchID = errors.New("malformed branch id")

// BranchID uniquely identifies a virtual branch record.
type BranchID uuid.UUID

// NewBranchID generates a fresh branch id
func NewBranchID() BranchID {
	return BranchID(uuid.New())
}

// ParseBranchID parses the canonical textual form of a branch id
func ParseBranchID(s string) (BranchID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BranchID{}, fmt.Errorf("%w: %q: %v", ErrMalformedBranchID, s, err)
	}
	return BranchID(id), nil
}

func (id BranchID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is unset
func (id BranchID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler
func (id BranchID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *BranchID) UnmarshalText(text []byte) error {
	parsed, err := ParseBranchID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Branch is the virtual branch record stored in the key/value store. It is
// more or less equivalent to a git branch reference, but it is not stored
// or accessible from the git repository itself: it only tracks which file
// regions the user has assigned to this unit of work.
type Branch struct {
	ID      BranchID `json:"id"`
	Name    string   `json:"name"`
	Notes   string   `json:"notes"`
	Applied bool     `json:"applied"`

	// Upstream is the remote reference this branch tracks, once one exists
	Upstream *git.RemoteRefname `json:"upstream,omitempty"`
	// UpstreamHead is the last commit pushed to the upstream branch
	UpstreamHead *git.Oid `json:"upstream_head,omitempty"`

	CreatedTimestampMS uint64 `json:"created_timestamp_ms"`
	UpdatedTimestampMS uint64 `json:"updated_timestamp_ms"`

	// Tree is the last committed tree, or the merge base tree if the branch
	// is new; deltas are computed against it
	Tree git.Oid `json:"tree"`
	// Head is the id of the last virtual commit on this branch
	Head git.Oid `json:"head"`

	Ownership Ownership `json:"ownership"`

	// Order is the number by which the UI sorts branches
	Order int `json:"order"`
}

// Refname derives the synthetic reference name for this branch. It does
// not correspond to any real git reference.
func (b *Branch) Refname() git.VirtualRefname {
	return git.VirtualRefname{Branch: git.NormalizeBranchName(b.Name)}
}

// BranchCreateRequest specifies a new branch. Identity, timestamps and
// unset fields are filled in with defaults at creation time. Tree and Head
// must be supplied by the caller, which is the only party that can resolve
// them against the repository.
type BranchCreateRequest struct {
	Name      *string    `json:"name,omitempty"`
	Ownership *Ownership `json:"ownership,omitempty"`
	Order     *int       `json:"order,omitempty"`
	Tree      string     `json:"tree"`
	Head      string     `json:"head"`
}

// BranchUpdateRequest is a sparse patch: nil fields are left unchanged.
// Upstream is a bare branch short-name (branchA, not
// refs/remotes/origin/branchA); the update path qualifies it before it is
// stored.
type BranchUpdateRequest struct {
	ID        BranchID   `json:"id"`
	Name      *string    `json:"name,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Ownership *Ownership `json:"ownership,omitempty"`
	Order     *int       `json:"order,omitempty"`
	Upstream  *string    `json:"upstream,omitempty"`
}
