// Package repository maps virtual branch records onto the key/value store.
// Loading applies a per-field policy: some keys fail hard when absent or
// malformed, others default silently, and every failure is wrapped with
// the key name that caused it.
package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/john-rice/gitbutler/common/git"
	"github.com/john-rice/gitbutler/common/kv"
	"github.com/john-rice/gitbutler/common/logger"
	"github.com/john-rice/gitbutler/common/models"
)

// ErrBranchNotFound indicates that no record exists for a branch id.
var ErrBranchNotFound = errors.New("branch not found")

// FieldError wraps a field-level load failure with the originating store
// key, so a caller can always tell which stored value was unreadable.
// Unwraps to kv.ErrNotFound when the key was absent.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string {
	return e.Key + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Record keys. Each branch record is scoped under its id; these are the
// keys within one record.
const (
	keyID           = "id"
	keyName         = "meta/name"
	keyNotes        = "meta/notes"
	keyApplied      = "meta/applied"
	keyOrder        = "meta/order"
	keyUpstream     = "meta/upstream"
	keyUpstreamHead = "meta/upstream_head"
	keyTree         = "meta/tree"
	keyHead         = "meta/head"
	keyCreated      = "meta/created_timestamp_ms"
	keyUpdated      = "meta/updated_timestamp_ms"
	keyOwnership    = "meta/ownership"
)

// LoadBranch reconstructs a branch from one record's reader.
//
// Field policy:
//   - id, meta/name, meta/tree, meta/head, both timestamps and
//     meta/ownership are mandatory: absence or malformed content fails.
//   - meta/notes and meta/order default when absent but fail when present
//     and malformed.
//   - meta/applied degrades to false on any read failure.
//   - meta/upstream and meta/upstream_head are tri-state: absent or
//     non-text content means unset, but text that fails semantic parsing
//     fails the load. An empty meta/upstream is unset, not an error.
func LoadBranch(rd kv.Reader) (*models.Branch, error) {
	idText, err := readText(rd, keyID)
	if err != nil {
		return nil, err
	}
	id, err := models.ParseBranchID(idText)
	if err != nil {
		return nil, &FieldError{Key: keyID, Err: err}
	}

	name, err := readText(rd, keyName)
	if err != nil {
		return nil, err
	}

	notes, err := readTextDefault(rd, keyNotes, "")
	if err != nil {
		return nil, err
	}

	applied := readBoolLenient(rd, keyApplied)

	order, err := readUintDefault(rd, keyOrder, 0)
	if err != nil {
		return nil, err
	}
	if order > uint64(math.MaxInt) {
		return nil, &FieldError{Key: keyOrder, Err: fmt.Errorf("order %d does not fit in int", order)}
	}

	upstreamHead, err := readOptionalOid(rd, keyUpstreamHead)
	if err != nil {
		return nil, err
	}

	upstream, err := readOptionalUpstream(rd, keyUpstream)
	if err != nil {
		return nil, err
	}

	tree, err := readOid(rd, keyTree)
	if err != nil {
		return nil, err
	}

	head, err := readOid(rd, keyHead)
	if err != nil {
		return nil, err
	}

	created, err := readUint(rd, keyCreated)
	if err != nil {
		return nil, err
	}

	updated, err := readUint(rd, keyUpdated)
	if err != nil {
		return nil, err
	}

	ownershipText, err := readText(rd, keyOwnership)
	if err != nil {
		return nil, err
	}
	ownership, err := models.ParseOwnership(ownershipText)
	if err != nil {
		return nil, &FieldError{Key: keyOwnership, Err: err}
	}

	return &models.Branch{
		ID:                 id,
		Name:               name,
		Notes:              notes,
		Applied:            applied,
		Upstream:           upstream,
		UpstreamHead:       upstreamHead,
		CreatedTimestampMS: created,
		UpdatedTimestampMS: updated,
		Tree:               tree,
		Head:               head,
		Ownership:          ownership,
		Order:              int(order),
	}, nil
}

// StoreBranch persists every field of a branch under its canonical key in
// one atomic batch. The branch itself is never mutated.
func StoreBranch(ctx context.Context, w kv.Writer, b *models.Branch) error {
	if b.Order < 0 {
		return &FieldError{Key: keyOrder, Err: fmt.Errorf("negative order %d", b.Order)}
	}

	fields := map[string]kv.Content{
		keyID:        kv.UTF8(b.ID.String()),
		keyName:      kv.UTF8(b.Name),
		keyNotes:     kv.UTF8(b.Notes),
		keyApplied:   kv.UTF8(strconv.FormatBool(b.Applied)),
		keyOrder:     kv.UTF8(strconv.Itoa(b.Order)),
		keyTree:      kv.UTF8(b.Tree.String()),
		keyHead:      kv.UTF8(b.Head.String()),
		keyCreated:   kv.UTF8(strconv.FormatUint(b.CreatedTimestampMS, 10)),
		keyUpdated:   kv.UTF8(strconv.FormatUint(b.UpdatedTimestampMS, 10)),
		keyOwnership: kv.UTF8(b.Ownership.String()),
	}

	// Unset upstream is stored as the empty-string sentinel; an unset
	// upstream head is simply omitted.
	if b.Upstream != nil {
		fields[keyUpstream] = kv.UTF8(b.Upstream.String())
	} else {
		fields[keyUpstream] = kv.UTF8("")
	}
	if b.UpstreamHead != nil {
		fields[keyUpstreamHead] = kv.UTF8(b.UpstreamHead.String())
	}

	if err := w.Write(ctx, fields); err != nil {
		return fmt.Errorf("failed to store branch %s: %w", b.ID, err)
	}
	return nil
}

// readText reads a mandatory UTF-8 field
func readText(rd kv.Reader, key string) (string, error) {
	content, err := rd.Read(key)
	if err != nil {
		return "", &FieldError{Key: key, Err: err}
	}
	text, err := content.Text()
	if err != nil {
		return "", &FieldError{Key: key, Err: err}
	}
	return text, nil
}

// readTextDefault reads an optional UTF-8 field, defaulting on absence
// only; malformed present content still fails.
func readTextDefault(rd kv.Reader, key, def string) (string, error) {
	content, err := rd.Read(key)
	if errors.Is(err, kv.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return "", &FieldError{Key: key, Err: err}
	}
	text, err := content.Text()
	if err != nil {
		return "", &FieldError{Key: key, Err: err}
	}
	return text, nil
}

// readUint reads a mandatory unsigned decimal field
func readUint(rd kv.Reader, key string) (uint64, error) {
	content, err := rd.Read(key)
	if err != nil {
		return 0, &FieldError{Key: key, Err: err}
	}
	n, err := content.Uint()
	if err != nil {
		return 0, &FieldError{Key: key, Err: err}
	}
	return n, nil
}

// readUintDefault reads an optional unsigned decimal field, defaulting on
// absence only.
func readUintDefault(rd kv.Reader, key string, def uint64) (uint64, error) {
	content, err := rd.Read(key)
	if errors.Is(err, kv.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, &FieldError{Key: key, Err: err}
	}
	n, err := content.Uint()
	if err != nil {
		return 0, &FieldError{Key: key, Err: err}
	}
	return n, nil
}

// readBoolLenient reads a boolean field that degrades to false on any
// failure, absence and malformed content alike. Losing this flag is
// low-risk, so leniency is deliberate.
func readBoolLenient(rd kv.Reader, key string) bool {
	content, err := rd.Read(key)
	if err != nil {
		return false
	}
	b, err := content.Bool()
	if err != nil {
		return false
	}
	return b
}

// readOid reads a mandatory object id field
func readOid(rd kv.Reader, key string) (git.Oid, error) {
	text, err := readText(rd, key)
	if err != nil {
		return "", err
	}
	oid, err := git.ParseOid(text)
	if err != nil {
		return "", &FieldError{Key: key, Err: err}
	}
	return oid, nil
}

// readOptionalOid reads a tri-state object id field: absence or non-text
// content is unset, text that is not a valid id fails.
func readOptionalOid(rd kv.Reader, key string) (*git.Oid, error) {
	content, err := rd.Read(key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &FieldError{Key: key, Err: err}
	}
	text, err := content.Text()
	if err != nil {
		return nil, nil
	}
	oid, err := git.ParseOid(text)
	if err != nil {
		return nil, &FieldError{Key: key, Err: err}
	}
	return &oid, nil
}

// readOptionalUpstream reads the tri-state remote refname field. The empty
// string is the unset sentinel, not a parse error.
func readOptionalUpstream(rd kv.Reader, key string) (*git.RemoteRefname, error) {
	content, err := rd.Read(key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &FieldError{Key: key, Err: err}
	}
	text, err := content.Text()
	if err != nil {
		return nil, nil
	}
	if text == "" {
		return nil, nil
	}
	ref, err := git.ParseRemoteRefname(text)
	if err != nil {
		return nil, &FieldError{Key: key, Err: err}
	}
	return &ref, nil
}

// BranchRepository handles store operations for branch records
type BranchRepository struct {
	store kv.Store
	log   *logger.Logger
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(store kv.Store, log *logger.Logger) *BranchRepository {
	return &BranchRepository{store: store, log: log}
}

// Get loads one branch by id
func (r *BranchRepository) Get(ctx context.Context, id models.BranchID) (*models.Branch, error) {
	rd, err := r.store.Reader(ctx, id.String())
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open branch record %s: %w", id, err)
	}

	branch, err := LoadBranch(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to load branch %s: %w", id, err)
	}
	return branch, nil
}

// List loads every stored branch
func (r *BranchRepository) List(ctx context.Context) ([]*models.Branch, error) {
	roots, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list branch records: %w", err)
	}

	branches := make([]*models.Branch, 0, len(roots))
	for _, root := range roots {
		rd, err := r.store.Reader(ctx, root)
		if errors.Is(err, kv.ErrNotFound) {
			// Deleted between list and read
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open branch record %s: %w", root, err)
		}
		branch, err := LoadBranch(rd)
		if err != nil {
			return nil, fmt.Errorf("failed to load branch %s: %w", root, err)
		}
		branches = append(branches, branch)
	}
	return branches, nil
}

// Save persists a branch under its id
func (r *BranchRepository) Save(ctx context.Context, b *models.Branch) error {
	if err := StoreBranch(ctx, r.store.Writer(b.ID.String()), b); err != nil {
		return err
	}
	r.log.Debug("branch saved", "branch_id", b.ID.String())
	return nil
}

// Delete removes a branch record
func (r *BranchRepository) Delete(ctx context.Context, id models.BranchID) error {
	if err := r.store.Delete(ctx, id.String()); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", id, err)
	}
	r.log.Debug("branch deleted", "branch_id", id.String())
	return nil
}
