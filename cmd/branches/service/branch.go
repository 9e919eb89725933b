package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/john-rice/gitbutler/cmd/branches/selector"
	"github.com/john-rice/gitbutler/common/git"
	"github.com/john-rice/gitbutler/common/logger"
	"github.com/john-rice/gitbutler/common/models"
	"github.com/john-rice/gitbutler/common/repository"
)

// ErrInvalidRequest indicates a create or update request that cannot be
// applied as given.
var ErrInvalidRequest = errors.New("invalid request")

// BranchService owns the lifecycle of virtual branch records
type BranchService struct {
	repo     *repository.BranchRepository
	selector *selector.Selector
	log      *logger.Logger

	// now returns wall-clock milliseconds; swappable in tests
	now func() uint64
}

// NewBranchService creates a new branch service
func NewBranchService(repo *repository.BranchRepository, log *logger.Logger) *BranchService {
	return &BranchService{
		repo:     repo,
		selector: selector.NewSelector(),
		log:      log,
		now: func() uint64 {
			return uint64(time.Now().UnixMilli())
		},
	}
}

// Create builds a branch from a create request, filling defaults: fresh
// id, generated name, empty ownership, next display order, not applied,
// both timestamps set to now.
func (s *BranchService) Create(ctx context.Context, req models.BranchCreateRequest) (*models.Branch, error) {
	tree, err := git.ParseOid(req.Tree)
	if err != nil {
		return nil, fmt.Errorf("%w: tree: %v", ErrInvalidRequest, err)
	}
	head, err := git.ParseOid(req.Head)
	if err != nil {
		return nil, fmt.Errorf("%w: head: %v", ErrInvalidRequest, err)
	}

	order := 0
	if req.Order != nil {
		if *req.Order < 0 {
			return nil, fmt.Errorf("%w: negative order %d", ErrInvalidRequest, *req.Order)
		}
		order = *req.Order
	} else {
		order, err = s.nextOrder(ctx)
		if err != nil {
			return nil, err
		}
	}

	name := fmt.Sprintf("Virtual branch %d", order+1)
	if req.Name != nil {
		name = *req.Name
	}

	var ownership models.Ownership
	if req.Ownership != nil {
		ownership = *req.Ownership
	}

	now := s.now()
	branch := &models.Branch{
		ID:                 models.NewBranchID(),
		Name:               name,
		Applied:            false,
		CreatedTimestampMS: now,
		UpdatedTimestampMS: now,
		Tree:               tree,
		Head:               head,
		Ownership:          ownership,
		Order:              order,
	}

	if err := s.reclaimHunks(ctx, branch); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, branch); err != nil {
		return nil, err
	}

	s.log.Info("branch created", "branch_id", branch.ID.String(), "name", branch.Name)
	return branch, nil
}

// Get loads one branch
func (s *BranchService) Get(ctx context.Context, id models.BranchID) (*models.Branch, error) {
	return s.repo.Get(ctx, id)
}

// List returns stored branches sorted by display order, optionally
// narrowed by a CEL filter expression.
func (s *BranchService) List(ctx context.Context, filter string) ([]*models.Branch, error) {
	branches, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if filter != "" {
		branches, err = s.selector.Filter(filter, branches)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	sort.Slice(branches, func(i, j int) bool {
		if branches[i].Order != branches[j].Order {
			return branches[i].Order < branches[j].Order
		}
		return branches[i].CreatedTimestampMS < branches[j].CreatedTimestampMS
	})
	return branches, nil
}

// Update applies a sparse patch: nil fields are left unchanged, and
// updated_timestamp_ms is refreshed on every successful update. A bare
// upstream short-name is qualified against origin before being stored.
func (s *BranchService) Update(ctx context.Context, req models.BranchUpdateRequest) (*models.Branch, error) {
	if req.ID.IsZero() {
		return nil, fmt.Errorf("%w: missing branch id", ErrInvalidRequest)
	}

	branch, err := s.repo.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		branch.Name = *req.Name
	}
	if req.Notes != nil {
		branch.Notes = *req.Notes
	}
	if req.Order != nil {
		if *req.Order < 0 {
			return nil, fmt.Errorf("%w: negative order %d", ErrInvalidRequest, *req.Order)
		}
		branch.Order = *req.Order
	}
	if req.Upstream != nil {
		ref, err := git.ParseRemoteRefname("refs/remotes/origin/" + *req.Upstream)
		if err != nil {
			return nil, &repository.FieldError{Key: "meta/upstream", Err: err}
		}
		branch.Upstream = &ref
	}
	if req.Ownership != nil {
		branch.Ownership = *req.Ownership
		if err := s.reclaimHunks(ctx, branch); err != nil {
			return nil, err
		}
	}

	branch.UpdatedTimestampMS = s.now()
	if err := s.repo.Save(ctx, branch); err != nil {
		return nil, err
	}

	s.log.Info("branch updated", "branch_id", branch.ID.String())
	return branch, nil
}

// MergePatch applies an RFC 7386 JSON merge patch to an empty update
// request for the branch and routes the result through Update. The patch
// cannot retarget another branch.
func (s *BranchService) MergePatch(ctx context.Context, id models.BranchID, patch []byte) (*models.Branch, error) {
	baseline, err := json.Marshal(models.BranchUpdateRequest{ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode update baseline: %w", err)
	}

	merged, err := jsonpatch.MergePatch(baseline, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var req models.BranchUpdateRequest
	if err := json.Unmarshal(merged, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.ID = id

	return s.Update(ctx, req)
}

// SetApplied flips the stored applied flag. Only the record changes here;
// materializing the ownership into the working tree is the caller's
// concern.
func (s *BranchService) SetApplied(ctx context.Context, id models.BranchID, applied bool) (*models.Branch, error) {
	branch, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	branch.Applied = applied
	branch.UpdatedTimestampMS = s.now()
	if err := s.repo.Save(ctx, branch); err != nil {
		return nil, err
	}

	s.log.Info("branch applied flag set", "branch_id", id.String(), "applied", applied)
	return branch, nil
}

// Delete removes a branch record
func (s *BranchService) Delete(ctx context.Context, id models.BranchID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("branch deleted", "branch_id", id.String())
	return nil
}

// reclaimHunks keeps claims disjoint across branches sharing the working
// tree: every hunk the branch now claims is released from any other
// stored branch claiming the same range.
func (s *BranchService) reclaimHunks(ctx context.Context, branch *models.Branch) error {
	if branch.Ownership.IsEmpty() {
		return nil
	}

	others, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	for _, other := range others {
		if other.ID == branch.ID {
			continue
		}

		changed := false
		for _, fo := range branch.Ownership.Files {
			for _, hunk := range fo.Hunks {
				if other.Ownership.Remove(fo.Path, hunk) {
					changed = true
				}
			}
		}
		if !changed {
			continue
		}

		other.UpdatedTimestampMS = s.now()
		if err := s.repo.Save(ctx, other); err != nil {
			return err
		}
		s.log.Debug("claims moved between branches",
			"from", other.ID.String(), "to", branch.ID.String())
	}
	return nil
}

// nextOrder returns one past the highest order currently stored
func (s *BranchService) nextOrder(ctx context.Context) (int, error) {
	branches, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	next := 0
	for _, b := range branches {
		if b.Order >= next {
			next = b.Order + 1
		}
	}
	return next, nil
}
