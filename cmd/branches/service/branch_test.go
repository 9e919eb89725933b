package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-rice/gitbutler/common/kv"
	"github.com/john-rice/gitbutler/common/logger"
	"github.com/john-rice/gitbutler/common/models"
	"github.com/john-rice/gitbutler/common/repository"
)

const (
	testTree = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testHead = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func testService() *BranchService {
	log := logger.New("error", "json")
	repo := repository.NewBranchRepository(kv.NewMemoryStore(), log)
	svc := NewBranchService(repo, log)

	clock := uint64(1700000000000)
	svc.now = func() uint64 {
		clock++
		return clock
	}
	return svc
}

func strptr(s string) *string { return &s }

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	// No optional fields supplied
	branch, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	assert.False(t, branch.ID.IsZero())
	assert.Equal(t, "Virtual branch 1", branch.Name)
	assert.Equal(t, "", branch.Notes)
	assert.False(t, branch.Applied)
	assert.Equal(t, 0, branch.Order)
	assert.Nil(t, branch.Upstream)
	assert.Nil(t, branch.UpstreamHead)
	assert.True(t, branch.Ownership.IsEmpty())
	assert.Equal(t, branch.CreatedTimestampMS, branch.UpdatedTimestampMS)

	// Round-trips through the store with the same defaults
	loaded, err := svc.Get(ctx, branch.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Applied)
	assert.Equal(t, 0, loaded.Order)
	assert.Equal(t, "", loaded.Notes)
	assert.Nil(t, loaded.Upstream)
}

func TestCreateAssignsNextOrder(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	first, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)
	second, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)
	assert.Equal(t, "Virtual branch 2", second.Name)
}

func TestCreateRejectsBadTree(t *testing.T) {
	svc := testService()
	_, err := svc.Create(context.Background(), models.BranchCreateRequest{Tree: "nope", Head: testHead})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUpdateSparse(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{
		Name: strptr("original"),
		Tree: testTree,
		Head: testHead,
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, models.BranchUpdateRequest{
		ID:   created.ID,
		Name: strptr("renamed"),
	})
	require.NoError(t, err)

	// Only name and the updated timestamp change
	assert.Equal(t, "renamed", updated.Name)
	assert.Greater(t, updated.UpdatedTimestampMS, created.UpdatedTimestampMS)
	assert.Equal(t, created.CreatedTimestampMS, updated.CreatedTimestampMS)
	assert.Equal(t, created.Notes, updated.Notes)
	assert.Equal(t, created.Applied, updated.Applied)
	assert.Equal(t, created.Order, updated.Order)
	assert.Equal(t, created.Tree, updated.Tree)
	assert.Equal(t, created.Head, updated.Head)
	assert.True(t, created.Ownership.Equal(updated.Ownership))
	assert.Nil(t, updated.Upstream)
}

func TestUpdateQualifiesUpstream(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, models.BranchUpdateRequest{
		ID:       created.ID,
		Upstream: strptr("feature/login"),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Upstream)
	assert.Equal(t, "refs/remotes/origin/feature/login", updated.Upstream.String())
}

func TestUpdateRejectsEmptyUpstreamShortName(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	_, err = svc.Update(ctx, models.BranchUpdateRequest{
		ID:       created.ID,
		Upstream: strptr(""),
	})
	require.Error(t, err)

	var fieldErr *repository.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "meta/upstream", fieldErr.Key)
}

func TestUpdateUnknownBranch(t *testing.T) {
	svc := testService()
	_, err := svc.Update(context.Background(), models.BranchUpdateRequest{
		ID:   models.NewBranchID(),
		Name: strptr("x"),
	})
	assert.ErrorIs(t, err, repository.ErrBranchNotFound)
}

func TestUpdateOwnershipStealsClaims(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	holderOwnership, err := models.ParseOwnership("src/main.go:1-5\nsrc/util.go:10-20")
	require.NoError(t, err)

	holder, err := svc.Create(ctx, models.BranchCreateRequest{
		Ownership: &holderOwnership,
		Tree:      testTree,
		Head:      testHead,
	})
	require.NoError(t, err)

	claimer, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	claim, err := models.ParseOwnership("src/main.go:1-5")
	require.NoError(t, err)

	_, err = svc.Update(ctx, models.BranchUpdateRequest{ID: claimer.ID, Ownership: &claim})
	require.NoError(t, err)

	// The identical claim moved; the holder keeps its other file
	reloaded, err := svc.Get(ctx, holder.ID)
	require.NoError(t, err)
	remaining, _ := models.ParseOwnership("src/util.go:10-20")
	assert.True(t, reloaded.Ownership.Equal(remaining),
		"holder ownership: %q", reloaded.Ownership.String())
}

func TestMergePatch(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	patched, err := svc.MergePatch(ctx, created.ID, []byte(`{"name":"patched","notes":"via merge patch"}`))
	require.NoError(t, err)

	assert.Equal(t, "patched", patched.Name)
	assert.Equal(t, "via merge patch", patched.Notes)
	assert.Equal(t, created.Order, patched.Order)
}

func TestMergePatchCannotRetarget(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)
	other, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	patched, err := svc.MergePatch(ctx, created.ID,
		[]byte(`{"id":"`+other.ID.String()+`","name":"hijack"}`))
	require.NoError(t, err)
	assert.Equal(t, created.ID, patched.ID)

	untouched, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hijack", untouched.Name)
}

func TestMergePatchInvalidJSON(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	_, err = svc.MergePatch(ctx, created.ID, []byte(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSetApplied(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)
	require.False(t, created.Applied)

	applied, err := svc.SetApplied(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, applied.Applied)

	reloaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Applied)
}

func TestListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
		require.NoError(t, err)
	}

	branches, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, branches, 3)
	for i := 1; i < len(branches); i++ {
		assert.LessOrEqual(t, branches[i-1].Order, branches[i].Order)
	}

	filtered, err := svc.List(ctx, "branch.order > 0")
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	_, err = svc.List(ctx, "branch.order >")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	created, err := svc.Create(ctx, models.BranchCreateRequest{Tree: testTree, Head: testHead})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrBranchNotFound)

	err = svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrBranchNotFound)
}
