package selector

import (
	"testing"

	"github.com/john-rice/gitbutler/common/models"
)

func testBranches(t *testing.T) []*models.Branch {
	t.Helper()
	applied := &models.Branch{ID: models.NewBranchID(), Name: "applied one", Applied: true, Order: 1}
	parked := &models.Branch{ID: models.NewBranchID(), Name: "parked one", Applied: false, Order: 7}
	return []*models.Branch{applied, parked}
}

func TestSelectorMatches(t *testing.T) {
	s := NewSelector()
	branches := testBranches(t)

	ok, err := s.Matches("branch.applied", branches[0])
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if !ok {
		t.Errorf("applied branch should match branch.applied")
	}

	ok, err = s.Matches("branch.applied && branch.order < 5", branches[1])
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if ok {
		t.Errorf("unapplied branch should not match")
	}
}

func TestSelectorEmptyExpressionMatchesAll(t *testing.T) {
	s := NewSelector()
	for _, b := range testBranches(t) {
		ok, err := s.Matches("", b)
		if err != nil || !ok {
			t.Errorf("empty filter should match every branch, got ok=%v err=%v", ok, err)
		}
	}
}

func TestSelectorFilter(t *testing.T) {
	s := NewSelector()
	branches := testBranches(t)

	matched, err := s.Filter("branch.order >= 5", branches)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(matched) != 1 || matched[0].Order != 7 {
		t.Errorf("Filter: got %v", matched)
	}
}

func TestSelectorInvalidExpression(t *testing.T) {
	s := NewSelector()
	if _, err := s.Matches("branch.applied &&", testBranches(t)[0]); err == nil {
		t.Errorf("expected compile error")
	}
}

func TestSelectorNonBooleanExpression(t *testing.T) {
	s := NewSelector()
	if _, err := s.Matches("branch.name", testBranches(t)[0]); err == nil {
		t.Errorf("expected non-boolean result error")
	}
}

func TestSelectorCaching(t *testing.T) {
	s := NewSelector()
	b := testBranches(t)[0]

	for i := 0; i < 3; i++ {
		if _, err := s.Matches("branch.order == 1", b); err != nil {
			t.Fatalf("Matches failed: %v", err)
		}
	}
	if len(s.cache) != 1 {
		t.Errorf("expected 1 cached program, got %d", len(s.cache))
	}

	s.ClearCache()
	if len(s.cache) != 0 {
		t.Errorf("cache should be empty after ClearCache")
	}
}
