package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBranchIDRoundTrip(t *testing.T) {
	id := NewBranchID()
	parsed, err := ParseBranchID(id.String())
	if err != nil {
		t.Fatalf("ParseBranchID failed: %v", err)
	}
	if parsed != id {
		t.Errorf("round-trip mismatch: %s vs %s", parsed, id)
	}
	if id.IsZero() {
		t.Errorf("fresh id should not be zero")
	}
}

func TestBranchIDMalformed(t *testing.T) {
	if _, err := ParseBranchID("not-a-uuid"); !errors.Is(err, ErrMalformedBranchID) {
		t.Errorf("expected ErrMalformedBranchID, got %v", err)
	}
}

func TestBranchIDUnique(t *testing.T) {
	seen := make(map[BranchID]bool)
	for i := 0; i < 100; i++ {
		id := NewBranchID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestBranchRefname(t *testing.T) {
	b := &Branch{ID: NewBranchID(), Name: "My Feature"}
	if got := b.Refname().String(); got != "refs/gitbutler/My-Feature" {
		t.Errorf("Refname: got %q", got)
	}

	// Deterministic: same input, same refname
	if b.Refname() != b.Refname() {
		t.Errorf("Refname should be deterministic")
	}
}

func TestBranchUpdateRequestSparseJSON(t *testing.T) {
	id := NewBranchID()
	body := []byte(`{"id":"` + id.String() + `","name":"renamed"}`)

	var req BranchUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if req.ID != id {
		t.Errorf("ID: got %s", req.ID)
	}
	if req.Name == nil || *req.Name != "renamed" {
		t.Errorf("Name: got %v", req.Name)
	}
	if req.Notes != nil || req.Ownership != nil || req.Order != nil || req.Upstream != nil {
		t.Errorf("absent fields must stay nil: %+v", req)
	}
}

func TestOwnershipJSONAsText(t *testing.T) {
	o, err := ParseOwnership("a.go:1-5,8-10")
	if err != nil {
		t.Fatalf("ParseOwnership failed: %v", err)
	}

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"a.go:1-5,8-10"` {
		t.Errorf("ownership should marshal to its textual form, got %s", data)
	}

	var back Ownership
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !o.Equal(back) {
		t.Errorf("JSON round-trip mismatch")
	}
}
