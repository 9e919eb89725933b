package git

import (
	"errors"
	"testing"
)

func TestParseOid(t *testing.T) {
	valid := "0123456789abcdef0123456789abcdef01234567"
	oid, err := ParseOid(valid)
	if err != nil {
		t.Fatalf("ParseOid(%q) failed: %v", valid, err)
	}
	if oid.String() != valid {
		t.Errorf("Oid round-trip: got %q, want %q", oid.String(), valid)
	}

	for _, bad := range []string{
		"",
		"abc",
		"0123456789ABCDEF0123456789abcdef01234567", // uppercase
		"0123456789abcdef0123456789abcdef0123456z", // non-hex
		"0123456789abcdef0123456789abcdef012345678", // 41 chars
	} {
		if _, err := ParseOid(bad); !errors.Is(err, ErrInvalidOid) {
			t.Errorf("ParseOid(%q): expected ErrInvalidOid, got %v", bad, err)
		}
	}
}

func TestParseRemoteRefname(t *testing.T) {
	ref, err := ParseRemoteRefname("refs/remotes/origin/feature/login")
	if err != nil {
		t.Fatalf("ParseRemoteRefname failed: %v", err)
	}
	if ref.Remote != "origin" {
		t.Errorf("Remote: got %q, want origin", ref.Remote)
	}
	if ref.Branch != "feature/login" {
		t.Errorf("Branch: got %q, want feature/login", ref.Branch)
	}
	if ref.String() != "refs/remotes/origin/feature/login" {
		t.Errorf("String round-trip: got %q", ref.String())
	}

	for _, bad := range []string{"", "origin/main", "refs/heads/main", "refs/remotes/origin"} {
		if _, err := ParseRemoteRefname(bad); !errors.Is(err, ErrInvalidRefname) {
			t.Errorf("ParseRemoteRefname(%q): expected ErrInvalidRefname, got %v", bad, err)
		}
	}
}

func TestNormalizeBranchName(t *testing.T) {
	cases := map[string]string{
		"My Branch":        "My-Branch",
		"  padded  ":       "padded",
		"feature/login":    "feature/login",
		"weird!@#chars":    "weirdchars",
		"under_score-dash": "under_score-dash",
	}
	for in, want := range cases {
		if got := NormalizeBranchName(in); got != want {
			t.Errorf("NormalizeBranchName(%q): got %q, want %q", in, got, want)
		}
	}
}
