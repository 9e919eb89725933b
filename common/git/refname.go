package git

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRefname indicates that a string is not a valid reference name.
var ErrInvalidRefname = errors.New("invalid reference name")

const remoteRefPrefix = "refs/remotes/"

// RemoteRefname names a remote-tracking branch, e.g. refs/remotes/origin/main.
type RemoteRefname struct {
	Remote string
	Branch string
}

// ParseRemoteRefname parses a fully qualified remote reference name
func ParseRemoteRefname(s string) (RemoteRefname, error) {
	rest, ok := strings.CutPrefix(s, remoteRefPrefix)
	if !ok {
		return RemoteRefname{}, fmt.Errorf("%w: %q does not start with %s", ErrInvalidRefname, s, remoteRefPrefix)
	}

	remote, branch, ok := strings.Cut(rest, "/")
	if !ok || remote == "" || branch == "" {
		return RemoteRefname{}, fmt.Errorf("%w: %q is missing remote or branch", ErrInvalidRefname, s)
	}

	return RemoteRefname{Remote: remote, Branch: branch}, nil
}

func (r RemoteRefname) String() string {
	return remoteRefPrefix + r.Remote + "/" + r.Branch
}

// MarshalText implements encoding.TextMarshaler
func (r RemoteRefname) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *RemoteRefname) UnmarshalText(text []byte) error {
	parsed, err := ParseRemoteRefname(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// VirtualRefname names a virtual branch. It never corresponds to a real
// reference in the repository and is only used for display and addressing.
type VirtualRefname struct {
	Branch string
}

func (r VirtualRefname) String() string {
	return "refs/gitbutler/" + r.Branch
}

// NormalizeBranchName converts a user-facing branch name into a form usable
// inside a reference name: spaces become dashes and any character outside
// [A-Za-z0-9-_/] is dropped.
func NormalizeBranchName(name string) string {
	var b strings.Builder
	for _, c := range strings.TrimSpace(name) {
		switch {
		case c == ' ':
			b.WriteByte('-')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '/':
			b.WriteRune(c)
		}
	}
	return b.String()
}
