package store

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind discriminates the two resolvable commit reference forms.
type RefKind int

const (
	// RefExact is a full 40-character hexadecimal commit hash. It
	// resolves to itself without any history lookup.
	RefExact RefKind = iota

	// RefHeadRelative addresses the commit n generations behind the tip
	// of the primary branch.
	RefHeadRelative
)

// Ref is a parsed commit identifier.
type Ref struct {
	Kind       RefKind
	Hash       string
	Generation int
}

// ParseRef parses a commit identifier string.
//
// Accepted forms:
//
//	<40 hex chars>  exact hash
//	HEAD            generation 0 (newest commit)
//	HEAD~           generation 1
//	HEAD~<n>        generation n
//
// The HEAD keyword is case-insensitive. Anything else yields ErrBadRef.
func ParseRef(s string) (Ref, error) {
	if isHexHash(s) {
		return Ref{Kind: RefExact, Hash: strings.ToLower(s)}, nil
	}

	upper := strings.ToUpper(s)
	if upper == "HEAD" {
		return Ref{Kind: RefHeadRelative, Generation: 0}, nil
	}
	if rest, ok := strings.CutPrefix(upper, "HEAD~"); ok {
		if rest == "" {
			return Ref{Kind: RefHeadRelative, Generation: 1}, nil
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return Ref{}, fmt.Errorf("%w: %q", ErrBadRef, s)
		}
		return Ref{Kind: RefHeadRelative, Generation: n}, nil
	}

	return Ref{}, fmt.Errorf("%w: %q", ErrBadRef, s)
}

// Resolve pins the reference to a concrete commit hash. Exact hashes
// resolve without consulting history. Head-relative references select
// index Generation of the newest-first history and return ErrNotFound
// when the generation falls outside it.
func (r Ref) Resolve(history []CommitRecord) (string, error) {
	if r.Kind == RefExact {
		return r.Hash, nil
	}
	if r.Generation >= len(history) {
		return "", fmt.Errorf("HEAD~%d: %w", r.Generation, ErrNotFound)
	}
	return history[r.Generation].SHA, nil
}

// String renders the reference back into identifier form.
func (r Ref) String() string {
	if r.Kind == RefExact {
		return r.Hash
	}
	if r.Generation == 0 {
		return "HEAD"
	}
	return fmt.Sprintf("HEAD~%d", r.Generation)
}

// isHexHash reports whether s is exactly 40 hexadecimal characters.
func isHexHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
