package domain

import (
	"strings"

	dErrors "provchain/pkg/domain-errors"
)

// Principal is an opaque identity string for an account or participant,
// typically a hex address-like token. The system attaches no meaning to its
// contents beyond equality; there is no lifecycle of its own.
//
// Invariant: non-empty, printable, at most 256 bytes.
type Principal string

const maxPrincipalLen = 256

// ParsePrincipal constructs a Principal from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, too long, or
// contains whitespace or control characters.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal cannot be empty")
	}
	if len(s) > maxPrincipalLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be 256 characters or less")
	}
	for _, r := range s {
		if r <= ' ' || r == 0x7f {
			return "", dErrors.New(dErrors.CodeInvalidInput, "principal contains invalid characters")
		}
	}
	return Principal(s), nil
}

func (p Principal) String() string { return string(p) }

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool { return p == "" }
