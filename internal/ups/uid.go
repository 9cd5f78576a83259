package ups

import (
	"math/big"

	"github.com/google/uuid"
)

// NewUID generates a UID under the 2.25 UUID-derived arc, the decimal form
// of a random UUID. The result is at most 44 characters, well inside the
// 64-character UID limit.
func NewUID() string {
	u := uuid.New()
	var n big.Int
	n.SetBytes(u[:])
	return "2.25." + n.String()
}

// ValidUID reports whether s is a syntactically acceptable UID: nonempty,
// at most 64 characters, digits and dots only, no empty components.
func ValidUID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	prevDot := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if prevDot {
				return false
			}
			prevDot = true
		case c >= '0' && c <= '9':
			prevDot = false
		default:
			return false
		}
	}
	return !prevDot
}
