/*
Package randx generates identifiers and random values backed by crypto/rand.

Entity ids are canonical UUID strings. Their fixed 36-character shape is what lets
the routing layer tell a group id apart from a pairwise (two-id) linkman id.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// IDLength is the length of a canonical id string.
const IDLength = 36

// AvatarCount is the number of stock avatars served under /avatar.
const AvatarCount = 15

// NewID returns a new random id.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether s is a canonical lower-case id as produced by NewID.
func IsValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	parsed, err := uuid.Parse(s)
	return err == nil && parsed.String() == s
}

// Intn returns a uniform random integer in [0, n). It panics if n <= 0.
func Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("randx: invalid bound %d", n))
	}
	num, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("randx: crypto source failed: %v", err))
	}
	return int(num.Int64())
}

// Avatar picks one of the stock avatar paths.
func Avatar() string {
	return fmt.Sprintf("/avatar/%d.jpg", Intn(AvatarCount))
}
