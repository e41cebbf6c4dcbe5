/*
Package linkman resolves chat destinations.

A linkman is either a group, addressed by the group id itself, or a direct
conversation between two users, addressed by the concatenation of both user ids.
Both participants compute the same pairwise id because the two ids are always
joined in lexicographic order, and either side recovers the other id by removing
its own id from the concatenation.
*/
package linkman

import (
	"strings"

	"linkchat/internal/pkg/randx"
)

// IsGroupID reports whether id has the shape of a single entity id.
// Pairwise ids are twice as long and never match.
func IsGroupID(id string) bool {
	return randx.IsValidID(id)
}

// ComputePairwiseID returns the direct-conversation id of users a and b.
func ComputePairwiseID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + b
}

// DeriveCounterpart removes selfID from pairwiseID and returns the remaining user id.
// ok is false when pairwiseID does not contain selfID or the remainder is not an id.
func DeriveCounterpart(selfID, pairwiseID string) (otherID string, ok bool) {
	if selfID == "" || !strings.Contains(pairwiseID, selfID) {
		return "", false
	}

	otherID = strings.Replace(pairwiseID, selfID, "", 1)
	if !randx.IsValidID(otherID) {
		return "", false
	}
	return otherID, true
}

// IsCanonical reports whether pairwiseID is the id both selfID and its counterpart compute.
func IsCanonical(selfID, pairwiseID string) bool {
	otherID, ok := DeriveCounterpart(selfID, pairwiseID)
	return ok && ComputePairwiseID(selfID, otherID) == pairwiseID
}
