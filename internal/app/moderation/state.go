/*
Package moderation holds the process-wide moderation state consulted by the request pipeline:
sealed (temporarily banned) users, users still inside their new-user period, and
per-connection call counters.

Nothing here is persisted. A restart starts from empty sets.
*/
package moderation

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// NewUserPeriod is how long after registration a user is held to the stricter call cap.
const NewUserPeriod = 24 * time.Hour

// ErrAlreadyBanned is returned by Ban for a user that is still sealed.
var ErrAlreadyBanned = errors.New("user is already banned")

// State owns the sealed-user and new-user sets.
type State struct {
	clock        clockwork.Clock
	sealDuration time.Duration

	sealed   *ExpiringSet
	newUsers *ExpiringSet
}

// NewState creates empty moderation state. Seals last sealDuration.
func NewState(clock clockwork.Clock, sealDuration time.Duration) *State {
	return &State{
		clock:        clock,
		sealDuration: sealDuration,
		sealed:       NewExpiringSet(clock),
		newUsers:     NewExpiringSet(clock),
	}
}

// Clock returns the clock driving every expiry.
func (s *State) Clock() clockwork.Clock {
	return s.clock
}

// Ban seals userID for the configured duration and returns when the seal lifts.
func (s *State) Ban(userID string) (time.Time, error) {
	until := s.clock.Now().Add(s.sealDuration)
	if !s.sealed.Add(userID, until) {
		return time.Time{}, ErrAlreadyBanned
	}
	return until, nil
}

// Unban lifts a seal early and reports whether userID was sealed.
func (s *State) Unban(userID string) bool {
	return s.sealed.Remove(userID)
}

// IsBanned reports whether userID is currently sealed.
func (s *State) IsBanned(userID string) bool {
	if userID == "" {
		return false
	}
	return s.sealed.Contains(userID)
}

// BannedIDs lists every sealed user.
func (s *State) BannedIDs() []string {
	return s.sealed.Members()
}

// MarkNew flags userID as new until createdAt plus NewUserPeriod.
// Accounts older than that are left alone; re-marking an already flagged user is a no-op.
func (s *State) MarkNew(userID string, createdAt time.Time) bool {
	return s.newUsers.Add(userID, createdAt.Add(NewUserPeriod))
}

// IsNew reports whether userID is inside its new-user period.
func (s *State) IsNew(userID string) bool {
	if userID == "" {
		return false
	}
	return s.newUsers.Contains(userID)
}
