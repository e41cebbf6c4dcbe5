/*
Package user holds the public views of an account that are safe to send to other clients.

Stored accounts carry a password hash and login bookkeeping; everything that leaves the
server as a message sender, friend entry or online member goes through these types.
*/
package user

import (
	"linkchat/internal/app/db"
)

// Profile is the public identity of a user.
type Profile struct {
	// ID is the account id.
	ID string `json:"_id"`

	// Username is the unique display name.
	Username string `json:"username"`

	// Avatar is the URL of the avatar image.
	Avatar string `json:"avatar"`

	// Tag is the short label set by the administrator, empty when none.
	Tag string `json:"tag,omitempty"`
}

// FromModel builds the profile of a stored account. A nil account yields a profile
// carrying only fallbackID so deleted senders still render.
func FromModel(u *db.User, fallbackID string) Profile {
	if u == nil {
		return Profile{ID: fallbackID}
	}
	return Profile{ID: u.ID, Username: u.Username, Avatar: u.Avatar, Tag: u.Tag}
}

// Profiles resolves ids against users, keeping the order of ids.
func Profiles(ids []string, users map[string]*db.User) []Profile {
	out := make([]Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, FromModel(users[id], id))
	}
	return out
}

// OnlineMember is one online user of a group together with the client it uses.
type OnlineMember struct {
	User        Profile `json:"user"`
	OS          string  `json:"os"`
	Browser     string  `json:"browser"`
	Environment string  `json:"environment"`
}

// OnlineMembers collapses socket records to one entry per user. The last record of a
// user provides the client details; entries keep the order in which users first appear.
// Records without a user or whose account is missing are skipped.
func OnlineMembers(records []*db.SocketRecord, users map[string]*db.User) []OnlineMember {
	index := make(map[string]int, len(records))
	out := make([]OnlineMember, 0, len(records))

	for _, rec := range records {
		account, ok := users[rec.UserID]
		if rec.UserID == "" || !ok {
			continue
		}

		member := OnlineMember{
			User:        FromModel(account, rec.UserID),
			OS:          rec.OS,
			Browser:     rec.Browser,
			Environment: rec.Environment,
		}
		if i, seen := index[rec.UserID]; seen {
			out[i] = member
			continue
		}
		index[rec.UserID] = len(out)
		out = append(out, member)
	}
	return out
}
