package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Store is the persistence surface the chat core depends on.
type Store interface {
	UserStore
	GroupStore
	FriendStore
	MessageStore
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts u, filling in ID and CreatedAt when empty.
	// A taken username yields ErrDuplicate, an invalid one ErrValidation.
	CreateUser(ctx context.Context, u *User) error
	// RegisterUser creates u, adds it to the group groupID and makes it the group's
	// creator when the group has none. Either every write happens or none does.
	// It returns the group as updated. A missing group yields ErrNotFound.
	RegisterUser(ctx context.Context, u *User, groupID string) (*Group, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// GetUsers returns the users found among ids, keyed by id.
	GetUsers(ctx context.Context, ids []string) (map[string]*User, error)
	UpdateUsername(ctx context.Context, id, username string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatar string) error
	UpdateTag(ctx context.Context, id, tag string) error
	TouchLastLogin(ctx context.Context, id string) error
	SearchUsers(ctx context.Context, keyword string, limit int) ([]*User, error)
}

// GroupStore persists groups and their member lists.
type GroupStore interface {
	// CreateGroup inserts g with its creator as the only member. When maxPerCreator
	// is not negative and the creator already owns that many groups, nothing is
	// written and ErrGroupLimit is returned.
	CreateGroup(ctx context.Context, g *Group, maxPerCreator int) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	GetGroupByName(ctx context.Context, name string) (*Group, error)
	GetDefaultGroup(ctx context.Context) (*Group, error)
	ListGroupsByMember(ctx context.Context, userID string) ([]*Group, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	UpdateGroupName(ctx context.Context, id, name string) error
	UpdateGroupAvatar(ctx context.Context, id, avatar string) error
	UpdateGroupAnnouncement(ctx context.Context, id, announcement string) error
	DeleteGroup(ctx context.Context, id string) error
	SearchGroups(ctx context.Context, keyword string, limit int) ([]*Group, error)
}

// FriendStore persists one-way friend edges.
type FriendStore interface {
	// AddFriend creates the edge from -> to, or returns ErrDuplicate.
	AddFriend(ctx context.Context, from, to string) (*Friend, error)
	// DeleteFriend removes the edge from -> to. A missing edge is not an error.
	DeleteFriend(ctx context.Context, from, to string) error
	ListFriends(ctx context.Context, from string) ([]*Friend, error)
}

// MessageStore persists the append-only message log.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	// ListMessages returns messages sent to a linkman, newest first.
	ListMessages(ctx context.Context, to string, limit, offset int) ([]*Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

var (
	namePattern = regexp.MustCompile(`^([0-9a-zA-Z]{1,2}|[\x{4e00}-\x{9eff}]){1,8}$`)
	tagPattern  = regexp.MustCompile(`^([0-9a-zA-Z]{1,2}|[\x{4e00}-\x{9eff}]){1,5}$`)
)

// NormalizeUsername trims name and checks it against the username pattern.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: username %q", ErrValidation, name)
	}
	return name, nil
}

// NormalizeGroupName trims name and checks it against the group name pattern.
func NormalizeGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: group name %q", ErrValidation, name)
	}
	return name, nil
}

// NormalizeTag trims tag and checks it against the tag pattern. An empty tag clears it.
func NormalizeTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag != "" && !tagPattern.MatchString(tag) {
		return "", fmt.Errorf("%w: tag %q", ErrValidation, tag)
	}
	return tag, nil
}
