package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkchat/internal/app/chat"
	"linkchat/internal/pkg/errs"
)

func TestRegisterJoinsDefaultGroupAndClaimsCreator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c := e.connect()
	var first SessionView
	c.mustCall("register", credentials("alice"), &first)

	require.Len(t, first.Groups, 1)
	assert.True(t, first.Groups[0].IsDefault)
	assert.Equal(t, first.ID, first.Groups[0].Creator)
	assert.NotEmpty(t, first.Token)
	assert.False(t, first.IsAdmin)
	assert.Empty(t, first.Friends)
	assert.True(t, e.mod.IsNew(first.ID))

	bob := e.register("bob")
	lobby, err := e.store.GetDefaultGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, lobby.Creator)
	assert.True(t, lobby.HasMember(bob.userID))

	rec, err := e.sockets.ListSocketsByUsers(ctx, []string{bob.userID})
	require.NoError(t, err)
	require.Len(t, rec, 1)
	assert.Equal(t, testEnvironment, rec[0].Environment)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	e.register("alice")

	c := e.connect()
	c.failCall("register", map[string]any{"username": "", "password": "x"}, errs.ErrUsernameRequired)
	c.failCall("register", map[string]any{"username": "bob", "password": ""}, errs.ErrPasswordRequired)
	c.failCall("register", credentials("alice"), errs.ErrUserAlreadyExists)
	c.failCall("register", credentials("bad name!"), errs.ErrInvalidUsernameFormat)
}

func TestFailedRegisterLeavesDefaultGroupUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register("alice")

	before, err := e.store.GetDefaultGroup(ctx)
	require.NoError(t, err)

	c := e.connect()
	c.failCall("register", credentials("alice"), errs.ErrUserAlreadyExists)
	c.failCall("register", credentials("bad name!"), errs.ErrInvalidUsernameFormat)

	after, err := e.store.GetDefaultGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Members, after.Members)
	assert.Equal(t, alice.userID, after.Creator)
	assert.Empty(t, e.hub.Registry().UserOf(c.conn.id))
}

func TestLoginFlows(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")

	c := e.connect()
	c.failCall("login", map[string]any{"username": "nobody", "password": "x"}, errs.ErrUserNotFound)
	c.failCall("login", map[string]any{"username": "alice", "password": "wrong"}, errs.ErrWrongPassword)

	var session SessionView
	c.mustCall("login", credentials("alice"), &session)
	assert.Equal(t, alice.userID, session.ID)
	assert.NotEmpty(t, session.Token)
	assert.Len(t, session.Groups, 1)

	c.failCall("login", credentials("alice"), errs.ErrAlreadyLoggedIn)
	c.failCall("loginByToken", map[string]any{"token": alice.token, "environment": testEnvironment}, errs.ErrAlreadyLoggedIn)
}

func TestLoginByToken(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")

	c := e.connect()
	c.failCall("loginByToken", map[string]any{"token": ""}, errs.ErrTokenRequired)
	c.failCall("loginByToken", map[string]any{"token": "garbage", "environment": testEnvironment}, errs.ErrIllegalToken)
	c.failCall("loginByToken", map[string]any{"token": alice.token, "environment": "other browser"}, errs.ErrIllegalLogin)

	var session SessionView
	c.mustCall("loginByToken", map[string]any{"token": alice.token, "environment": testEnvironment}, &session)
	assert.Equal(t, alice.userID, session.ID)
	assert.Empty(t, session.Token)
}

func TestLoginMarksOnlyRecentAccountsNew(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	alice.disconnect()

	e.clock.Advance(25 * time.Hour)
	assert.False(t, e.mod.IsNew(alice.userID))

	e.login("alice")
	assert.False(t, e.mod.IsNew(alice.userID))
}

func TestGuestReceivesDefaultGroupTraffic(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	alice.send(mustDefaultGroup(t, e).ID, "text", "before")

	guest := e.connect()
	var lobby GroupView
	guest.mustCall("guest", map[string]any{"os": "ios", "browser": "safari", "environment": "phone"}, &lobby)
	assert.True(t, lobby.IsDefault)
	require.Len(t, lobby.Messages, 1)
	assert.Equal(t, "before", lobby.Messages[0].Content)

	alice.send(lobby.ID, "text", "after")
	assert.Len(t, guest.events(chat.EventMessage), 1)

	guest.failCall("sendMessage", map[string]any{"to": lobby.ID, "type": "text", "content": "hi"}, errs.ErrNotLoggedIn)
}

func TestProfileChanges(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	e.register("bob")
	ctx := context.Background()

	alice.failCall("changeAvatar", map[string]any{"avatar": ""}, errs.ErrAvatarRequired)
	alice.mustCall("changeAvatar", map[string]any{"avatar": "/new.png"}, nil)

	alice.failCall("changeUsername", map[string]any{"username": "bob"}, errs.ErrUserAlreadyExists)
	alice.failCall("changeUsername", map[string]any{"username": "x y"}, errs.ErrInvalidUsernameFormat)
	alice.mustCall("changeUsername", map[string]any{"username": "alicia"}, nil)

	u, err := e.store.GetUser(ctx, alice.userID)
	require.NoError(t, err)
	assert.Equal(t, "/new.png", u.Avatar)
	assert.Equal(t, "alicia", u.Username)

	alice.failCall("changePassword", map[string]any{"oldPassword": testPassword, "newPassword": testPassword}, errs.ErrSamePassword)
	alice.failCall("changePassword", map[string]any{"oldPassword": "wrong", "newPassword": "fresh"}, errs.ErrOldPasswordInvalid)
	alice.mustCall("changePassword", map[string]any{"oldPassword": testPassword, "newPassword": "fresh"}, nil)

	c := e.connect()
	c.failCall("login", map[string]any{"username": "alicia", "password": testPassword}, errs.ErrWrongPassword)
	c.mustCall("login", map[string]any{"username": "alicia", "password": "fresh"}, nil)
}

func TestFriends(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	bob := e.register("bob")

	alice.failCall("addFriend", map[string]any{"userId": "not-an-id"}, errs.ErrInvalidUserID)
	alice.failCall("addFriend", map[string]any{"userId": alice.userID}, errs.ErrAddSelfAsFriend)

	var added AddFriendResult
	alice.mustCall("addFriend", map[string]any{"userId": bob.userID}, &added)
	assert.Equal(t, "bob", added.Username)
	assert.Equal(t, alice.userID, added.From)
	assert.Equal(t, bob.userID, added.To)

	alice.failCall("addFriend", map[string]any{"userId": bob.userID}, errs.ErrAlreadyFriends)

	// edges are one-way
	var aliceSession, bobSession SessionView
	e.connect().mustCall("login", credentials("alice"), &aliceSession)
	e.connect().mustCall("login", credentials("bob"), &bobSession)
	require.Len(t, aliceSession.Friends, 1)
	assert.Equal(t, "bob", aliceSession.Friends[0].To.Username)
	assert.Empty(t, bobSession.Friends)

	alice.mustCall("deleteFriend", map[string]any{"userId": bob.userID}, nil)
	alice.mustCall("deleteFriend", map[string]any{"userId": bob.userID}, nil)
}

func TestAdminUserManagement(t *testing.T) {
	e := newEnv(t)
	bob := e.register("bob")
	bobPhone := e.login("bob")
	admin := e.login("admin")

	bob.failCall("setUserTag", map[string]any{"username": "bob", "tag": "vip"}, errs.ErrNotAdmin)
	bob.failCall("resetUserPassword", map[string]any{"username": "bob"}, errs.ErrNotAdmin)

	admin.failCall("setUserTag", map[string]any{"username": "bob", "tag": ""}, errs.ErrTagRequired)
	admin.failCall("setUserTag", map[string]any{"username": "bob", "tag": "way too long tag"}, errs.ErrInvalidTagFormat)
	admin.failCall("setUserTag", map[string]any{"username": "nobody", "tag": "vip"}, errs.ErrUserNotFound)
	admin.mustCall("setUserTag", map[string]any{"username": "bob", "tag": "vip"}, nil)

	for _, c := range []*client{bob, bobPhone} {
		events := c.events(chat.EventChangeTag)
		require.Len(t, events, 1)
		var tag string
		require.NoError(t, json.Unmarshal(events[0], &tag))
		assert.Equal(t, "vip", tag)
	}
	assert.Empty(t, admin.events(chat.EventChangeTag))

	var reset ResetPasswordResult
	admin.mustCall("resetUserPassword", map[string]any{"username": "bob"}, &reset)
	assert.Equal(t, ResetPassword, reset.NewPassword)
	e.connect().mustCall("login", map[string]any{"username": "bob", "password": ResetPassword}, nil)
}

func TestDisconnectForgetsSession(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	bob := e.register("bob")
	ctx := context.Background()

	var online []map[string]any
	e.connect().mustCall("getDefaultGroupOnlineMembers", nil, &online)
	assert.Len(t, online, 2)

	bob.disconnect()

	recs, err := e.sockets.ListSocketsByUsers(ctx, []string{bob.userID})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.False(t, e.hub.Registry().IsOnline(bob.userID))

	alice.mustCall("getDefaultGroupOnlineMembers", nil, &online)
	require.Len(t, online, 1)
	assert.Equal(t, "alice", online[0]["user"].(map[string]any)["username"])
}
