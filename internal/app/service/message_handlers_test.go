package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkchat/internal/app/chat"
	"linkchat/internal/app/db"
	"linkchat/internal/app/linkman"
	"linkchat/internal/pkg/errs"
)

func decodeMessages(t *testing.T, raws []json.RawMessage) []MessageView {
	t.Helper()

	out := make([]MessageView, 0, len(raws))
	for _, raw := range raws {
		var msg MessageView
		require.NoError(t, json.Unmarshal(raw, &msg))
		out = append(out, msg)
	}
	return out
}

func TestGroupMessageReachesOtherMembers(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	bob := e.register("bob")
	carol := e.register("carol")

	group := alice.createGroup("devs")
	bob.mustCall("joinGroup", map[string]any{"groupId": group.ID}, nil)

	sent := alice.send(group.ID, "text", "hello")
	assert.Equal(t, "hello", sent.Content)

	received := decodeMessages(t, bob.events(chat.EventMessage))
	require.Len(t, received, 1)
	msg := received[0]
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, group.ID, msg.To)
	assert.Equal(t, sent.ID, msg.ID)
	assert.Equal(t, alice.userID, msg.From.ID)
	assert.Equal(t, "alice", msg.From.Username)
	assert.NotEmpty(t, msg.From.Avatar)

	assert.Empty(t, alice.events(chat.EventMessage))
	assert.Empty(t, carol.events(chat.EventMessage))
}

func TestTextIsSanitized(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	lobby, err := e.store.GetDefaultGroup(context.Background())
	require.NoError(t, err)

	msg := alice.send(lobby.ID, "text", `<b onclick="steal()">bold</b>`)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "bold", msg.Content)
}

func TestDirectMessageEchoesToOtherSessions(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	aliceTablet := e.login("alice")
	bob := e.register("bob")
	carol := e.register("carol")

	dest := linkman.ComputePairwiseID(alice.userID, bob.userID)
	alice.send(dest, "text", "hi bob")

	assert.Empty(t, alice.events(chat.EventMessage))
	assert.Len(t, aliceTablet.events(chat.EventMessage), 1)
	assert.Len(t, bob.events(chat.EventMessage), 1)
	assert.Empty(t, carol.events(chat.EventMessage))

	// both sides compute the same id
	bob.send(linkman.ComputePairwiseID(bob.userID, alice.userID), "text", "hi alice")
	assert.Len(t, alice.events(chat.EventMessage), 1)
	assert.Len(t, aliceTablet.events(chat.EventMessage), 2)
}

func TestSendMessageRejectsBadDestinations(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	bob := e.register("bob")
	carol := e.register("carol")

	canonical := linkman.ComputePairwiseID(alice.userID, bob.userID)
	reversed := bob.userID + alice.userID
	if reversed == canonical {
		reversed = alice.userID + bob.userID
	}

	alice.failCall("sendMessage", map[string]any{"to": "", "type": "text", "content": "x"}, errs.ErrDestinationRequired)
	alice.failCall("sendMessage", map[string]any{"to": reversed, "type": "text", "content": "x"}, errs.ErrInvalidLinkman)
	alice.failCall("sendMessage", map[string]any{"to": linkman.ComputePairwiseID(bob.userID, carol.userID), "type": "text", "content": "x"}, errs.ErrInvalidUserID)
	alice.failCall("sendMessage", map[string]any{"to": "00000000-0000-0000-0000-000000000000", "type": "text", "content": "x"}, errs.ErrGroupNotFound)
	alice.failCall("sendMessage", map[string]any{"to": canonical, "type": "system", "content": "{}"}, errs.ErrInvalidMessageType)
	alice.failCall("sendMessage", map[string]any{"to": canonical, "type": "video", "content": "x"}, errs.ErrInvalidMessageType)

	msgs, err := e.store.ListMessages(context.Background(), canonical, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, bob.events(chat.EventMessage))
	assert.Empty(t, carol.events(chat.EventMessage))
}

func TestCommandMessages(t *testing.T) {
	e := newEnv(t)
	e.svc.Processor().WithRand(func(n int) int { return n - 1 })
	alice := e.register("alice")
	lobby, err := e.store.GetDefaultGroup(context.Background())
	require.NoError(t, err)

	roll := alice.send(lobby.ID, "text", "-roll 10")
	assert.Equal(t, "system", roll.Type)
	assert.JSONEq(t, `{"command":"roll","value":10,"top":10}`, roll.Content)

	roll = alice.send(lobby.ID, "text", "  -roll  ")
	assert.JSONEq(t, `{"command":"roll","value":100,"top":100}`, roll.Content)

	rps := alice.send(lobby.ID, "text", "-rps")
	assert.Equal(t, "system", rps.Type)
	assert.JSONEq(t, `{"command":"rps","value":"paper"}`, rps.Content)
}

func TestInviteMessage(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	bob := e.register("bob")
	group := alice.createGroup("devs")

	dest := linkman.ComputePairwiseID(alice.userID, bob.userID)
	invite := alice.send(dest, "invite", "devs")
	assert.Equal(t, "invite", invite.Type)
	assert.JSONEq(t, `{"inviter":"alice","groupId":"`+group.ID+`","groupName":"devs"}`, invite.Content)

	alice.failCall("sendMessage", map[string]any{"to": dest, "type": "invite", "content": "nope"}, errs.ErrInviteGroupNotFound)
}

func TestMessageTooLong(t *testing.T) {
	e := newEnv(t, func(o *Options) { o.MaxMessageLength = 5 })
	alice := e.register("alice")
	lobby, err := e.store.GetDefaultGroup(context.Background())
	require.NoError(t, err)

	alice.send(lobby.ID, "text", "12345")
	alice.failCall("sendMessage", map[string]any{"to": lobby.ID, "type": "text", "content": "123456"}, errs.ErrMessageTooLong)
}

func TestHistoryPaging(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	lobby, err := e.store.GetDefaultGroup(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 35; i++ {
		require.NoError(t, e.store.CreateMessage(ctx, &db.Message{From: alice.userID, To: lobby.ID, Type: "text", Content: string(rune('a' + i%26))}))
	}

	var page []MessageView
	alice.mustCall("getLinkmanHistoryMessages", map[string]any{"linkmanId": lobby.ID, "existCount": 0}, &page)
	require.Len(t, page, HistoryPageSize)
	assert.Equal(t, "i", page[len(page)-1].Content)
	assert.Equal(t, "alice", page[0].From.Username)

	alice.mustCall("getLinkmanHistoryMessages", map[string]any{"linkmanId": lobby.ID, "existCount": 30}, &page)
	require.Len(t, page, 5)
	assert.Equal(t, "a", page[0].Content)

	var last map[string][]MessageView
	alice.mustCall("getLinkmansLastMessages", map[string]any{"linkmans": []string{lobby.ID, "unknown"}}, &last)
	assert.Len(t, last[lobby.ID], FirstPageSize)
	assert.Empty(t, last["unknown"])

	guest := e.connect()
	guest.mustCall("getDefaultGroupHistoryMessages", map[string]any{"existCount": 33}, &page)
	assert.Len(t, page, 2)

	alice.failCall("getLinkmanHistoryMessages", map[string]any{"linkmanId": lobby.ID, "existCount": -1}, errs.ErrInvalidParams)
}

func TestDirectHistoryIsPrivateToItsParties(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	bob := e.register("bob")
	mallory := e.register("mallory")

	dest := linkman.ComputePairwiseID(alice.userID, bob.userID)
	alice.send(dest, "text", "secret")

	var page []MessageView
	bob.mustCall("getLinkmanHistoryMessages", map[string]any{"linkmanId": dest, "existCount": 0}, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "secret", page[0].Content)

	mallory.failCall("getLinkmanHistoryMessages", map[string]any{"linkmanId": dest, "existCount": 0}, errs.ErrInvalidLinkman)

	var last map[string][]MessageView
	mallory.mustCall("getLinkmansLastMessages", map[string]any{"linkmans": []string{dest}}, &last)
	assert.Empty(t, last[dest])

	alice.mustCall("getLinkmansLastMessages", map[string]any{"linkmans": []string{dest}}, &last)
	assert.Len(t, last[dest], 1)
}

func TestDeleteMessageRetractsFromGroupAudience(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	aliceTablet := e.login("alice")
	bob := e.register("bob")
	carol := e.register("carol")
	admin := e.login("admin")

	group := alice.createGroup("devs")
	bob.mustCall("joinGroup", map[string]any{"groupId": group.ID}, nil)
	msg := alice.send(group.ID, "text", "oops")

	admin.mustCall("deleteMessage", map[string]any{"messageId": msg.ID}, nil)

	want := `{"linkmanId":"` + group.ID + `","messageId":"` + msg.ID + `"}`
	for _, c := range []*client{alice, aliceTablet, bob} {
		events := c.events(chat.EventDeleteMessage)
		require.Len(t, events, 1)
		assert.JSONEq(t, want, string(events[0]))
	}
	assert.Empty(t, carol.events(chat.EventDeleteMessage))
	assert.Empty(t, admin.events(chat.EventDeleteMessage))

	_, err := e.store.GetMessage(context.Background(), msg.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	admin.failCall("deleteMessage", map[string]any{"messageId": msg.ID}, errs.ErrMessageNotFound)
}

func TestDeleteMessageRetractsFromBothEndsOfConversation(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice")
	aliceTablet := e.login("alice")
	bob := e.register("bob")
	carol := e.register("carol")
	admin := e.login("admin")

	msg := alice.send(linkman.ComputePairwiseID(alice.userID, bob.userID), "text", "psst")
	admin.mustCall("deleteMessage", map[string]any{"messageId": msg.ID}, nil)

	assert.Len(t, alice.events(chat.EventDeleteMessage), 1)
	assert.Len(t, aliceTablet.events(chat.EventDeleteMessage), 1)
	assert.Len(t, bob.events(chat.EventDeleteMessage), 1)
	assert.Empty(t, carol.events(chat.EventDeleteMessage))
	assert.Empty(t, admin.events(chat.EventDeleteMessage))

	bob.failCall("deleteMessage", map[string]any{"messageId": msg.ID}, errs.ErrNotAdmin)
}
