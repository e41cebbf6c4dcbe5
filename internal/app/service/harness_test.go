package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"linkchat/internal/app/chat"
	"linkchat/internal/app/db"
	"linkchat/internal/app/moderation"
	"linkchat/internal/pkg/logx"
	"linkchat/internal/pkg/randx"
)

func init() {
	logx.SetOutput(io.Discard)
}

const (
	testSecret      = "test-secret"
	testEnvironment = "firefox on linux"
	testPassword    = "secret"
	sealDuration    = 10 * time.Minute
)

// recConn records every frame queued on it.
type recConn struct {
	id string

	mu     sync.Mutex
	frames []frame
}

type frame struct {
	Type    string          `json:"type"`
	ID      int64           `json:"id"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

func (c *recConn) ID() string { return c.id }

func (c *recConn) Send(raw []byte) error {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *recConn) Close() {}

type env struct {
	t *testing.T

	clock        *clockwork.FakeClock
	limiterClock *clockwork.FakeClock
	// throttle keeps the frequency window still between calls
	throttle bool

	store   *db.MemoryStore
	sockets *db.MemorySocketStore
	mod     *moderation.State
	hub     *chat.Hub
	svc     *Service

	adminID string
}

// newEnv builds a service over in-memory stores with an administrator account "admin".
func newEnv(t *testing.T, configure ...func(*Options)) *env {
	t.Helper()

	e := &env{
		t:            t,
		clock:        clockwork.NewFakeClock(),
		limiterClock: clockwork.NewFakeClock(),
		sockets:      db.NewMemorySocketStore(),
		hub:          chat.NewHub(nil),
		adminID:      randx.NewID(),
	}
	e.store = db.NewMemoryStore().WithClock(e.clock)
	e.mod = moderation.NewState(e.clock, sealDuration)

	opts := Options{
		AdminUserID:      e.adminID,
		MaxGroupsCount:   3,
		MaxMessageLength: 2048,
		DefaultGroupName: "lobby",
		JWTSecret:        testSecret,
		TokenExpires:     time.Hour,
		BcryptCost:       bcrypt.MinCost,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	e.svc = New(opts, Deps{
		Store:      e.store,
		Sockets:    e.sockets,
		Hub:        e.hub,
		Moderation: e.mod,
		Limiter:    moderation.NewFrequencyLimiter(e.limiterClock, moderation.FrequencyWindow),
	})

	_, err := e.svc.EnsureDefaultGroup(context.Background())
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.store.CreateUser(context.Background(), &db.User{ID: e.adminID, Username: "admin", PasswordHash: string(hash)}))

	return e
}

type client struct {
	e    *env
	conn *recConn
	seq  int64

	userID string
	token  string
}

func (e *env) connect() *client {
	conn := &recConn{id: randx.NewID()}
	e.hub.Register(context.Background(), conn, "127.0.0.1")
	return &client{e: e, conn: conn}
}

func (c *client) disconnect() {
	c.e.hub.Unregister(context.Background(), c.conn.id)
}

// call sends one request and returns its ack.
func (c *client) call(event string, data any) frame {
	c.e.t.Helper()

	if !c.e.throttle {
		c.e.limiterClock.Advance(moderation.FrequencyWindow)
	}

	c.seq++
	raw, err := json.Marshal(map[string]any{"id": c.seq, "event": event, "data": data})
	require.NoError(c.e.t, err)
	c.e.hub.Dispatch(context.Background(), c.conn.id, raw)

	c.conn.mu.Lock()
	defer c.conn.mu.Unlock()
	for i := len(c.conn.frames) - 1; i >= 0; i-- {
		if f := c.conn.frames[i]; f.Type == chat.FrameAck && f.ID == c.seq {
			return f
		}
	}
	c.e.t.Fatalf("no ack for %s", event)
	return frame{}
}

// mustCall fails the test unless the call succeeds and decodes its data into out.
func (c *client) mustCall(event string, data, out any) {
	c.e.t.Helper()

	ack := c.call(event, data)
	require.Zero(c.e.t, ack.Code, "%s failed: %s", event, ack.Message)
	if out != nil {
		require.NoError(c.e.t, json.Unmarshal(ack.Data, out))
	}
}

// failCall asserts the call is rejected with code.
func (c *client) failCall(event string, data any, code int) frame {
	c.e.t.Helper()

	ack := c.call(event, data)
	require.Equal(c.e.t, code, ack.Code, "%s: %s", event, ack.Message)
	return ack
}

func (c *client) events(name string) []json.RawMessage {
	c.conn.mu.Lock()
	defer c.conn.mu.Unlock()

	var out []json.RawMessage
	for _, f := range c.conn.frames {
		if f.Type == chat.FrameEvent && f.Event == name {
			out = append(out, f.Data)
		}
	}
	return out
}

func credentials(username string) map[string]any {
	return map[string]any{"username": username, "password": testPassword, "environment": testEnvironment, "os": "linux", "browser": "firefox"}
}

// register opens a connection and registers username on it.
func (e *env) register(username string) *client {
	e.t.Helper()

	c := e.connect()
	var session SessionView
	c.mustCall("register", credentials(username), &session)
	c.userID, c.token = session.ID, session.Token
	return c
}

// login opens another connection for an existing account.
func (e *env) login(username string) *client {
	e.t.Helper()

	c := e.connect()
	var session SessionView
	c.mustCall("login", credentials(username), &session)
	c.userID, c.token = session.ID, session.Token
	return c
}

func (c *client) createGroup(name string) GroupView {
	c.e.t.Helper()

	var group GroupView
	c.mustCall("createGroup", map[string]any{"name": name}, &group)
	return group
}

func (c *client) send(to, msgType, content string) MessageView {
	c.e.t.Helper()

	var msg MessageView
	c.mustCall("sendMessage", map[string]any{"to": to, "type": msgType, "content": content}, &msg)
	return msg
}
