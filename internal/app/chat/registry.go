package chat

import (
	"errors"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	// ErrUnknownConn is returned for a connection id that is not registered.
	ErrUnknownConn = errors.New("unknown connection")

	// ErrAlreadyBound is returned when binding a connection that already has a user.
	ErrAlreadyBound = errors.New("connection already bound to a user")
)

// Conn is a live connection the hub can push frames to.
type Conn interface {
	ID() string
	// Send queues an encoded frame without blocking.
	Send(frame []byte) error
	Close()
}

type session struct {
	conn   Conn
	userID string
	ip     string
}

// Registry tracks live connections, the user each one is bound to, and the
// channels (group ids) each one has joined. A user may hold many connections.
type Registry struct {
	mu sync.RWMutex

	sessions map[string]*session
	byUser   map[string]mapset.Set[string]
	channels map[string]mapset.Set[string]
	// joined is the reverse index of channels
	joined map[string]mapset.Set[string]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		byUser:   make(map[string]mapset.Set[string]),
		channels: make(map[string]mapset.Set[string]),
		joined:   make(map[string]mapset.Set[string]),
	}
}

// Add registers an unbound connection.
func (r *Registry) Add(conn Conn, ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[conn.ID()] = &session{conn: conn, ip: ip}
	r.joined[conn.ID()] = mapset.NewThreadUnsafeSet[string]()
}

// Remove drops a connection from every index and returns the user it was bound to.
func (r *Registry) Remove(connID string) (userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return "", false
	}

	for _, channel := range r.joined[connID].ToSlice() {
		r.leaveLocked(connID, channel)
	}
	delete(r.joined, connID)

	if s.userID != "" {
		r.unindexUserLocked(s.userID, connID)
	}
	delete(r.sessions, connID)
	return s.userID, true
}

// Bind attaches a logged-in user to a connection.
func (r *Registry) Bind(connID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return ErrUnknownConn
	}
	if s.userID != "" {
		return ErrAlreadyBound
	}

	s.userID = userID
	set, ok := r.byUser[userID]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		r.byUser[userID] = set
	}
	set.Add(connID)
	return nil
}

// Unbind detaches the user from a connection, keeping the connection registered.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok || s.userID == "" {
		return
	}
	r.unindexUserLocked(s.userID, connID)
	s.userID = ""
}

func (r *Registry) unindexUserLocked(userID, connID string) {
	if set, ok := r.byUser[userID]; ok {
		set.Remove(connID)
		if set.Cardinality() == 0 {
			delete(r.byUser, userID)
		}
	}
}

// Conn returns the connection registered under connID.
func (r *Registry) Conn(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	return s.conn, true
}

// UserOf returns the user bound to connID, or "".
func (r *Registry) UserOf(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sessions[connID]; ok {
		return s.userID
	}
	return ""
}

// IPOf returns the remote address recorded for connID.
func (r *Registry) IPOf(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sessions[connID]; ok {
		return s.ip
	}
	return ""
}

// ResolveSessionsForUser returns every live connection of userID.
func (r *Registry) ResolveSessionsForUser(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	return r.connsLocked(set)
}

// IsOnline reports whether userID has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUser[userID]
	return ok
}

// Join subscribes a connection to a channel.
func (r *Registry) Join(connID, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; !ok {
		return ErrUnknownConn
	}
	r.joinLocked(connID, channel)
	return nil
}

// Leave unsubscribes a connection from a channel.
func (r *Registry) Leave(connID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connID, channel)
}

// JoinUser subscribes every connection of userID to a channel.
func (r *Registry) JoinUser(userID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.byUser[userID]; ok {
		set.Each(func(connID string) bool {
			r.joinLocked(connID, channel)
			return false
		})
	}
}

// LeaveUser unsubscribes every connection of userID from a channel.
func (r *Registry) LeaveUser(userID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.byUser[userID]; ok {
		set.Each(func(connID string) bool {
			r.leaveLocked(connID, channel)
			return false
		})
	}
}

// DropChannel unsubscribes everyone from a channel.
func (r *Registry) DropChannel(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channel]
	if !ok {
		return
	}
	members.Each(func(connID string) bool {
		if joined, ok := r.joined[connID]; ok {
			joined.Remove(channel)
		}
		return false
	})
	delete(r.channels, channel)
}

// ChannelConns returns the connections subscribed to channel.
func (r *Registry) ChannelConns(channel string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.channels[channel]
	if !ok {
		return nil
	}
	return r.connsLocked(set)
}

// Channels returns the channels connID has joined.
func (r *Registry) Channels(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if set, ok := r.joined[connID]; ok {
		return set.ToSlice()
	}
	return nil
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// Conns returns every live connection.
func (r *Registry) Conns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.sessions))
	for _, s := range r.sessions {
		conns = append(conns, s.conn)
	}
	return conns
}

func (r *Registry) joinLocked(connID, channel string) {
	members, ok := r.channels[channel]
	if !ok {
		members = mapset.NewThreadUnsafeSet[string]()
		r.channels[channel] = members
	}
	members.Add(connID)
	r.joined[connID].Add(channel)
}

func (r *Registry) leaveLocked(connID, channel string) {
	if members, ok := r.channels[channel]; ok {
		members.Remove(connID)
		if members.Cardinality() == 0 {
			delete(r.channels, channel)
		}
	}
	if joined, ok := r.joined[connID]; ok {
		joined.Remove(channel)
	}
}

func (r *Registry) connsLocked(ids mapset.Set[string]) []Conn {
	conns := make([]Conn, 0, ids.Cardinality())
	ids.Each(func(connID string) bool {
		if s, ok := r.sessions[connID]; ok {
			conns = append(conns, s.conn)
		}
		return false
	})
	return conns
}
