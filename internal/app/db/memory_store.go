package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"linkchat/internal/pkg/randx"
)

// MemoryStore is a Store kept entirely in process memory.
// Every method runs under a single mutex, so check-then-mutate sequences are atomic.
type MemoryStore struct {
	mu sync.Mutex

	users     map[string]*User
	usernames map[string]string

	groups     map[string]*Group
	groupNames map[string]string

	// friends maps from -> edges in insertion order
	friends map[string][]*Friend

	messages map[string]*Message
	// byLinkman keeps message ids per destination in insertion order
	byLinkman map[string][]string

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*User),
		usernames:  make(map[string]string),
		groups:     make(map[string]*Group),
		groupNames: make(map[string]string),
		friends:    make(map[string][]*Friend),
		messages:   make(map[string]*Message),
		byLinkman:  make(map[string][]string),
		now:        time.Now,
	}
}

// WithClock makes the store stamp records with clock instead of the wall clock.
func (s *MemoryStore) WithClock(clock clockwork.Clock) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = clock.Now
	return s
}

// --- users ---

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	username, err := NormalizeUsername(u.Username)
	if err != nil {
		return err
	}
	tag, err := NormalizeTag(u.Tag)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertUserLocked(u, username, tag)
}

func (s *MemoryStore) insertUserLocked(u *User, username, tag string) error {
	if _, taken := s.usernames[username]; taken {
		return ErrDuplicate
	}

	u.Username, u.Tag = username, tag
	if u.ID == "" {
		u.ID = randx.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if u.LastLoginAt.IsZero() {
		u.LastLoginAt = u.CreatedAt
	}

	stored := *u
	s.users[u.ID] = &stored
	s.usernames[username] = u.ID
	return nil
}

func (s *MemoryStore) RegisterUser(_ context.Context, u *User, groupID string) (*Group, error) {
	username, err := NormalizeUsername(u.Username)
	if err != nil {
		return nil, err
	}
	tag, err := NormalizeTag(u.Tag)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.insertUserLocked(u, username, tag); err != nil {
		return nil, err
	}

	if g.Creator == "" {
		g.Creator = u.ID
	}
	g.Members = append(g.Members, u.ID)
	return copyGroup(g), nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usernames[strings.TrimSpace(username)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

func (s *MemoryStore) GetUsers(_ context.Context, ids []string) (map[string]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]*User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out := *u
			result[id] = &out
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateUsername(_ context.Context, id, username string) error {
	username, err := NormalizeUsername(username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.usernames[username]; taken && owner != id {
		return ErrDuplicate
	}

	delete(s.usernames, u.Username)
	u.Username = username
	s.usernames[username] = id
	return nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.updateUser(id, func(u *User) { u.PasswordHash = passwordHash })
}

func (s *MemoryStore) UpdateAvatar(_ context.Context, id, avatar string) error {
	return s.updateUser(id, func(u *User) { u.Avatar = avatar })
}

func (s *MemoryStore) UpdateTag(_ context.Context, id, tag string) error {
	tag, err := NormalizeTag(tag)
	if err != nil {
		return err
	}
	return s.updateUser(id, func(u *User) { u.Tag = tag })
}

func (s *MemoryStore) TouchLastLogin(_ context.Context, id string) error {
	now := s.now()
	return s.updateUser(id, func(u *User) { u.LastLoginAt = now })
}

func (s *MemoryStore) updateUser(id string, mutate func(u *User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	mutate(u)
	return nil
}

func (s *MemoryStore) SearchUsers(_ context.Context, keyword string, limit int) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword = strings.ToLower(keyword)
	var result []*User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), keyword) {
			out := *u
			result = append(result, &out)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return truncate(result, limit), nil
}

// --- groups ---

func (s *MemoryStore) CreateGroup(_ context.Context, g *Group, maxPerCreator int) error {
	name, err := NormalizeGroupName(g.Name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if maxPerCreator >= 0 && g.Creator != "" {
		owned := 0
		for _, existing := range s.groups {
			if existing.Creator == g.Creator {
				owned++
			}
		}
		if owned >= maxPerCreator {
			return ErrGroupLimit
		}
	}

	if _, taken := s.groupNames[name]; taken {
		return ErrDuplicate
	}
	if g.IsDefault {
		for _, existing := range s.groups {
			if existing.IsDefault {
				return ErrDuplicate
			}
		}
	}

	g.Name = name
	if g.ID == "" {
		g.ID = randx.NewID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	g.Members = nil
	if g.Creator != "" {
		g.Members = []string{g.Creator}
	}

	s.groups[g.ID] = copyGroup(g)
	s.groupNames[name] = g.ID
	return nil
}

func (s *MemoryStore) GetGroup(_ context.Context, id string) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGroup(g), nil
}

func (s *MemoryStore) GetGroupByName(_ context.Context, name string) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.groupNames[strings.TrimSpace(name)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGroup(s.groups[id]), nil
}

func (s *MemoryStore) GetDefaultGroup(_ context.Context) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.IsDefault {
			return copyGroup(g), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListGroupsByMember(_ context.Context, userID string) ([]*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*Group
	for _, g := range s.groups {
		if g.HasMember(userID) {
			result = append(result, copyGroup(g))
		}
	}
	sortGroups(result)
	return result, nil
}

func (s *MemoryStore) AddGroupMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	if g.HasMember(userID) {
		return ErrAlreadyMember
	}
	g.Members = append(g.Members, userID)
	return nil
}

func (s *MemoryStore) RemoveGroupMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	for i, id := range g.Members {
		if id == userID {
			g.Members = append(g.Members[:i:i], g.Members[i+1:]...)
			return nil
		}
	}
	return ErrNotMember
}

func (s *MemoryStore) UpdateGroupName(_ context.Context, id, name string) error {
	name, err := NormalizeGroupName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.groupNames[name]; taken && owner != id {
		return ErrDuplicate
	}

	delete(s.groupNames, g.Name)
	g.Name = name
	s.groupNames[name] = id
	return nil
}

func (s *MemoryStore) UpdateGroupAvatar(_ context.Context, id, avatar string) error {
	return s.updateGroup(id, func(g *Group) { g.Avatar = avatar })
}

func (s *MemoryStore) UpdateGroupAnnouncement(_ context.Context, id, announcement string) error {
	return s.updateGroup(id, func(g *Group) { g.Announcement = announcement })
}

func (s *MemoryStore) updateGroup(id string, mutate func(g *Group)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return ErrNotFound
	}
	mutate(g)
	return nil
}

func (s *MemoryStore) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.groupNames, g.Name)
	delete(s.groups, id)
	return nil
}

func (s *MemoryStore) SearchGroups(_ context.Context, keyword string, limit int) ([]*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword = strings.ToLower(keyword)
	var result []*Group
	for _, g := range s.groups {
		if strings.Contains(strings.ToLower(g.Name), keyword) {
			result = append(result, copyGroup(g))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return truncate(result, limit), nil
}

// --- friends ---

func (s *MemoryStore) AddFriend(_ context.Context, from, to string) (*Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.friends[from] {
		if f.To == to {
			return nil, ErrDuplicate
		}
	}

	f := &Friend{From: from, To: to, CreatedAt: s.now()}
	s.friends[from] = append(s.friends[from], f)

	out := *f
	return &out, nil
}

func (s *MemoryStore) DeleteFriend(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edges := s.friends[from]
	for i, f := range edges {
		if f.To == to {
			s.friends[from] = append(edges[:i:i], edges[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) ListFriends(_ context.Context, from string) ([]*Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Friend, 0, len(s.friends[from]))
	for _, f := range s.friends[from] {
		out := *f
		result = append(result, &out)
	}
	return result, nil
}

// --- messages ---

func (s *MemoryStore) CreateMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = randx.NewID()
	}
	if _, exists := s.messages[m.ID]; exists {
		return ErrDuplicate
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}

	stored := *m
	s.messages[m.ID] = &stored
	s.byLinkman[m.To] = append(s.byLinkman[m.To], m.ID)
	return nil
}

func (s *MemoryStore) GetMessage(_ context.Context, id string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, to string, limit, offset int) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		return []*Message{}, nil
	}

	ids := s.byLinkman[to]
	result := make([]*Message, 0, min(limit, len(ids)))

	skipped := 0
	for i := len(ids) - 1; i >= 0 && len(result) < limit; i-- {
		if skipped < offset {
			skipped++
			continue
		}
		out := *s.messages[ids[i]]
		result = append(result, &out)
	}
	return result, nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.messages, id)

	ids := s.byLinkman[m.To]
	for i, mid := range ids {
		if mid == id {
			s.byLinkman[m.To] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func copyGroup(g *Group) *Group {
	out := *g
	out.Members = append([]string(nil), g.Members...)
	return &out
}

func sortGroups(groups []*Group) {
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.Before(groups[j].CreatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
