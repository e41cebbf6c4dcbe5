package db

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SocketStore keeps one record per live connection so other users can see who is
// online and on which client.
type SocketStore interface {
	CreateSocket(ctx context.Context, rec *SocketRecord) error
	// UpdateSocket sets the user and client info of an existing record.
	// An empty userID keeps the record anonymous.
	UpdateSocket(ctx context.Context, id, userID string, info ClientInfo) error
	DeleteSocket(ctx context.Context, id string) error
	// ListSocketsByUsers returns the records bound to any of userIDs.
	ListSocketsByUsers(ctx context.Context, userIDs []string) ([]*SocketRecord, error)
	// Reset removes every record. Called on startup since no connection survives a restart.
	Reset(ctx context.Context) error
}

// MemorySocketStore is a SocketStore kept in process memory.
type MemorySocketStore struct {
	mu      sync.Mutex
	sockets map[string]*SocketRecord
}

var _ SocketStore = (*MemorySocketStore)(nil)

// NewMemorySocketStore returns an empty store.
func NewMemorySocketStore() *MemorySocketStore {
	return &MemorySocketStore{sockets: make(map[string]*SocketRecord)}
}

func (s *MemorySocketStore) CreateSocket(_ context.Context, rec *SocketRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sockets[rec.ID]; exists {
		return ErrDuplicate
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	stored := *rec
	s.sockets[rec.ID] = &stored
	return nil
}

func (s *MemorySocketStore) UpdateSocket(_ context.Context, id, userID string, info ClientInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sockets[id]
	if !ok {
		return ErrNotFound
	}
	rec.UserID = userID
	rec.ClientInfo = info
	return nil
}

func (s *MemorySocketStore) DeleteSocket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sockets, id)
	return nil
}

func (s *MemorySocketStore) ListSocketsByUsers(_ context.Context, userIDs []string) ([]*SocketRecord, error) {
	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*SocketRecord
	for _, rec := range s.sockets {
		if _, ok := wanted[rec.UserID]; ok && rec.UserID != "" {
			out := *rec
			result = append(result, &out)
		}
	}
	sortSockets(result)
	return result, nil
}

func (s *MemorySocketStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sockets = make(map[string]*SocketRecord)
	return nil
}

func sortSockets(records []*SocketRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
