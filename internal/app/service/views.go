package service

import (
	"context"
	"fmt"
	"time"

	"linkchat/internal/app/db"
	"linkchat/internal/app/user"
)

// MessageView is a stored message with its sender resolved.
type MessageView struct {
	ID        string       `json:"_id"`
	From      user.Profile `json:"from"`
	To        string       `json:"to"`
	Type      string       `json:"type"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createTime"`
}

// GroupView is a group as listed to a member.
type GroupView struct {
	ID           string        `json:"_id"`
	Name         string        `json:"name"`
	Avatar       string        `json:"avatar"`
	Announcement string        `json:"announcement"`
	Creator      string        `json:"creator,omitempty"`
	IsDefault    bool          `json:"isDefault"`
	CreatedAt    time.Time     `json:"createTime"`
	Messages     []MessageView `json:"messages,omitempty"`
}

func groupView(g *db.Group) GroupView {
	return GroupView{
		ID:           g.ID,
		Name:         g.Name,
		Avatar:       g.Avatar,
		Announcement: g.Announcement,
		Creator:      g.Creator,
		IsDefault:    g.IsDefault,
		CreatedAt:    g.CreatedAt,
	}
}

// FriendView is one outgoing friend edge with the target resolved.
type FriendView struct {
	From      string       `json:"from"`
	To        user.Profile `json:"to"`
	CreatedAt time.Time    `json:"createTime"`
}

// SessionView is returned by register, login and loginByToken.
type SessionView struct {
	ID       string       `json:"_id"`
	Username string       `json:"username"`
	Avatar   string       `json:"avatar"`
	Tag      string       `json:"tag"`
	Groups   []GroupView  `json:"groups"`
	Friends  []FriendView `json:"friends"`
	Token    string       `json:"token,omitempty"`
	IsAdmin  bool         `json:"isAdmin"`
}

// GroupSummary is a search hit.
type GroupSummary struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	Members int    `json:"members"`
}

// SearchResult lists matching users and groups.
type SearchResult struct {
	Users  []user.Profile `json:"users"`
	Groups []GroupSummary `json:"groups"`
}

// messageViews resolves senders and returns the messages oldest first.
// msgs must be newest first, as the store lists them.
func (s *Service) messageViews(ctx context.Context, msgs []*db.Message) ([]MessageView, error) {
	senders := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senders = append(senders, m.From)
	}
	users, err := s.store.GetUsers(ctx, senders)
	if err != nil {
		return nil, fmt.Errorf("failed to load message senders: %w", err)
	}

	views := make([]MessageView, len(msgs))
	for i, m := range msgs {
		views[len(msgs)-1-i] = MessageView{
			ID:        m.ID,
			From:      user.FromModel(users[m.From], m.From),
			To:        m.To,
			Type:      m.Type,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return views, nil
}

func (s *Service) recentMessages(ctx context.Context, linkmanID string, limit, offset int) ([]MessageView, error) {
	msgs, err := s.store.ListMessages(ctx, linkmanID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of %s: %w", linkmanID, err)
	}
	return s.messageViews(ctx, msgs)
}

func (s *Service) friendViews(ctx context.Context, userID string) ([]FriendView, error) {
	edges, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}

	targets := make([]string, 0, len(edges))
	for _, e := range edges {
		targets = append(targets, e.To)
	}
	users, err := s.store.GetUsers(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}

	views := make([]FriendView, 0, len(edges))
	for _, e := range edges {
		views = append(views, FriendView{From: e.From, To: user.FromModel(users[e.To], e.To), CreatedAt: e.CreatedAt})
	}
	return views, nil
}
