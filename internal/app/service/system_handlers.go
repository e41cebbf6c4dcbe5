package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkchat/internal/app/db"
	"linkchat/internal/app/moderation"
	"linkchat/internal/app/pipeline"
	"linkchat/internal/app/user"
	"linkchat/internal/pkg/errs"
)

type SearchInput struct {
	Keywords string `json:"keywords"`
}

func (s *Service) search(ctx context.Context, req *pipeline.Request) (any, error) {
	var input SearchInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	result := SearchResult{Users: []user.Profile{}, Groups: []GroupSummary{}}
	keywords := strings.TrimSpace(input.Keywords)
	if keywords == "" {
		return result, nil
	}

	users, err := s.store.SearchUsers(ctx, keywords, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	for _, u := range users {
		result.Users = append(result.Users, user.FromModel(u, u.ID))
	}

	groups, err := s.store.SearchGroups(ctx, keywords, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search groups: %w", err)
	}
	for _, g := range groups {
		result.Groups = append(result.Groups, GroupSummary{ID: g.ID, Name: g.Name, Avatar: g.Avatar, Members: len(g.Members)})
	}
	return result, nil
}

// SealResult reports when a seal lifts.
type SealResult struct {
	Msg   string    `json:"msg"`
	Until time.Time `json:"until"`
}

func (s *Service) sealUser(ctx context.Context, req *pipeline.Request) (any, error) {
	account, err := s.userByName(ctx, req)
	if err != nil {
		return nil, err
	}

	until, err := s.mod.Ban(account.ID)
	if errors.Is(err, moderation.ErrAlreadyBanned) {
		return nil, errs.NewError(errs.ErrAlreadySealed)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", account.ID).Time("until", until).Msg("User sealed")
	return SealResult{Msg: msgOK.Msg, Until: until}, nil
}

func (s *Service) unsealUser(ctx context.Context, req *pipeline.Request) (any, error) {
	account, err := s.userByName(ctx, req)
	if err != nil {
		return nil, err
	}

	if !s.mod.Unban(account.ID) {
		return nil, errs.NewError(errs.ErrNotSealed)
	}

	s.logger.Info().Str("user_id", account.ID).Msg("User unsealed")
	return msgOK, nil
}

// getSealList returns the usernames of every sealed user.
func (s *Service) getSealList(ctx context.Context, _ *pipeline.Request) (any, error) {
	ids := s.mod.BannedIDs()
	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load sealed users: %w", err)
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			names = append(names, u.Username)
		}
	}
	return names, nil
}

func (s *Service) userByName(ctx context.Context, req *pipeline.Request) (*db.User, error) {
	var input UsernameInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Username) == "" {
		return nil, errs.NewError(errs.ErrUsernameRequired)
	}

	account, err := s.store.GetUserByUsername(ctx, input.Username)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound}); err != nil {
		return nil, err
	}
	return account, nil
}
