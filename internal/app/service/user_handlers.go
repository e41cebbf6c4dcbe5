package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"linkchat/internal/app/chat"
	"linkchat/internal/app/db"
	"linkchat/internal/app/pipeline"
	"linkchat/internal/app/user"
	"linkchat/internal/pkg/auth/jwt"
	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/randx"
)

// ClientEnv describes the client software, reported on every login.
type ClientEnv struct {
	OS          string `json:"os"`
	Browser     string `json:"browser"`
	Environment string `json:"environment"`
}

func (e ClientEnv) info() db.ClientInfo {
	return db.ClientInfo{OS: e.OS, Browser: e.Browser, Environment: e.Environment}
}

type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ClientEnv
}

func (in *CredentialsInput) validate() error {
	if strings.TrimSpace(in.Username) == "" {
		return errs.NewError(errs.ErrUsernameRequired)
	}
	if in.Password == "" {
		return errs.NewError(errs.ErrPasswordRequired)
	}
	return nil
}

func (s *Service) register(ctx context.Context, req *pipeline.Request) (any, error) {
	if req.UserID != "" {
		return nil, errs.NewError(errs.ErrAlreadyLoggedIn)
	}

	var input CredentialsInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	defaultGroup, err := s.defaultGroup(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	account := &db.User{Username: input.Username, PasswordHash: hash, Avatar: randx.Avatar()}
	defaultGroup, err = s.store.RegisterUser(ctx, account, defaultGroup.ID)
	if err = translate(err, map[error]int{
		db.ErrDuplicate:  errs.ErrUserAlreadyExists,
		db.ErrValidation: errs.ErrInvalidUsernameFormat,
		db.ErrNotFound:   errs.ErrDefaultGroupMissing,
	}); err != nil {
		return nil, err
	}
	s.mod.MarkNew(account.ID, account.CreatedAt)

	token, err := s.issueToken(account.ID, input.Environment)
	if err != nil {
		return nil, err
	}
	if err := s.bindSession(ctx, req.ConnID, account.ID, input.info(), []*db.Group{defaultGroup}); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", account.ID).Str("username", account.Username).Msg("User registered")
	return SessionView{
		ID:       account.ID,
		Username: account.Username,
		Avatar:   account.Avatar,
		Tag:      account.Tag,
		Groups:   []GroupView{groupView(defaultGroup)},
		Friends:  []FriendView{},
		Token:    token,
		IsAdmin:  s.isAdmin(account.ID),
	}, nil
}

func (s *Service) login(ctx context.Context, req *pipeline.Request) (any, error) {
	if req.UserID != "" {
		return nil, errs.NewError(errs.ErrAlreadyLoggedIn)
	}

	var input CredentialsInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	account, err := s.store.GetUserByUsername(ctx, input.Username)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound}); err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)) != nil {
		return nil, errs.NewError(errs.ErrWrongPassword)
	}

	token, err := s.issueToken(account.ID, input.Environment)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, req.ConnID, account, input.ClientEnv, token)
}

type TokenInput struct {
	Token string `json:"token"`
	ClientEnv
}

func (s *Service) loginByToken(ctx context.Context, req *pipeline.Request) (any, error) {
	if req.UserID != "" {
		return nil, errs.NewError(errs.ErrAlreadyLoggedIn)
	}

	var input TokenInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if input.Token == "" {
		return nil, errs.NewError(errs.ErrTokenRequired)
	}

	payload, err := jwt.ParseToken(input.Token, s.opts.JWTSecret)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errs.NewError(errs.ErrTokenExpired)
	case err != nil:
		return nil, errs.NewError(errs.ErrIllegalToken)
	}
	if payload.Environment != input.Environment {
		return nil, errs.NewError(errs.ErrIllegalLogin)
	}

	account, err := s.store.GetUser(ctx, payload.UserID)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound}); err != nil {
		return nil, err
	}
	return s.startSession(ctx, req.ConnID, account, input.ClientEnv, "")
}

// startSession finishes a login: new-user marking, bookkeeping, channel joins and the session view.
func (s *Service) startSession(ctx context.Context, connID string, account *db.User, env ClientEnv, token string) (any, error) {
	s.mod.MarkNew(account.ID, account.CreatedAt)

	if err := s.store.TouchLastLogin(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	groups, err := s.store.ListGroupsByMember(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	friends, err := s.friendViews(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	if err := s.bindSession(ctx, connID, account.ID, env.info(), groups); err != nil {
		return nil, err
	}

	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView(g))
	}

	return SessionView{
		ID:       account.ID,
		Username: account.Username,
		Avatar:   account.Avatar,
		Tag:      account.Tag,
		Groups:   views,
		Friends:  friends,
		Token:    token,
		IsAdmin:  s.isAdmin(account.ID),
	}, nil
}

// bindSession attaches the connection to userID and subscribes it to every group channel.
func (s *Service) bindSession(ctx context.Context, connID, userID string, info db.ClientInfo, groups []*db.Group) error {
	if err := s.sockets.UpdateSocket(ctx, connID, userID, info); err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("failed to update socket record: %w", err)
	}

	registry := s.hub.Registry()
	if err := registry.Bind(connID, userID); err != nil {
		if errors.Is(err, chat.ErrAlreadyBound) {
			return errs.NewError(errs.ErrAlreadyLoggedIn)
		}
		return fmt.Errorf("failed to bind session: %w", err)
	}
	for _, g := range groups {
		if err := registry.Join(connID, g.ID); err != nil {
			return fmt.Errorf("failed to join channel %s: %w", g.ID, err)
		}
	}
	return nil
}

func (s *Service) issueToken(userID, environment string) (string, error) {
	token, err := jwt.GenerateToken(&jwt.Payload{UserID: userID, Environment: environment}, s.opts.JWTSecret, s.opts.TokenExpires)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *Service) isAdmin(userID string) bool {
	return s.opts.AdminUserID != "" && userID == s.opts.AdminUserID
}

// guest subscribes an anonymous connection to the default group.
func (s *Service) guest(ctx context.Context, req *pipeline.Request) (any, error) {
	var input ClientEnv
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	if err := s.sockets.UpdateSocket(ctx, req.ConnID, req.UserID, input.info()); err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to update socket record: %w", err)
	}

	group, err := s.defaultGroup(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.hub.Registry().Join(req.ConnID, group.ID); err != nil {
		return nil, fmt.Errorf("failed to join default channel: %w", err)
	}

	view := groupView(group)
	if view.Messages, err = s.recentMessages(ctx, group.ID, FirstPageSize, 0); err != nil {
		return nil, err
	}
	return view, nil
}

type AvatarInput struct {
	Avatar string `json:"avatar"`
}

func (s *Service) changeAvatar(ctx context.Context, req *pipeline.Request) (any, error) {
	var input AvatarInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if input.Avatar == "" {
		return nil, errs.NewError(errs.ErrAvatarRequired)
	}

	if err := s.store.UpdateAvatar(ctx, req.UserID, input.Avatar); err != nil {
		return nil, translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound})
	}
	return empty{}, nil
}

type UsernameInput struct {
	Username string `json:"username"`
}

func (s *Service) changeUsername(ctx context.Context, req *pipeline.Request) (any, error) {
	var input UsernameInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Username) == "" {
		return nil, errs.NewError(errs.ErrUsernameRequired)
	}

	err := s.store.UpdateUsername(ctx, req.UserID, input.Username)
	if err = translate(err, map[error]int{
		db.ErrDuplicate:  errs.ErrUserAlreadyExists,
		db.ErrValidation: errs.ErrInvalidUsernameFormat,
		db.ErrNotFound:   errs.ErrUserNotFound,
	}); err != nil {
		return nil, err
	}
	return msgOK, nil
}

type PasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Service) changePassword(ctx context.Context, req *pipeline.Request) (any, error) {
	var input PasswordInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if input.NewPassword == "" {
		return nil, errs.NewError(errs.ErrPasswordRequired)
	}
	if input.OldPassword == input.NewPassword {
		return nil, errs.NewError(errs.ErrSamePassword)
	}

	account, err := s.store.GetUser(ctx, req.UserID)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound}); err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.OldPassword)) != nil {
		return nil, errs.NewError(errs.ErrOldPasswordInvalid)
	}

	hash, err := s.hashPassword(input.NewPassword)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, req.UserID, hash); err != nil {
		return nil, fmt.Errorf("failed to store password: %w", err)
	}
	return msgOK, nil
}

type FriendInput struct {
	UserID string `json:"userId"`
}

// AddFriendResult describes the new edge and its target.
type AddFriendResult struct {
	user.Profile
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Service) addFriend(ctx context.Context, req *pipeline.Request) (any, error) {
	var input FriendInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if !randx.IsValidID(input.UserID) {
		return nil, errs.NewError(errs.ErrInvalidUserID)
	}
	if input.UserID == req.UserID {
		return nil, errs.NewError(errs.ErrAddSelfAsFriend)
	}

	target, err := s.store.GetUser(ctx, input.UserID)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound}); err != nil {
		return nil, err
	}

	edge, err := s.store.AddFriend(ctx, req.UserID, target.ID)
	if err = translate(err, map[error]int{db.ErrDuplicate: errs.ErrAlreadyFriends}); err != nil {
		return nil, err
	}

	return AddFriendResult{Profile: user.FromModel(target, target.ID), From: edge.From, To: edge.To}, nil
}

func (s *Service) deleteFriend(ctx context.Context, req *pipeline.Request) (any, error) {
	var input FriendInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if !randx.IsValidID(input.UserID) {
		return nil, errs.NewError(errs.ErrInvalidUserID)
	}

	if _, err := s.store.GetUser(ctx, input.UserID); err != nil {
		return nil, translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound})
	}
	if err := s.store.DeleteFriend(ctx, req.UserID, input.UserID); err != nil {
		return nil, fmt.Errorf("failed to delete friend: %w", err)
	}
	return empty{}, nil
}

type ResetPasswordResult struct {
	NewPassword string `json:"newPassword"`
}

func (s *Service) resetUserPassword(ctx context.Context, req *pipeline.Request) (any, error) {
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

	hash, err := s.hashPassword(ResetPassword)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, account.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to store password: %w", err)
	}

	s.logger.Info().Str("user_id", account.ID).Msg("Password reset by administrator")
	return ResetPasswordResult{NewPassword: ResetPassword}, nil
}

type TagInput struct {
	Username string `json:"username"`
	Tag      string `json:"tag"`
}

func (s *Service) setUserTag(ctx context.Context, req *pipeline.Request) (any, error) {
	var input TagInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Username) == "" {
		return nil, errs.NewError(errs.ErrUsernameRequired)
	}
	if strings.TrimSpace(input.Tag) == "" {
		return nil, errs.NewError(errs.ErrTagRequired)
	}
	tag, err := db.NormalizeTag(input.Tag)
	if err != nil {
		return nil, errs.NewError(errs.ErrInvalidTagFormat)
	}

	account, err := s.store.GetUserByUsername(ctx, input.Username)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound}); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTag(ctx, account.ID, tag); err != nil {
		return nil, translate(err, map[error]int{db.ErrValidation: errs.ErrInvalidTagFormat})
	}

	s.hub.EmitToUser(account.ID, chat.EventChangeTag, tag, "")
	return msgOK, nil
}
