/*
Package service implements every websocket event of the chat server.

Handlers run behind the request pipeline gates. They return either a result that is
acknowledged to the caller or an error; an *errs.CustomError reaches the client as is
and anything else is logged and reported as a server error.
*/
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"linkchat/internal/app/chat"
	"linkchat/internal/app/db"
	"linkchat/internal/app/message"
	"linkchat/internal/app/moderation"
	"linkchat/internal/app/pipeline"
	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/logx"
	"linkchat/internal/pkg/metrics"
	"linkchat/internal/pkg/randx"
)

const (
	// FirstPageSize is how many recent messages are sent per linkman after login.
	FirstPageSize = 15

	// HistoryPageSize is how many older messages one history call returns.
	HistoryPageSize = 30

	// JoinPreviewSize is how many recent messages accompany a joined group.
	JoinPreviewSize = 3

	// SearchLimit caps each result list of a search.
	SearchLimit = 20

	// ResetPassword is the password an administrator reset assigns.
	ResetPassword = "helloworld"
)

// Options carries the configuration the handlers consume.
type Options struct {
	AdminUserID      string
	TrustedUserID    string
	MaxGroupsCount   int
	MaxMessageLength int
	DefaultGroupName string

	JWTSecret    string
	TokenExpires time.Duration

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store      db.Store
	Sockets    db.SocketStore
	Hub        *chat.Hub
	Moderation *moderation.State
	Limiter    *moderation.FrequencyLimiter
	Metrics    *metrics.Metrics
}

// Service owns the event handlers.
type Service struct {
	opts      Options
	store     db.Store
	sockets   db.SocketStore
	hub       *chat.Hub
	mod       *moderation.State
	limiter   *moderation.FrequencyLimiter
	metrics   *metrics.Metrics
	processor *message.Processor
	logger    zerolog.Logger
}

// New creates the service and installs it on the hub as request server and lifecycle observer.
func New(opts Options, deps Deps) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	s := &Service{
		opts:    opts,
		store:   deps.Store,
		sockets: deps.Sockets,
		hub:     deps.Hub,
		mod:     deps.Moderation,
		limiter: deps.Limiter,
		metrics: deps.Metrics,
		logger:  logx.Component("Service"),
	}
	s.processor = message.NewProcessor(groupNames{store: deps.Store}, opts.MaxMessageLength)

	s.hub.SetServer(s.Pipeline())
	s.hub.SetLifecycle(s)
	return s
}

// Processor exposes the message processor so callers can replace its random source.
func (s *Service) Processor() *message.Processor {
	return s.processor
}

// Pipeline wires every handler behind the gates in their fixed order.
func (s *Service) Pipeline() *pipeline.Pipeline {
	router := pipeline.NewRouter()

	// user
	router.Handle("register", s.register)
	router.Handle("login", s.login)
	router.Handle("loginByToken", s.loginByToken)
	router.Handle("guest", s.guest)
	router.Handle("changeAvatar", s.changeAvatar)
	router.Handle("changeUsername", s.changeUsername)
	router.Handle("changePassword", s.changePassword)
	router.Handle("addFriend", s.addFriend)
	router.Handle("deleteFriend", s.deleteFriend)
	router.Handle("resetUserPassword", s.resetUserPassword)
	router.Handle("setUserTag", s.setUserTag)

	// group
	router.Handle("createGroup", s.createGroup)
	router.Handle("joinGroup", s.joinGroup)
	router.Handle("leaveGroup", s.leaveGroup)
	router.Handle("getGroupOnlineMembers", s.getGroupOnlineMembers)
	router.Handle("getDefaultGroupOnlineMembers", s.getDefaultGroupOnlineMembers)
	router.Handle("changeGroupAvatar", s.changeGroupAvatar)
	router.Handle("changeGroupName", s.changeGroupName)
	router.Handle("changeGroupAnnouncement", s.changeGroupAnnouncement)
	router.Handle("deleteGroup", s.deleteGroup)

	// message
	router.Handle("sendMessage", s.sendMessage)
	router.Handle("getLinkmansLastMessages", s.getLinkmansLastMessages)
	router.Handle("getLinkmanHistoryMessages", s.getLinkmanHistoryMessages)
	router.Handle("getDefaultGroupHistoryMessages", s.getDefaultGroupHistoryMessages)
	router.Handle("deleteMessage", s.deleteMessage)

	// system
	router.Handle("search", s.search)
	router.Handle("sealUser", s.sealUser)
	router.Handle("unsealUser", s.unsealUser)
	router.Handle("getSealList", s.getSealList)

	return pipeline.New(router, s.metrics,
		pipeline.Seal(s.mod),
		pipeline.RequireLogin(pipeline.PublicEvents),
		pipeline.RequireAdmin(s.opts.AdminUserID, pipeline.AdminEvents),
		pipeline.Frequency(s.limiter, s.mod, s.opts.TrustedUserID),
		pipeline.Log(),
	)
}

// EnsureDefaultGroup creates the default group when it does not exist yet.
func (s *Service) EnsureDefaultGroup(ctx context.Context) (*db.Group, error) {
	group, err := s.store.GetDefaultGroup(ctx)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load default group: %w", err)
	}

	group = &db.Group{
		Name:      s.opts.DefaultGroupName,
		Avatar:    randx.Avatar(),
		IsDefault: true,
	}
	if err := s.store.CreateGroup(ctx, group, -1); err != nil {
		return nil, fmt.Errorf("failed to create default group %q: %w", s.opts.DefaultGroupName, err)
	}

	s.logger.Info().Str("group_id", group.ID).Str("name", group.Name).Msg("Default group created")
	return group, nil
}

// OnConnect records the new connection in the socket store.
func (s *Service) OnConnect(ctx context.Context, connID, ip string) {
	rec := &db.SocketRecord{ID: connID, IP: ip, CreatedAt: s.mod.Clock().Now()}
	if err := s.sockets.CreateSocket(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("conn_id", connID).Msg("Failed to create socket record")
	}
}

// OnDisconnect forgets everything kept for the connection.
func (s *Service) OnDisconnect(ctx context.Context, connID, _ string) {
	s.limiter.Forget(connID)
	if err := s.sockets.DeleteSocket(ctx, connID); err != nil {
		s.logger.Error().Err(err).Str("conn_id", connID).Msg("Failed to delete socket record")
	}
}

func (s *Service) defaultGroup(ctx context.Context) (*db.Group, error) {
	group, err := s.store.GetDefaultGroup(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errs.NewError(errs.ErrDefaultGroupMissing)
	}
	return group, err
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// groupNames adapts the store to the processor's invite lookup.
type groupNames struct {
	store db.GroupStore
}

func (g groupNames) ResolveGroupName(ctx context.Context, name string) (string, bool, error) {
	group, err := g.store.GetGroupByName(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return group.ID, true, nil
}

// translate maps store sentinels to client errors. Unmatched errors pass through.
func translate(err error, codes map[error]int) error {
	if err == nil {
		return nil
	}
	for target, code := range codes {
		if errors.Is(err, target) {
			return errs.NewError(code)
		}
	}
	return err
}

type okResult struct {
	Msg string `json:"msg"`
}

var msgOK = okResult{Msg: "ok"}

type empty struct{}
