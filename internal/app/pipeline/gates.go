package pipeline

import (
	"context"
	"time"

	"linkchat/internal/app/moderation"
	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/logx"
)

// PublicEvents may be called without logging in.
var PublicEvents = []string{
	"register",
	"login",
	"loginByToken",
	"guest",
	"getDefaultGroupHistoryMessages",
	"getDefaultGroupOnlineMembers",
}

// AdminEvents may only be called by the administrator.
var AdminEvents = []string{
	"sealUser",
	"unsealUser",
	"getSealList",
	"resetUserPassword",
	"setUserTag",
	"deleteMessage",
}

// BanChecker reports sealed users.
type BanChecker interface {
	IsBanned(userID string) bool
}

// NewUserChecker reports users inside their new-user period.
type NewUserChecker interface {
	IsNew(userID string) bool
}

// CallLimiter counts calls per connection.
type CallLimiter interface {
	Allow(connID string, limit int) bool
}

func eventSet(events []string) map[string]struct{} {
	set := make(map[string]struct{}, len(events))
	for _, e := range events {
		set[e] = struct{}{}
	}
	return set
}

// Seal rejects every request from a sealed user.
func Seal(bans BanChecker) Gate {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (any, error) {
			if req.UserID != "" && bans.IsBanned(req.UserID) {
				return nil, errs.NewError(errs.ErrSealed)
			}
			return next(ctx, req)
		}
	}
}

// RequireLogin rejects anonymous requests for events outside public.
func RequireLogin(public []string) Gate {
	allowed := eventSet(public)

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (any, error) {
			if _, ok := allowed[req.Event]; !ok && req.UserID == "" {
				return nil, errs.NewError(errs.ErrNotLoggedIn)
			}
			return next(ctx, req)
		}
	}
}

// RequireAdmin rejects admin events from anyone but adminID.
// With an empty adminID nobody may call them.
func RequireAdmin(adminID string, events []string) Gate {
	restricted := eventSet(events)

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (any, error) {
			if _, ok := restricted[req.Event]; ok && (adminID == "" || req.UserID != adminID) {
				return nil, errs.NewError(errs.ErrNotAdmin)
			}
			return next(ctx, req)
		}
	}
}

// Frequency caps calls per connection per window. trustedID is never limited
// and new users get the stricter cap.
func Frequency(limiter CallLimiter, newUsers NewUserChecker, trustedID string) Gate {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (any, error) {
			if trustedID != "" && req.UserID == trustedID {
				return next(ctx, req)
			}

			if req.UserID != "" && newUsers.IsNew(req.UserID) {
				if !limiter.Allow(req.ConnID, moderation.NewUserCallLimit) {
					return nil, errs.NewError(errs.ErrNewUserTooFrequent)
				}
				return next(ctx, req)
			}

			if !limiter.Allow(req.ConnID, moderation.DefaultCallLimit) {
				return nil, errs.NewError(errs.ErrTooFrequent)
			}
			return next(ctx, req)
		}
	}
}

// Log records every request on entry and exit. It never rejects.
func Log() Gate {
	logger := logx.Component("pipeline")

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (any, error) {
			logger.Info().
				Str("event", req.Event).
				Str("conn_id", req.ConnID).
				Str("user_id", req.UserID).
				Msg("<--")

			start := time.Now()
			data, err := next(ctx, req)

			entry := logger.Info().Str("result", "ok")
			if err != nil {
				entry = logger.Warn().Str("result", "error").Str("error", errorMessage(err))
			}
			entry.
				Str("event", req.Event).
				Str("conn_id", req.ConnID).
				Str("user_id", req.UserID).
				Dur("latency", time.Since(start)).
				Msg("-->")

			return data, err
		}
	}
}

func errorMessage(err error) string {
	if customErr, ok := errs.As(err); ok {
		return customErr.Message
	}
	return err.Error()
}
