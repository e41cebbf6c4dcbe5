package handler

import (
	"linkchat/internal/app/chat"
	"linkchat/internal/app/storage"
	"linkchat/internal/configs"
	"linkchat/internal/pkg/limiter"
	"linkchat/internal/pkg/metrics"
)

// AppDeps carries everything the HTTP layer needs.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig

	// Storage is nil when object storage is not configured.
	Storage storage.Service

	// Metrics may be nil, in which case /metrics is not served.
	Metrics *metrics.Metrics

	// WSLimiter admits websocket upgrades per client IP.
	WSLimiter *limiter.IPRateLimiter
}
