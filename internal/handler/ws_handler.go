package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"linkchat/internal/app/chat"
	"linkchat/internal/pkg/limiter"
	"linkchat/internal/pkg/logx"
	"linkchat/internal/pkg/randx"
)

// HandleWebSocket upgrades the request, registers an anonymous connection and serves
// it until the client goes away. Authentication happens later over the socket.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "ip", logx.AnonymizeIP(ip))
			return
		}

		client := chat.NewClient(deps.Hub, conn, randx.NewID())
		deps.Hub.Register(r.Context(), client, ip)

		go client.WritePump()

		logx.Debug("WebSocket connection established", "conn_id", client.ID(), "ip", logx.AnonymizeIP(ip))

		client.ReadPump(r.Context())
	}
}
