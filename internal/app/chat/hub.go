/*
Package chat owns the live side of the server: the registry of connections and the
hub that answers client requests and fans events out to the right connections.

A destination is either a group id, delivered through the group's channel, or a
pairwise linkman id, delivered to every connection of both participants.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"linkchat/internal/app/linkman"
	"linkchat/internal/app/pipeline"
	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/logx"
	"linkchat/internal/pkg/metrics"
)

// ErrInvalidDestination is returned by Resolve when a pairwise id does not contain the sender.
var ErrInvalidDestination = errors.New("invalid destination")

// RequestServer answers one decoded request.
type RequestServer interface {
	Serve(ctx context.Context, req *pipeline.Request) pipeline.Response
}

// Lifecycle is notified when connections open and close.
type Lifecycle interface {
	OnConnect(ctx context.Context, connID, ip string)
	OnDisconnect(ctx context.Context, connID, userID string)
}

// Hub routes requests from connections to the RequestServer and events from
// handlers to connections.
type Hub struct {
	registry  *Registry
	metrics   *metrics.Metrics
	server    RequestServer
	lifecycle Lifecycle
	logger    zerolog.Logger
}

// NewHub creates a hub with an empty registry. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		registry: NewRegistry(),
		metrics:  m,
		logger:   logx.Component("Hub"),
	}
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// SetServer installs the request server. Must be called before the first connection.
func (h *Hub) SetServer(s RequestServer) {
	h.server = s
}

// SetLifecycle installs the connection observer. Must be called before the first connection.
func (h *Hub) SetLifecycle(l Lifecycle) {
	h.lifecycle = l
}

// Register adds a new, not yet logged in connection.
func (h *Hub) Register(ctx context.Context, conn Conn, ip string) {
	h.registry.Add(conn, ip)
	h.metrics.ConnectionOpened()

	if h.lifecycle != nil {
		h.lifecycle.OnConnect(ctx, conn.ID(), ip)
	}
	h.logger.Debug().Str("conn_id", conn.ID()).Msg("Connection registered")
}

// Unregister removes a connection from the registry and every channel.
func (h *Hub) Unregister(ctx context.Context, connID string) {
	userID, ok := h.registry.Remove(connID)
	if !ok {
		return
	}
	h.metrics.ConnectionClosed()

	if h.lifecycle != nil {
		h.lifecycle.OnDisconnect(ctx, connID, userID)
	}
	h.logger.Debug().Str("conn_id", connID).Str("user_id", userID).Msg("Connection unregistered")
}

// Dispatch decodes one inbound frame, serves it and acknowledges it on the same connection.
func (h *Hub) Dispatch(ctx context.Context, connID string, raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", connID).Msg("Client sent invalid JSON")
		h.ack(connID, 0, pipeline.Response{Err: errs.NewError(errs.ErrInvalidJSONFormat)})
		return
	}
	if frame.Event == "" {
		h.ack(connID, frame.ID, pipeline.Response{Err: errs.NewError(errs.ErrInvalidParams)})
		return
	}

	req := &pipeline.Request{
		Event:  frame.Event,
		Data:   frame.Data,
		ConnID: connID,
		UserID: h.registry.UserOf(connID),
	}

	var resp pipeline.Response
	if h.server == nil {
		resp = pipeline.Response{Err: errs.NewError(errs.ErrUnknown)}
	} else {
		resp = h.server.Serve(ctx, req)
	}
	h.ack(connID, frame.ID, resp)
}

func (h *Hub) ack(connID string, id int64, resp pipeline.Response) {
	frame := AckFrame{Type: FrameAck, ID: id, Message: "success", Data: resp.Data}
	if resp.Err != nil {
		frame.Code = resp.Err.Code
		frame.Message = resp.Err.Message
		frame.Data = nil
	}

	raw, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error().Err(err).Str("conn_id", connID).Msg("Failed to encode ack")
		raw, _ = json.Marshal(AckFrame{Type: FrameAck, ID: id, Code: errs.ErrUnknown, Message: errs.NewError(errs.ErrUnknown).Message})
	}

	conn, ok := h.registry.Conn(connID)
	if !ok {
		return
	}
	if err := conn.Send(raw); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", connID).Msg("Failed to queue ack")
	}
}

// Resolve returns the connections that must see an event sent to dest by fromUserID.
//
// A group destination reaches every connection in the group channel. A pairwise
// destination reaches every connection of the counterpart and of the sender.
// excludeConnID, normally the originating connection, is left out in both cases,
// and every connection appears at most once.
func (h *Hub) Resolve(dest, fromUserID, excludeConnID string) ([]Conn, error) {
	var candidates []Conn

	if linkman.IsGroupID(dest) {
		candidates = h.registry.ChannelConns(dest)
	} else {
		counterpart, ok := linkman.DeriveCounterpart(fromUserID, dest)
		if !ok {
			return nil, ErrInvalidDestination
		}
		candidates = append(h.registry.ResolveSessionsForUser(counterpart),
			h.registry.ResolveSessionsForUser(fromUserID)...)
	}

	seen := make(map[string]struct{}, len(candidates))
	targets := make([]Conn, 0, len(candidates))
	for _, conn := range candidates {
		id := conn.ID()
		if id == excludeConnID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, conn)
	}
	return targets, nil
}

// Emit encodes the event once and queues it on every connection.
// It returns how many connections accepted the frame.
func (h *Hub) Emit(conns []Conn, event string, payload any) int {
	if len(conns) == 0 {
		return 0
	}

	raw, err := json.Marshal(EventFrame{Type: FrameEvent, Event: event, Data: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode event")
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(raw); err != nil {
			h.logger.Warn().Err(err).Str("conn_id", conn.ID()).Str("event", event).Msg("Failed to queue event")
			continue
		}
		delivered++
	}

	h.metrics.Emitted(event, delivered)
	return delivered
}

// Route resolves dest and emits the event. Nothing is emitted when resolution fails.
func (h *Hub) Route(dest, fromUserID, event string, payload any, excludeConnID string) (int, error) {
	targets, err := h.Resolve(dest, fromUserID, excludeConnID)
	if err != nil {
		return 0, err
	}
	return h.Emit(targets, event, payload), nil
}

// EmitToUser sends an event to every connection of userID except excludeConnID.
func (h *Hub) EmitToUser(userID, event string, payload any, excludeConnID string) int {
	var targets []Conn
	for _, conn := range h.registry.ResolveSessionsForUser(userID) {
		if conn.ID() != excludeConnID {
			targets = append(targets, conn)
		}
	}
	return h.Emit(targets, event, payload)
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	conns := h.registry.Conns()
	for _, conn := range conns {
		conn.Close()
	}
	h.logger.Info().Int("connections", len(conns)).Msg("Hub shutdown complete.")
}
