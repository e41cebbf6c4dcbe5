/*
Package pipeline runs every inbound websocket request through an ordered chain of
gates before it reaches its handler.

A handler returns either a result or an error. The pipeline turns that pair into a
Response: an *errs.CustomError is delivered to the client verbatim, while any other
error, and any panic, is logged and replaced by the generic server error.
*/
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/logx"
	"linkchat/internal/pkg/metrics"
)

// Request is one inbound call.
type Request struct {
	Event string
	Data  json.RawMessage

	// ConnID identifies the connection the request arrived on.
	ConnID string

	// UserID is the user bound to the connection, empty when not logged in.
	UserID string
}

// Bind decodes the request data into dst. Missing data leaves dst untouched.
func (r *Request) Bind(dst any) error {
	trimmed := bytes.TrimSpace(r.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// Handler serves one request.
type Handler func(ctx context.Context, req *Request) (any, error)

// Gate wraps a handler. A gate either rejects the request by returning an error
// or calls next exactly once.
type Gate func(next Handler) Handler

// Chain wraps h in gates. The first gate is the outermost.
func Chain(h Handler, gates ...Gate) Handler {
	for i := len(gates) - 1; i >= 0; i-- {
		h = gates[i](h)
	}
	return h
}

// Response is the outcome delivered back to the caller. Err is nil on success.
type Response struct {
	Data any
	Err  *errs.CustomError
}

// UnknownEventLabel is the metrics label shared by every event the router does not serve.
const UnknownEventLabel = "unknown"

// Pipeline is a gated router with error translation.
type Pipeline struct {
	router  *Router
	handler Handler
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New chains gates around router. m may be nil.
func New(router *Router, m *metrics.Metrics, gates ...Gate) *Pipeline {
	return &Pipeline{
		router:  router,
		handler: Chain(router.Serve, gates...),
		metrics: m,
		logger:  logx.Component("pipeline"),
	}
}

// Serve runs req through the chain and never panics.
func (p *Pipeline) Serve(ctx context.Context, req *Request) (resp Response) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error().
				Str("event", req.Event).
				Str("conn_id", req.ConnID).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Handler panicked")
			resp = Response{Err: errs.NewError(errs.ErrUnknown)}
		}

		result := "ok"
		if resp.Err != nil {
			result = strconv.Itoa(resp.Err.Code)
		}
		p.metrics.ObserveRequest(p.eventLabel(req.Event), result, time.Since(start))
	}()

	data, err := p.handler(ctx, req)
	if err == nil {
		return Response{Data: data}
	}
	return Response{Err: p.translate(req, err)}
}

// eventLabel keeps metric cardinality bounded by the registered events.
func (p *Pipeline) eventLabel(event string) string {
	if p.router.Has(event) {
		return event
	}
	return UnknownEventLabel
}

func (p *Pipeline) translate(req *Request, err error) *errs.CustomError {
	if customErr, ok := errs.As(err); ok {
		return customErr
	}

	p.logger.Error().
		Err(err).
		Str("event", req.Event).
		Str("conn_id", req.ConnID).
		Str("user_id", req.UserID).
		Msg("Unhandled handler error")
	return errs.NewError(errs.ErrUnknown)
}

// Router dispatches a request to the handler registered for its event.
type Router struct {
	routes map[string]Handler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// Handle registers h for event. Registering an event twice panics.
func (r *Router) Handle(event string, h Handler) {
	if _, exists := r.routes[event]; exists {
		panic(fmt.Sprintf("pipeline: duplicate handler for event %q", event))
	}
	r.routes[event] = h
}

// Has reports whether event has a handler.
func (r *Router) Has(event string) bool {
	_, ok := r.routes[event]
	return ok
}

// Serve is the Handler that dispatches by event name.
func (r *Router) Serve(ctx context.Context, req *Request) (any, error) {
	h, ok := r.routes[req.Event]
	if !ok {
		return nil, errs.NewError(errs.ErrUnknownEvent, req.Event)
	}
	return h(ctx, req)
}
