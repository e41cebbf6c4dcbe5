package chat

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"linkchat/internal/pkg/logx"
)

func init() {
	logx.SetOutput(io.Discard)
}

// fakeConn records every frame queued on it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrConnClosed
	}
	if f.full {
		f.closed = true
		return ErrSendQueueFull
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type decodedFrame struct {
	Type    string          `json:"type"`
	ID      int64           `json:"id"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

func (f *fakeConn) decoded(t *testing.T) []decodedFrame {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]decodedFrame, 0, len(f.frames))
	for _, raw := range f.frames {
		var frame decodedFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		out = append(out, frame)
	}
	return out
}

func (f *fakeConn) events(t *testing.T, name string) []decodedFrame {
	t.Helper()

	var out []decodedFrame
	for _, frame := range f.decoded(t) {
		if frame.Type == FrameEvent && frame.Event == name {
			out = append(out, frame)
		}
	}
	return out
}
