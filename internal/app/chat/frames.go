package chat

import "encoding/json"

// Frame types sent to clients.
const (
	FrameAck   = "ack"
	FrameEvent = "event"
)

// Server-to-client event names.
const (
	EventMessage         = "message"
	EventDeleteMessage   = "deleteMessage"
	EventChangeGroupName = "changeGroupName"
	EventDeleteGroup     = "deleteGroup"
	EventChangeTag       = "changeTag"
)

// InboundFrame is a request sent by a client. ID is echoed back in the ack.
type InboundFrame struct {
	ID    int64           `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AckFrame answers exactly one InboundFrame. Code is 0 on success.
type AckFrame struct {
	Type    string `json:"type"`
	ID      int64  `json:"id"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// EventFrame is a server push.
type EventFrame struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// DeleteMessagePayload is the data of a deleteMessage event.
type DeleteMessagePayload struct {
	LinkmanID string `json:"linkmanId"`
	MessageID string `json:"messageId"`
}

// ChangeGroupNamePayload is the data of a changeGroupName event.
type ChangeGroupNamePayload struct {
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
}

// DeleteGroupPayload is the data of a deleteGroup event.
type DeleteGroupPayload struct {
	GroupID string `json:"groupId"`
}
