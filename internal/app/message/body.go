/*
Package message defines chat message bodies and the processor that turns a client's
send request into a stored body.

The Type of a message decides how its content string is decoded: plain text for
text, image and code messages, a JSON command result for system messages and a JSON
invite descriptor for invite messages.
*/
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the discriminant of a message body.
type Type string

const (
	TypeText   Type = "text"
	TypeImage  Type = "image"
	TypeCode   Type = "code"
	TypeInvite Type = "invite"
	TypeSystem Type = "system"
)

// Valid reports whether t is one of the known message types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeCode, TypeInvite, TypeSystem:
		return true
	}
	return false
}

// System command names.
const (
	CommandRoll = "roll"
	CommandRPS  = "rps"
)

// RollResult is the content of a "-roll" system message. Value lies in [0, Top].
type RollResult struct {
	Command string `json:"command"`
	Value   int    `json:"value"`
	Top     int    `json:"top"`
}

// RPSResult is the content of a "-rps" system message.
type RPSResult struct {
	Command string `json:"command"`
	Value   string `json:"value"`
}

// InviteContent is the content of an invite message.
type InviteContent struct {
	Inviter   string `json:"inviter"`
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
}

// Body is a decoded message content. Exactly one of Text, Roll, RPS and Invite is
// meaningful, selected by Type.
type Body struct {
	Type   Type
	Text   string
	Roll   *RollResult
	RPS    *RPSResult
	Invite *InviteContent
}

var errMalformedBody = errors.New("malformed message body")

// Encode serializes b into the content string stored with the message.
func (b Body) Encode() (string, error) {
	switch b.Type {
	case TypeText, TypeImage, TypeCode:
		return b.Text, nil
	case TypeSystem:
		switch {
		case b.Roll != nil:
			return marshal(b.Roll)
		case b.RPS != nil:
			return marshal(b.RPS)
		}
	case TypeInvite:
		if b.Invite != nil {
			return marshal(b.Invite)
		}
	}
	return "", fmt.Errorf("%w: type %q", errMalformedBody, b.Type)
}

// Decode parses a stored content string according to t.
func Decode(t Type, content string) (Body, error) {
	body := Body{Type: t}

	switch t {
	case TypeText, TypeImage, TypeCode:
		body.Text = content
		return body, nil

	case TypeSystem:
		var head struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal([]byte(content), &head); err != nil {
			return Body{}, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		switch head.Command {
		case CommandRoll:
			body.Roll = &RollResult{}
			return body, json.Unmarshal([]byte(content), body.Roll)
		case CommandRPS:
			body.RPS = &RPSResult{}
			return body, json.Unmarshal([]byte(content), body.RPS)
		}
		return Body{}, fmt.Errorf("%w: unknown command %q", errMalformedBody, head.Command)

	case TypeInvite:
		body.Invite = &InviteContent{}
		if err := json.Unmarshal([]byte(content), body.Invite); err != nil {
			return Body{}, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		return body, nil
	}

	return Body{}, fmt.Errorf("%w: type %q", errMalformedBody, t)
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
