package service

import (
	"context"
	"fmt"

	"linkchat/internal/app/chat"
	"linkchat/internal/app/db"
	"linkchat/internal/app/linkman"
	"linkchat/internal/app/message"
	"linkchat/internal/app/pipeline"
	"linkchat/internal/app/user"
	"linkchat/internal/pkg/errs"
)

type SendMessageInput struct {
	To      string `json:"to"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (s *Service) sendMessage(ctx context.Context, req *pipeline.Request) (any, error) {
	var input SendMessageInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if input.To == "" {
		return nil, errs.NewError(errs.ErrDestinationRequired)
	}
	msgType := message.Type(input.Type)
	if !msgType.Valid() {
		return nil, errs.NewError(errs.ErrInvalidMessageType)
	}

	// the destination must resolve before anything is written or emitted
	if err := s.checkDestination(ctx, req.UserID, input.To); err != nil {
		return nil, err
	}

	sender, err := s.store.GetUser(ctx, req.UserID)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound}); err != nil {
		return nil, err
	}

	body, err := s.processor.Process(ctx, message.Input{Type: msgType, Content: input.Content, Inviter: sender.Username})
	if err != nil {
		return nil, err
	}
	content, err := body.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode message body: %w", err)
	}

	stored := &db.Message{From: sender.ID, To: input.To, Type: string(body.Type), Content: content}
	if err := s.store.CreateMessage(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	view := MessageView{
		ID:        stored.ID,
		From:      user.FromModel(sender, sender.ID),
		To:        stored.To,
		Type:      stored.Type,
		Content:   stored.Content,
		CreatedAt: stored.CreatedAt,
	}
	if _, err := s.hub.Route(stored.To, sender.ID, chat.EventMessage, view, req.ConnID); err != nil {
		return nil, fmt.Errorf("failed to route message %s: %w", stored.ID, err)
	}
	return view, nil
}

// checkDestination verifies that dest names an existing group or the canonical
// direct conversation between userID and an existing user.
func (s *Service) checkDestination(ctx context.Context, userID, dest string) error {
	if linkman.IsGroupID(dest) {
		_, err := s.store.GetGroup(ctx, dest)
		return translate(err, map[error]int{db.ErrNotFound: errs.ErrGroupNotFound})
	}

	counterpart, ok := linkman.DeriveCounterpart(userID, dest)
	if !ok {
		return errs.NewError(errs.ErrInvalidUserID)
	}
	if !linkman.IsCanonical(userID, dest) {
		return errs.NewError(errs.ErrInvalidLinkman)
	}
	_, err := s.store.GetUser(ctx, counterpart)
	return translate(err, map[error]int{db.ErrNotFound: errs.ErrUserNotFound})
}

type LinkmansInput struct {
	Linkmans []string `json:"linkmans"`
}

func (s *Service) getLinkmansLastMessages(ctx context.Context, req *pipeline.Request) (any, error) {
	var input LinkmansInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	result := make(map[string][]MessageView, len(input.Linkmans))
	for _, id := range input.Linkmans {
		if !canRead(req.UserID, id) {
			result[id] = []MessageView{}
			continue
		}
		views, err := s.recentMessages(ctx, id, FirstPageSize, 0)
		if err != nil {
			return nil, err
		}
		result[id] = views
	}
	return result, nil
}

type HistoryInput struct {
	LinkmanID  string `json:"linkmanId"`
	ExistCount int    `json:"existCount"`
}

func (s *Service) getLinkmanHistoryMessages(ctx context.Context, req *pipeline.Request) (any, error) {
	var input HistoryInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if input.LinkmanID == "" || input.ExistCount < 0 {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if !canRead(req.UserID, input.LinkmanID) {
		return nil, errs.NewError(errs.ErrInvalidLinkman)
	}
	return s.recentMessages(ctx, input.LinkmanID, HistoryPageSize, input.ExistCount)
}

// canRead reports whether userID may read the history of linkmanID.
// Group history is open; a direct conversation is readable only by its two parties.
func canRead(userID, linkmanID string) bool {
	return linkman.IsGroupID(linkmanID) || linkman.IsCanonical(userID, linkmanID)
}

func (s *Service) getDefaultGroupHistoryMessages(ctx context.Context, req *pipeline.Request) (any, error) {
	var input HistoryInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if input.ExistCount < 0 {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	group, err := s.defaultGroup(ctx)
	if err != nil {
		return nil, err
	}
	return s.recentMessages(ctx, group.ID, HistoryPageSize, input.ExistCount)
}

type DeleteMessageInput struct {
	MessageID string `json:"messageId"`
}

// deleteMessage removes one message and retracts it from everyone who could see it.
func (s *Service) deleteMessage(ctx context.Context, req *pipeline.Request) (any, error) {
	var input DeleteMessageInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	stored, err := s.store.GetMessage(ctx, input.MessageID)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrMessageNotFound}); err != nil {
		return nil, err
	}
	if err := s.store.DeleteMessage(ctx, stored.ID); err != nil {
		return nil, translate(err, map[error]int{db.ErrNotFound: errs.ErrMessageNotFound})
	}

	// pairwise audiences are resolved from the original sender, not the administrator
	payload := chat.DeleteMessagePayload{LinkmanID: stored.To, MessageID: stored.ID}
	if _, err := s.hub.Route(stored.To, stored.From, chat.EventDeleteMessage, payload, req.ConnID); err != nil {
		return nil, fmt.Errorf("failed to route retraction of %s: %w", stored.ID, err)
	}
	return msgOK, nil
}
