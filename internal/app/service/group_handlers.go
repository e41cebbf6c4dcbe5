package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linkchat/internal/app/chat"
	"linkchat/internal/app/db"
	"linkchat/internal/app/linkman"
	"linkchat/internal/app/pipeline"
	"linkchat/internal/app/user"
	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/randx"
)

type GroupNameInput struct {
	Name string `json:"name"`
}

func (s *Service) createGroup(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupNameInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errs.NewError(errs.ErrGroupNameRequired)
	}

	group := &db.Group{Name: input.Name, Avatar: randx.Avatar(), Creator: req.UserID}
	err := s.store.CreateGroup(ctx, group, s.opts.MaxGroupsCount)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrGroupLimit):
		return nil, errs.NewError(errs.ErrGroupLimit, s.opts.MaxGroupsCount)
	default:
		return nil, translate(err, map[error]int{
			db.ErrDuplicate:  errs.ErrGroupAlreadyExists,
			db.ErrValidation: errs.ErrInvalidGroupNameFormat,
		})
	}

	s.hub.Registry().JoinUser(req.UserID, group.ID)

	s.logger.Info().Str("group_id", group.ID).Str("creator", req.UserID).Msg("Group created")
	return groupView(group), nil
}

type GroupInput struct {
	GroupID string `json:"groupId"`
}

// loadGroup validates the id shape and fetches the group.
func (s *Service) loadGroup(ctx context.Context, groupID string) (*db.Group, error) {
	if !linkman.IsGroupID(groupID) {
		return nil, errs.NewError(errs.ErrInvalidGroupID)
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err = translate(err, map[error]int{db.ErrNotFound: errs.ErrGroupNotFound}); err != nil {
		return nil, err
	}
	return group, nil
}

// loadOwnGroup is loadGroup restricted to the group's creator.
func (s *Service) loadOwnGroup(ctx context.Context, groupID, userID string) (*db.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Creator == "" || group.Creator != userID {
		return nil, errs.NewError(errs.ErrNotGroupCreator)
	}
	return group, nil
}

func (s *Service) joinGroup(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}

	// membership is checked by the store in the same step as the write
	err = s.store.AddGroupMember(ctx, group.ID, req.UserID)
	if err = translate(err, map[error]int{
		db.ErrAlreadyMember: errs.ErrAlreadyInGroup,
		db.ErrNotFound:      errs.ErrGroupNotFound,
	}); err != nil {
		return nil, err
	}

	s.hub.Registry().JoinUser(req.UserID, group.ID)

	view := groupView(group)
	if view.Messages, err = s.recentMessages(ctx, group.ID, JoinPreviewSize, 0); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) leaveGroup(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	if group.Creator != "" && group.Creator == req.UserID {
		return nil, errs.NewError(errs.ErrCreatorCannotLeave)
	}

	err = s.store.RemoveGroupMember(ctx, group.ID, req.UserID)
	if err = translate(err, map[error]int{
		db.ErrNotMember: errs.ErrNotInGroup,
		db.ErrNotFound:  errs.ErrGroupNotFound,
	}); err != nil {
		return nil, err
	}

	s.hub.Registry().LeaveUser(req.UserID, group.ID)
	return empty{}, nil
}

func (s *Service) getGroupOnlineMembers(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	return s.onlineMembers(ctx, group)
}

func (s *Service) getDefaultGroupOnlineMembers(ctx context.Context, _ *pipeline.Request) (any, error) {
	group, err := s.defaultGroup(ctx)
	if err != nil {
		return nil, err
	}
	return s.onlineMembers(ctx, group)
}

func (s *Service) onlineMembers(ctx context.Context, group *db.Group) ([]user.OnlineMember, error) {
	records, err := s.sockets.ListSocketsByUsers(ctx, group.Members)
	if err != nil {
		return nil, fmt.Errorf("failed to list sockets: %w", err)
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.UserID)
	}
	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load online members: %w", err)
	}
	return user.OnlineMembers(records, users), nil
}

type GroupAvatarInput struct {
	GroupID string `json:"groupId"`
	Avatar  string `json:"avatar"`
}

func (s *Service) changeGroupAvatar(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupAvatarInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if !linkman.IsGroupID(input.GroupID) {
		return nil, errs.NewError(errs.ErrInvalidGroupID)
	}
	if input.Avatar == "" {
		return nil, errs.NewError(errs.ErrAvatarRequired)
	}

	group, err := s.loadOwnGroup(ctx, input.GroupID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateGroupAvatar(ctx, group.ID, input.Avatar); err != nil {
		return nil, translate(err, map[error]int{db.ErrNotFound: errs.ErrGroupNotFound})
	}
	return empty{}, nil
}

type GroupRenameInput struct {
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
}

func (s *Service) changeGroupName(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupRenameInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if !linkman.IsGroupID(input.GroupID) {
		return nil, errs.NewError(errs.ErrInvalidGroupID)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errs.NewError(errs.ErrGroupNameRequired)
	}

	group, err := s.loadGroup(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	if group.Name == name {
		return nil, errs.NewError(errs.ErrSameGroupName)
	}
	if group.Creator == "" || group.Creator != req.UserID {
		return nil, errs.NewError(errs.ErrNotGroupCreator)
	}

	err = s.store.UpdateGroupName(ctx, group.ID, name)
	if err = translate(err, map[error]int{
		db.ErrDuplicate:  errs.ErrGroupAlreadyExists,
		db.ErrValidation: errs.ErrInvalidGroupNameFormat,
		db.ErrNotFound:   errs.ErrGroupNotFound,
	}); err != nil {
		return nil, err
	}

	payload := chat.ChangeGroupNamePayload{GroupID: group.ID, Name: name}
	if _, err := s.hub.Route(group.ID, req.UserID, chat.EventChangeGroupName, payload, req.ConnID); err != nil {
		return nil, fmt.Errorf("failed to route rename: %w", err)
	}
	return empty{}, nil
}

type GroupAnnouncementInput struct {
	GroupID      string `json:"groupId"`
	Announcement string `json:"announcement"`
}

func (s *Service) changeGroupAnnouncement(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupAnnouncementInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}
	if len([]rune(input.Announcement)) > s.processor.MaxLength() {
		return nil, errs.NewError(errs.ErrMessageTooLong)
	}

	group, err := s.loadOwnGroup(ctx, input.GroupID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateGroupAnnouncement(ctx, group.ID, input.Announcement); err != nil {
		return nil, translate(err, map[error]int{db.ErrNotFound: errs.ErrGroupNotFound})
	}
	return empty{}, nil
}

func (s *Service) deleteGroup(ctx context.Context, req *pipeline.Request) (any, error) {
	var input GroupInput
	if err := req.Bind(&input); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	if group.IsDefault {
		return nil, errs.NewError(errs.ErrDefaultGroupUndeletable)
	}
	if group.Creator != req.UserID {
		return nil, errs.NewError(errs.ErrNotGroupCreator)
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, translate(err, map[error]int{db.ErrNotFound: errs.ErrGroupNotFound})
	}

	payload := chat.DeleteGroupPayload{GroupID: group.ID}
	if _, err := s.hub.Route(group.ID, req.UserID, chat.EventDeleteGroup, payload, req.ConnID); err != nil {
		return nil, fmt.Errorf("failed to route group deletion: %w", err)
	}
	s.hub.Registry().DropChannel(group.ID)

	s.logger.Info().Str("group_id", group.ID).Msg("Group deleted")
	return empty{}, nil
}
