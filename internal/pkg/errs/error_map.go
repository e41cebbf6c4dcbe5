package errs

import "net/http"

// errorMap stores the template for every application error code.
// Messages containing a verb are formatted with the details passed to NewError.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters"},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format"},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format"},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data"},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests, please try again later", Status: http.StatusTooManyRequests},
	ErrUnknownEvent:         {Code: ErrUnknownEvent, Message: "Unknown event: %s"},

	// 2xxx
	ErrSealed:             {Code: ErrSealed, Message: "You have been sealed, please try again later", Status: http.StatusForbidden},
	ErrNotLoggedIn:        {Code: ErrNotLoggedIn, Message: "Please log in and try again", Status: http.StatusUnauthorized},
	ErrNotAdmin:           {Code: ErrNotAdmin, Message: "You are not an administrator", Status: http.StatusForbidden},
	ErrTooFrequent:        {Code: ErrTooFrequent, Message: "The interface is called frequently, please try again later", Status: http.StatusTooManyRequests},
	ErrNewUserTooFrequent: {Code: ErrNewUserTooFrequent, Message: "You are in the new user limitation period, please do not operate frequently", Status: http.StatusTooManyRequests},

	// 3xxx
	ErrUsernameRequired:      {Code: ErrUsernameRequired, Message: "Username can not be empty"},
	ErrPasswordRequired:      {Code: ErrPasswordRequired, Message: "Password can not be empty"},
	ErrUserAlreadyExists:     {Code: ErrUserAlreadyExists, Message: "The username already exists"},
	ErrInvalidUsernameFormat: {Code: ErrInvalidUsernameFormat, Message: "Username contains unsupported characters or is longer than the limit"},
	ErrUserNotFound:          {Code: ErrUserNotFound, Message: "User does not exist"},
	ErrWrongPassword:         {Code: ErrWrongPassword, Message: "Wrong password"},
	ErrAlreadyLoggedIn:       {Code: ErrAlreadyLoggedIn, Message: "You are already logged in"},
	ErrTokenRequired:         {Code: ErrTokenRequired, Message: "Token can not be empty"},
	ErrIllegalToken:          {Code: ErrIllegalToken, Message: "Illegal token"},
	ErrTokenExpired:          {Code: ErrTokenExpired, Message: "Token has expired"},
	ErrIllegalLogin:          {Code: ErrIllegalLogin, Message: "Illegal login"},
	ErrAvatarRequired:        {Code: ErrAvatarRequired, Message: "Avatar can not be empty"},
	ErrInvalidUserID:         {Code: ErrInvalidUserID, Message: "Invalid user ID"},
	ErrAddSelfAsFriend:       {Code: ErrAddSelfAsFriend, Message: "You can not add yourself as a friend"},
	ErrAlreadyFriends:        {Code: ErrAlreadyFriends, Message: "You are already friends"},
	ErrSamePassword:          {Code: ErrSamePassword, Message: "The new password can not be the same as the old password"},
	ErrOldPasswordInvalid:    {Code: ErrOldPasswordInvalid, Message: "Old password is incorrect"},
	ErrTagRequired:           {Code: ErrTagRequired, Message: "Tag can not be empty"},
	ErrInvalidTagFormat:      {Code: ErrInvalidTagFormat, Message: "The tag does not meet the requirements"},
	ErrAlreadySealed:         {Code: ErrAlreadySealed, Message: "User is already sealed"},
	ErrNotSealed:             {Code: ErrNotSealed, Message: "User is not sealed"},
	ErrUnauthorized:          {Code: ErrUnauthorized, Message: "Please sign in to continue", Status: http.StatusUnauthorized},

	// 4xxx
	ErrGroupLimit:              {Code: ErrGroupLimit, Message: "Group creation failed, you have already created %d groups"},
	ErrGroupNameRequired:       {Code: ErrGroupNameRequired, Message: "Group name can not be empty"},
	ErrGroupAlreadyExists:      {Code: ErrGroupAlreadyExists, Message: "The group already exists"},
	ErrInvalidGroupNameFormat:  {Code: ErrInvalidGroupNameFormat, Message: "Group name contains unsupported characters or is longer than the limit"},
	ErrInvalidGroupID:          {Code: ErrInvalidGroupID, Message: "Invalid group ID"},
	ErrGroupNotFound:           {Code: ErrGroupNotFound, Message: "Group does not exist"},
	ErrAlreadyInGroup:          {Code: ErrAlreadyInGroup, Message: "You are already in the group"},
	ErrCreatorCannotLeave:      {Code: ErrCreatorCannotLeave, Message: "The creator can not leave the group"},
	ErrNotInGroup:              {Code: ErrNotInGroup, Message: "You are not in the group"},
	ErrNotGroupCreator:         {Code: ErrNotGroupCreator, Message: "Only the group creator can do this"},
	ErrSameGroupName:           {Code: ErrSameGroupName, Message: "The new group name can not be the same as before"},
	ErrDefaultGroupUndeletable: {Code: ErrDefaultGroupUndeletable, Message: "The default group can not be deleted"},
	ErrDefaultGroupMissing:     {Code: ErrDefaultGroupMissing, Message: "Default group does not exist", Status: http.StatusInternalServerError},
	ErrDestinationRequired:     {Code: ErrDestinationRequired, Message: "Message destination can not be empty"},
	ErrInvalidLinkman:          {Code: ErrInvalidLinkman, Message: "Invalid linkman ID"},
	ErrMessageTooLong:          {Code: ErrMessageTooLong, Message: "Message length is too long"},
	ErrInvalidMessageType:      {Code: ErrInvalidMessageType, Message: "Invalid message type"},
	ErrInviteGroupNotFound:     {Code: ErrInviteGroupNotFound, Message: "Target group does not exist"},
	ErrMessageNotFound:         {Code: ErrMessageNotFound, Message: "Message does not exist"},
	ErrFileSizeTooLarge:        {Code: ErrFileSizeTooLarge, Message: "File is too large"},
	ErrFileStorageUnavailable:  {Code: ErrFileStorageUnavailable, Message: "File upload is not configured", Status: http.StatusServiceUnavailable},

	// 5xxx
	ErrUnknown:           {Code: ErrUnknown, Message: "Server error, please try again later", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed, please try again", Status: http.StatusBadGateway},
}
