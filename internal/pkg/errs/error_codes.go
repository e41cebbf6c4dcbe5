/*
Package errs provides the application error type and the code table shared by the
websocket pipeline and the HTTP handlers.

Every user-facing failure has a stable numeric code so clients can branch on it
while still showing the accompanying message.
*/
package errs

// 1xxx: General request handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that a per-IP admission limit was hit.
	ErrRateLimitExceeded = 1007

	// ErrUnknownEvent indicates a websocket request for an event nobody serves.
	ErrUnknownEvent = 1008
)

// 2xxx: Gate (pipeline) errors
const (
	// ErrSealed indicates that the caller is currently banned.
	ErrSealed = 2001

	// ErrNotLoggedIn indicates that the event requires a bound session.
	ErrNotLoggedIn = 2002

	// ErrNotAdmin indicates that the event requires the administrator account.
	ErrNotAdmin = 2003

	// ErrTooFrequent indicates the general per-connection call cap was hit.
	ErrTooFrequent = 2004

	// ErrNewUserTooFrequent indicates the stricter new-user call cap was hit.
	ErrNewUserTooFrequent = 2005
)

// 3xxx: User, session and security errors
const (
	ErrUsernameRequired      = 3001
	ErrPasswordRequired      = 3002
	ErrUserAlreadyExists     = 3003
	ErrInvalidUsernameFormat = 3004
	ErrUserNotFound          = 3005
	ErrWrongPassword         = 3006
	ErrAlreadyLoggedIn       = 3007
	ErrTokenRequired         = 3008
	ErrIllegalToken          = 3009
	ErrTokenExpired          = 3010
	ErrIllegalLogin          = 3011
	ErrAvatarRequired        = 3012
	ErrInvalidUserID         = 3013
	ErrAddSelfAsFriend       = 3014
	ErrAlreadyFriends        = 3015
	ErrSamePassword          = 3016
	ErrOldPasswordInvalid    = 3017
	ErrTagRequired           = 3018
	ErrInvalidTagFormat      = 3019
	ErrAlreadySealed         = 3020
	ErrNotSealed             = 3021
	ErrUnauthorized          = 3022
)

// 4xxx: Group and message errors
const (
	ErrGroupLimit              = 4001
	ErrGroupNameRequired       = 4002
	ErrGroupAlreadyExists      = 4003
	ErrInvalidGroupNameFormat  = 4004
	ErrInvalidGroupID          = 4005
	ErrGroupNotFound           = 4006
	ErrAlreadyInGroup          = 4007
	ErrCreatorCannotLeave      = 4008
	ErrNotInGroup              = 4009
	ErrNotGroupCreator         = 4010
	ErrSameGroupName           = 4011
	ErrDefaultGroupUndeletable = 4012
	ErrDefaultGroupMissing     = 4013
	ErrDestinationRequired     = 4101
	ErrInvalidLinkman          = 4102
	ErrMessageTooLong          = 4103
	ErrInvalidMessageType      = 4104
	ErrInviteGroupNotFound     = 4105
	ErrMessageNotFound         = 4106
	ErrFileSizeTooLarge        = 4201
	ErrFileStorageUnavailable  = 4202
)

// 5xxx: Internal system errors
const (
	// ErrUnknown represents an unclassified server error. The underlying cause is only logged.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the object storage collaborator failed.
	ErrFileStorageFailed = 5001
)
