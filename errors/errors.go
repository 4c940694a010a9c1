package errors

import "fmt"

// Authentication failures are fatal for the connection attempt.
var (
	ErrTokenMissing = fmt.Errorf("authentication token is missing")
	ErrTokenInvalid = fmt.Errorf("authentication token is invalid")
	ErrTokenExpired = fmt.Errorf("authentication token is expired")
)

// Validation failures are reported to the sender and the action is dropped.
var (
	ErrEmptyContent     = fmt.Errorf("content is empty")
	ErrContentTooLong   = fmt.Errorf("content exceeds the maximum length")
	ErrForbiddenPattern = fmt.Errorf("content contains a forbidden pattern")
	ErrSpamDetected     = fmt.Errorf("content looks like spam")
	ErrRateLimited      = fmt.Errorf("too many actions, slow down")
	ErrInvalidRoomName  = fmt.Errorf("invalid room name")
	ErrInvalidUsername  = fmt.Errorf("invalid username")
	ErrInvalidPassword  = fmt.Errorf("invalid password")
)

// Domain failures leave all state untouched and are reported as error events.
var (
	ErrRoomNotFound      = fmt.Errorf("room not found")
	ErrDuplicateRoomName = fmt.Errorf("room name already exists")
	ErrNotAMember        = fmt.Errorf("you are not a member of this room")
	ErrPermissionDenied  = fmt.Errorf("permission denied")
	ErrRecipientOffline  = fmt.Errorf("recipient is not online")
	ErrUserNotFound      = fmt.Errorf("user not found or not online")
	ErrCannotKickAdmin   = fmt.Errorf("cannot kick room administrators")
)

// Credential collaborator failures.
var (
	ErrUserAlreadyExists  = fmt.Errorf("username already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
)

var ErrWorkerPanic = fmt.Errorf("worker panic")
