package errors

import (
	stderrors "errors"
	"net/http"
)

const (
	InvalidTokenError         = "Invalid or expired token"
	MissingHeaderError        = "Authorization header missing"
	InvalidHeaderFormatError  = "Invalid authorization format"
	InvalidRequestFormatError = "Invalid request format"
	RequestTooLarge           = "Request body too large"
	MethodNotAllowed          = "Method not allowed"
	RouteNotFound             = "Route not found"
	InvalidIDError            = "Invalid ID format."
	EmailTaken                = "Email is already taken."
	UsernameTaken             = "Username is already taken."
	UserNotFound              = "User not found"
	InvalidPassword           = "Invalid password"
	TooManyLoginAttempts      = "Too many failed login attempts, try again later."
	RoomNotFound              = "Room not found."
	NoRoomsFound              = "No rooms found."
	NotRoomOwner              = "Not authorized to modify this room"
	OwnRoomReserve            = "You cannot reserve your own room."
	RoomAlreadyReserved       = "Room already reserved."
	RoomModifiedConcurrently  = "Room was modified concurrently, try again."
	StartBeforeEnd            = "Start date must be earlier than end date"
	InvalidDateFormat         = "Invalid date format for startAt or endsAt"
	InternalServerError       = "Internal Server Error"
	Forbidden                 = "Forbidden"
)

// Kind is the closed set of failures the HTTP boundary knows how to render.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

// AppError is a failure that is safe to show to a client. Err keeps the
// underlying cause for server-side logs only.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Status() int {
	return e.Kind.Status()
}

func BadRequest(message string) *AppError {
	return &AppError{Kind: KindBadRequest, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func ForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// Wrap attaches a cause to an AppError of the given kind.
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// As reports whether err carries an AppError anywhere in its chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an AppError of kind k.
func IsKind(err error, k Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == k
}
