package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an error independently of its HTTP status.
type Kind string

const (
	KindUnresolvedIntent        Kind = "UnresolvedIntent"
	KindProductNotFound         Kind = "ProductNotFound"
	KindPrescriptionRequired    Kind = "PrescriptionRequired"
	KindInsufficientStock       Kind = "InsufficientStock"
	KindSessionAlreadyActive    Kind = "SessionAlreadyActive"
	KindSessionNotFound         Kind = "SessionNotFound"
	KindInvalidStage            Kind = "InvalidStage"
	KindInvalidEmail            Kind = "InvalidEmail"
	KindCommitFailed            Kind = "CommitFailed"
	KindCollaboratorUnavailable Kind = "CollaboratorUnavailable"
	KindInvalidInput            Kind = "InvalidInput"
	KindUnauthorized            Kind = "Unauthorized"
	KindForbidden               Kind = "Forbidden"
	KindNotFound                Kind = "NotFound"
	KindInternal                Kind = "Internal"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(code int, kind Kind, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is. Never return these directly; use the
// constructors so the message and cause are per-call.
var (
	ErrSessionAlreadyActive    = &Error{Kind: KindSessionAlreadyActive}
	ErrSessionNotFound         = &Error{Kind: KindSessionNotFound}
	ErrInvalidStage            = &Error{Kind: KindInvalidStage}
	ErrInvalidEmail            = &Error{Kind: KindInvalidEmail}
	ErrCollaboratorUnavailable = &Error{Kind: KindCollaboratorUnavailable}
	ErrInvalidInput            = &Error{Kind: KindInvalidInput}
	ErrUnauthorized            = &Error{Kind: KindUnauthorized}
	ErrForbidden               = &Error{Kind: KindForbidden}
	ErrNotFound                = &Error{Kind: KindNotFound}
)

func SessionAlreadyActive() *Error {
	return New(http.StatusConflict, KindSessionAlreadyActive,
		"Please complete or cancel the current checkout before creating a new order.", nil)
}

func SessionNotFound(message string) *Error {
	return New(http.StatusNotFound, KindSessionNotFound, message, nil)
}

func InvalidStage(message string) *Error {
	return New(http.StatusConflict, KindInvalidStage, message, nil)
}

func InvalidEmail() *Error {
	return New(http.StatusUnprocessableEntity, KindInvalidEmail, "Please enter a valid email address.", nil)
}

func CollaboratorUnavailable(collaborator string, err error) *Error {
	return New(http.StatusServiceUnavailable, KindCollaboratorUnavailable,
		fmt.Sprintf("%s is unavailable", collaborator), err)
}

func InvalidInput(message string) *Error {
	return New(http.StatusBadRequest, KindInvalidInput, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, KindForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, "Internal server error", err)
}

// From returns err as *Error, wrapping anything else as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Respond writes err as the JSON error body and aborts the request.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	c.AbortWithStatusJSON(appErr.Code, appErr)
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
		}
	}
}
