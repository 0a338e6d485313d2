// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Kind is the stable, caller-visible classification of a failure.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error carries a Kind plus a message that is safe to show to the caller.
// Internal errors keep the cause in Err and never expose it in Message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// GRPCStatus lets status.FromError understand service errors directly.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(GRPCCode(e.Kind), e.Message)
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error { return newErr(KindNotFound, format, args...) }
func Conflict(format string, args ...any) error { return newErr(KindConflict, format, args...) }
func InvalidState(format string, args ...any) error {
	return newErr(KindInvalidState, format, args...)
}
func Unauthorized(format string, args ...any) error {
	return newErr(KindUnauthorized, format, args...)
}
func Validation(format string, args ...any) error { return newErr(KindValidation, format, args...) }

// Internal wraps an unexpected infrastructure failure.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// Map converts repo/infra errors into service errors.
// Errors that already carry a Kind pass through untouched.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var svc *Error
	if errors.As(err, &svc) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return &Error{Kind: KindNotFound, Message: "record not found", Err: err}

	case errors.Is(err, gorm.ErrDuplicatedKey), mongo.IsDuplicateKeyError(err):
		return &Error{Kind: KindConflict, Message: "record already exists", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindInternal, Message: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindInternal, Message: "request was canceled", Err: err}

	default:
		return Internal(err)
	}
}

// KindOf reports the Kind of err; untyped errors are Internal.
func KindOf(err error) Kind {
	var svc *Error
	if errors.As(err, &svc) {
		return svc.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the text a client may see for err.
func PublicMessage(err error) string {
	var svc *Error
	if errors.As(err, &svc) && svc.Kind != KindInternal {
		return svc.Message
	}
	return "something went wrong, please retry"
}

// HTTPStatus maps a Kind onto an HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a Kind onto a gRPC code.
func GRPCCode(kind Kind) codes.Code {
	switch kind {
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.AlreadyExists
	case KindInvalidState:
		return codes.FailedPrecondition
	case KindUnauthorized:
		return codes.PermissionDenied
	case KindValidation:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}
