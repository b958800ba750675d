package cherr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Code identifies an error as "kind:surface", e.g. "forbidden:chat".
// The code is stable API surface; clients match on it.
type Code string

const (
	BadRequestAPI      Code = "bad_request:api"
	UnauthorizedChat   Code = "unauthorized:chat"
	ForbiddenChat      Code = "forbidden:chat"
	RateLimitChat      Code = "rate_limit:chat"
	NotFoundDatabase   Code = "not_found:database"
	BadRequestDatabase Code = "bad_request:database"
)

// Error is the canonical application error. Cause is logged server-side and
// never serialized to the client.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches an internal cause to a coded error. The cause stays
// server-side.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error code onto an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Code {
	case BadRequestAPI:
		return fiber.StatusBadRequest
	case UnauthorizedChat:
		return fiber.StatusUnauthorized
	case ForbiddenChat:
		return fiber.StatusForbidden
	case RateLimitChat:
		return fiber.StatusTooManyRequests
	case NotFoundDatabase:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// PublicMessage returns what the client is allowed to see. Database failures
// are surfaced generically.
func (e *Error) PublicMessage() string {
	if e.Code == BadRequestDatabase {
		return "An internal error occurred. Please try again later."
	}
	return e.Message
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
