// Package apperr holds the closed error taxonomy surfaced to clients:
// validation, authentication, network and unknown failures.
package apperr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/errorutils"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind int

const (
	Unknown Kind = iota
	Validation
	Auth
	Network
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Auth:
		return "auth"
	case Network:
		return "network"
	default:
		return "unknown"
	}
}

// DisplayText is the generic alert text shown when no specific message is available.
func (k Kind) DisplayText() string {
	switch k {
	case Validation:
		return "Wprowadzone dane są nieprawidłowe"
	case Auth:
		return "Błąd uwierzytelniania. Zaloguj się ponownie"
	case Network:
		return "Brak połączenia z internetem"
	default:
		return "Wystąpił nieoczekiwany błąd"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case Network:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Message != "":
		return e.Message
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *Error {
	return &Error{Kind: Validation, Message: msg}
}

func NewAuth(msg string) *Error {
	return &Error{Kind: Auth, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// messages reported by Firebase SDKs and the Go networking stack, lower case
var messagePatterns = []struct {
	kind     Kind
	contains []string
}{
	{Network, []string{
		"network error", "unable to resolve host", "no such host", "connection refused", "connection reset",
		"timeout", "timed out", "deadline exceeded", "unavailable", "failed to connect", "offline",
	}},
	{Auth, []string{
		"password is invalid", "invalid password", "no user record", "user not found", "user_not_found",
		"email already exists", "email_exists", "already in use", "unauthenticated", "permission denied",
		"permission_denied", "id token", "token has expired", "token expired", "invalid credential",
		"user has been disabled", "unauthorized",
	}},
	{Validation, []string{
		"badly formatted", "invalid email", "invalid_email", "weak password", "weak_password",
		"invalid argument", "invalid_argument", "must be", "malformed", "required",
	}},
}

// FromMessage maps a vendor error message to the taxonomy by substring matching.
func FromMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	for _, p := range messagePatterns {
		for _, c := range p.contains {
			if strings.Contains(lower, c) {
				return p.kind
			}
		}
	}
	return Unknown
}

// Classify returns err as *Error, wrapping it into the matching taxonomy member if needed.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: kindOf(err), Err: err}
}

func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	return Classify(err).Kind
}

func kindOf(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Network
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Network
	}
	switch {
	case errorutils.IsUnavailable(err):
		return Network
	case errorutils.IsUnauthenticated(err), errorutils.IsPermissionDenied(err):
		return Auth
	case errorutils.IsInvalidArgument(err):
		return Validation
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded:
			return Network
		case codes.Unauthenticated, codes.PermissionDenied:
			return Auth
		case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
			return Validation
		case codes.Unknown:
			// fall through to message matching
		default:
			return Unknown
		}
	}
	return FromMessage(err.Error())
}

// Alert is what a client shows for a failed action.
type Alert struct {
	Kind     Kind
	Text     string
	Duration time.Duration
}

// AlertFor builds the transient alert for err. Validation and auth errors carry user facing messages.
func AlertFor(err error, d time.Duration) Alert {
	e := Classify(err)
	text := e.Kind.DisplayText()
	if e.Message != "" && (e.Kind == Validation || e.Kind == Auth) {
		text = e.Message
	}
	return Alert{Kind: e.Kind, Text: text, Duration: d}
}
