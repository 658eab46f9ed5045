package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is the stable classification tag carried by every surfaced error.
type Kind string

const (
	KindConfiguration     Kind = "CONFIGURATION_ERROR"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindAuthentication    Kind = "AUTHENTICATION_ERROR"
	KindRateLimit         Kind = "RATE_LIMIT_EXCEEDED"
	KindTransient         Kind = "TRANSIENT_EXCHANGE_ERROR"
	KindExchangeRejection Kind = "EXCHANGE_REJECTION"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// Error is the normalized error surfaced by the client and services.
// When the exchange rejected a request, ExchangeCode/ExchangeMsg hold the
// original numeric code and message verbatim.
type Error struct {
	Kind         Kind
	Msg          string
	ExchangeCode int64
	ExchangeMsg  string
	At           time.Time

	cause error
}

func (e *Error) Error() string {
	if e.ExchangeMsg != "" {
		return fmt.Sprintf("%s: %s (exchange %d: %s)", e.Kind, e.Msg, e.ExchangeCode, e.ExchangeMsg)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), At: time.Now()}
}

func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, At: time.Now(), cause: err}
}

// Exchange builds an error carrying the exchange's own code and message.
func Exchange(kind Kind, code int64, msg string) *Error {
	return &Error{
		Kind:         kind,
		Msg:          fmt.Sprintf("exchange error %d: %s", code, msg),
		ExchangeCode: code,
		ExchangeMsg:  msg,
		At:           time.Now(),
	}
}

// KindOf returns the Kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the client retry loop may re-attempt the call.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimit, KindTransient:
		return true
	}
	return false
}

// AsError extracts the typed error when present.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps a Kind to the status the webhook surface replies with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTransient, KindExchangeRejection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
