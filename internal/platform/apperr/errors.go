package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error. Its value is the public error code.
type Kind string

const (
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindNotFound           Kind = "NOT_FOUND"
	KindFetchFailed        Kind = "FETCH_FAILED"
	KindOptimizationFailed Kind = "OPTIMIZATION_FAILED"
	KindPersistFailed      Kind = "PERSIST_FAILED"
	KindBatchFailed        Kind = "BATCH_FAILED"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindInternal           Kind = "INTERNAL"

	KindOracleMissingAPIKey  Kind = "ORACLE_MISSING_API_KEY"
	KindOracleInvalidRequest Kind = "ORACLE_INVALID_REQUEST"
	KindOracleRequestDenied  Kind = "ORACLE_REQUEST_DENIED"
	KindOracleZeroResults    Kind = "ORACLE_ZERO_RESULTS"
	KindOracleQuotaExceeded  Kind = "ORACLE_QUOTA_EXCEEDED"
	KindOracleUnavailable    Kind = "ORACLE_UNAVAILABLE"
	KindOracleTimeout        Kind = "ORACLE_TIMEOUT"
	KindOracleNetwork        Kind = "ORACLE_NETWORK"
)

// Error is the single application error type: a kind, a human message and structured details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the public error code.
func (e *Error) Code() string { return string(e.Kind) }

// WithDetail adds a single detail entry and returns e.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	}{
		Code:    e.Code(),
		Message: e.Message,
		Details: e.Details,
	})
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Retryable reports whether a failed oracle call may succeed when repeated.
func Retryable(err error) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Kind {
	case KindOracleQuotaExceeded, KindOracleUnavailable, KindOracleTimeout, KindOracleNetwork:
		return true
	}
	return false
}

// HTTPStatus maps err to the status code used by the HTTP layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindOracleInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound, KindOracleZeroResults:
		return http.StatusNotFound
	case KindOracleRequestDenied:
		return http.StatusForbidden
	case KindOracleQuotaExceeded, KindRateLimited:
		return http.StatusTooManyRequests
	case KindOracleTimeout:
		return http.StatusGatewayTimeout
	case KindFetchFailed, KindOracleUnavailable, KindOracleNetwork, KindOracleMissingAPIKey:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// From converts any error into an *Error, keeping existing application errors intact.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(KindInternal, "an internal error occurred", err)
}
