package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindAuthentication Kind = "AUTHENTICATION_ERROR"
	KindAuthorization  Kind = "AUTHORIZATION_ERROR"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindServer         Kind = "SERVER_ERROR"
	KindNetwork        Kind = "NETWORK_ERROR"
	KindRateLimit      Kind = "RATE_LIMIT_ERROR"
	KindUnknown        Kind = "UNKNOWN_ERROR"
)

// Sentinels matched by errors.Is against any *APIError of the same kind.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrValidation     = errors.New("validation failed")
	ErrServer         = errors.New("server error")
	ErrNetwork        = errors.New("network error")
	ErrRateLimit      = errors.New("rate limited")
	ErrUnknown        = errors.New("request failed")
)

// Session errors
var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrSessionExpired = errors.New("session expired")
	ErrNotFound       = errors.New("not found")
)

var kindSentinels = map[Kind]error{
	KindAuthentication: ErrAuthentication,
	KindAuthorization:  ErrAuthorization,
	KindValidation:     ErrValidation,
	KindServer:         ErrServer,
	KindNetwork:        ErrNetwork,
	KindRateLimit:      ErrRateLimit,
	KindUnknown:        ErrUnknown,
}

// Severity mirrors how loudly a failure should be reported.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// APIError is the single error type returned for failed backend calls.
type APIError struct {
	Kind       Kind
	StatusCode int    // 0 when no response was received
	Message    string // human readable, from the response body when available
	RequestID  string
	Method     string
	URL        string
	Err        error // underlying cause, if any
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Kind, msg)
	}
	return fmt.Sprintf("%s %s: %s (%d): %s", e.Method, e.URL, e.Kind, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAuthentication) match on kind.
func (e *APIError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// Severity derives the reporting severity from the status code.
func (e *APIError) Severity() Severity {
	switch {
	case e.StatusCode >= 500:
		return SeverityHigh
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return SeverityHigh
	case e.StatusCode >= 400:
		return SeverityMedium
	case e.Kind == KindNetwork:
		return SeverityHigh
	}
	return SeverityLow
}

// Retryable reports whether repeating the call later could succeed.
func (e *APIError) Retryable() bool {
	if e.StatusCode != 0 {
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	}
	return e.Kind == KindNetwork
}

// KindFromStatus maps an HTTP status code onto the error taxonomy.
func KindFromStatus(status int) Kind {
	switch {
	case status == 0:
		return KindNetwork
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	}
	return KindUnknown
}

// FromResponse builds the error for a non-2xx response. The message comes from
// the body's "message" field, then "error", then the status text.
func FromResponse(method, url string, status int, body []byte, requestID string) *APIError {
	return &APIError{
		Kind:       KindFromStatus(status),
		StatusCode: status,
		Message:    messageFromBody(status, body),
		RequestID:  requestID,
		Method:     method,
		URL:        url,
	}
}

func messageFromBody(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if m := strings.TrimSpace(payload.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(payload.Error); m != "" {
			return m
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// NewNetworkError wraps a transport failure where no response was received.
func NewNetworkError(method, url, requestID string, err error) *APIError {
	return &APIError{
		Kind:      KindNetwork,
		Message:   "network error: unable to reach the server",
		RequestID: requestID,
		Method:    method,
		URL:       url,
		Err:       err,
	}
}

// NewValidationError reports a response body that did not match the expected shape.
func NewValidationError(method, url, requestID string, status int, err error) *APIError {
	return &APIError{
		Kind:       KindValidation,
		StatusCode: status,
		Message:    "unexpected response from server",
		RequestID:  requestID,
		Method:     method,
		URL:        url,
		Err:        err,
	}
}

// KindOf returns the kind of the first *APIError in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// MessageOf returns the user facing message carried by err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
