// Package apperr defines the closed set of failure kinds surfaced by the API.
//
// Every boundary operation converts whatever went wrong into exactly one *Error
// via From. Only the sanitized message and code of an *Error ever reach a
// caller; the wrapped cause is for logs.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// Kind is one entry of the error taxonomy.
type Kind int

const (
	KindUnclassified Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindRateLimited
	KindDatabase
	KindConfiguration
	KindDomain
)

// GenericMessage is the only text ever returned for unclassified failures.
const GenericMessage = "An unexpected error occurred"

type kindInfo struct {
	name   string
	status int
	code   string
}

var kinds = map[Kind]kindInfo{
	KindUnclassified:  {"unclassified", http.StatusInternalServerError, "INTERNAL_ERROR"},
	KindValidation:    {"validation", http.StatusBadRequest, "VALIDATION_ERROR"},
	KindNotFound:      {"not_found", http.StatusNotFound, "NOT_FOUND"},
	KindUnauthorized:  {"unauthorized", http.StatusUnauthorized, "UNAUTHORIZED"},
	KindForbidden:     {"forbidden", http.StatusForbidden, "FORBIDDEN"},
	KindConflict:      {"conflict", http.StatusConflict, "CONFLICT"},
	KindRateLimited:   {"rate_limited", http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	KindDatabase:      {"database", http.StatusInternalServerError, "DATABASE_ERROR"},
	KindConfiguration: {"configuration", http.StatusInternalServerError, "CONFIGURATION_ERROR"},
	KindDomain:        {"domain", http.StatusBadRequest, "SCHEMA_ERROR"},
}

func (k Kind) info() kindInfo {
	if info, ok := kinds[k]; ok {
		return info
	}
	return kinds[KindUnclassified]
}

// Status returns the HTTP status for the kind.
func (k Kind) Status() int { return k.info().status }

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string { return k.info().code }

func (k Kind) String() string { return k.info().name }

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	// Details is serialized to callers as-is (validation violations).
	Details any
	// RetryAfter is the retry hint in seconds for KindRateLimited.
	RetryAfter int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. A target carrying
// a message must match it too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Status returns the HTTP status for e.
func (e *Error) Status() int { return e.Kind.Status() }

// Code returns the machine-readable code for e.
func (e *Error) Code() string { return e.Kind.Code() }

// PublicMessage is the message safe to return to a caller.
func (e *Error) PublicMessage() string {
	if e.Kind == KindUnclassified || e.Message == "" {
		return GenericMessage
	}
	return e.Message
}

// Validation builds a validation error. Nil or empty details, including a
// typed nil slice, are dropped so the envelope omits them.
func Validation(message string, details any) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: normalizeDetails(details)}
}

func normalizeDetails(details any) any {
	if details == nil {
		return nil
	}
	v := reflect.ValueOf(details)
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		if v.Len() == 0 {
			return nil
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
	}
	return details
}

// NotFound builds "<resource> with ID '<id>' not found", or "<resource> not found"
// when id is empty.
func NotFound(resource, id string) *Error {
	msg := resource + " not found"
	if id != "" {
		msg = fmt.Sprintf("%s with ID '%s' not found", resource, id)
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Unauthorized access"
	}
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Access forbidden"
	}
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: cause}
}

func RateLimited(retryAfter int) *Error {
	return &Error{Kind: KindRateLimited, Message: "Rate limit exceeded", RetryAfter: retryAfter}
}

// Database wraps a store failure. message is what callers see.
func Database(message string, cause error) *Error {
	return &Error{Kind: KindDatabase, Message: message, Err: cause}
}

func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func Domain(message string) *Error {
	return &Error{Kind: KindDomain, Message: message}
}

// From classifies err. Anything that is not already an *Error becomes
// KindUnclassified with the generic message and err kept as the cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindUnclassified, Message: GenericMessage, Err: err}
}

// KindOf returns the kind err classifies as.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnclassified
	}
	return From(err).Kind
}
