package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the typed error every service returns. Status drives the HTTP
// response, Code is a stable machine-readable tag, Message is shown to callers.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	}
	return fmt.Sprintf("app error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so sentinels keep working when the message is customised.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code != "" && e.Code == t.Code
}

// WithMessage returns a copy carrying msg.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func New(status int, code, msg string, err error) *Error {
	return &Error{Status: status, Code: code, Message: msg, Err: err}
}

const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeAuth       = "unauthorized"
	CodeForbidden  = "forbidden"
	CodeUpstream   = "upstream_error"
	CodeInternal   = "internal_error"
)

func Validation(msg string) *Error { return New(http.StatusBadRequest, CodeValidation, msg, nil) }
func NotFound(msg string) *Error   { return New(http.StatusNotFound, CodeNotFound, msg, nil) }
func Conflict(msg string) *Error   { return New(http.StatusConflict, CodeConflict, msg, nil) }
func Auth(msg string) *Error       { return New(http.StatusUnauthorized, CodeAuth, msg, nil) }
func Forbidden(msg string) *Error  { return New(http.StatusForbidden, CodeForbidden, msg, nil) }

func Upstream(msg string, err error) *Error {
	return New(http.StatusInternalServerError, CodeUpstream, msg, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, "internal server error", err)
}

var (
	ErrInvalidOrExpired   = New(http.StatusBadRequest, "invalid_or_expired", "Invalid or expired OTP", nil)
	ErrOTPLimit           = New(http.StatusBadRequest, "otp_limit", "You have reached the limit of OTP requests. Please try again after 2 hours.", nil)
	ErrAccountNotFound    = New(http.StatusNotFound, "account_not_found", "User not found", nil)
	ErrNotVerified        = New(http.StatusForbidden, "not_verified", "OTP not verified. Please verify your account first.", nil)
	ErrNotRegistered      = New(http.StatusForbidden, "not_registered", "User not registered. Please complete registration.", nil)
	ErrAlreadyRegistered  = New(http.StatusConflict, "already_registered", "User already registered", nil)
	ErrInvalidCredentials = New(http.StatusUnauthorized, "invalid_credentials", "Invalid credentials", nil)
	ErrTokenRevoked       = New(http.StatusUnauthorized, "token_revoked", "Token has been revoked", nil)
	ErrAlreadyEnrolled    = New(http.StatusConflict, "already_enrolled", "Already enrolled in this course", nil)
	ErrNotEnrolled        = New(http.StatusNotFound, "not_enrolled", "Not enrolled in this course", nil)
	ErrNotCompleted       = New(http.StatusBadRequest, "not_completed", "Course not completed yet", nil)
	ErrConcurrentUpdate   = New(http.StatusConflict, "concurrent_update", "Account was modified concurrently, retry", nil)
)

// As extracts an *Error from err, or reports false.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// StatusOf maps any error to an HTTP status.
func StatusOf(err error) int {
	if ae, ok := As(err); ok && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
