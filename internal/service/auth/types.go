package auth

import (
	"time"

	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type SignupParams struct {
	Email    string
	Password string
	Name     string
}

type LoginParams struct {
	Email    string
	Password string
}

type Identity struct {
	TenantID string
	Email    string
}

// LoginResult either carries tokens or asks the client to verify the OTP
// that was just sent.
type LoginResult struct {
	RequiresOTP bool
	TenantID    string
	Tokens      internaljwt.TokenResponse
}

type AuthResult struct {
	Tenant model.TenantItem
	Tokens internaljwt.TokenResponse
}

type ProfileResult struct {
	Tenant   model.TenantItem
	Plan     model.Plan
	CycleEnd time.Time
}
