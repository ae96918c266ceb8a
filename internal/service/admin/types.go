package admin

import (
	"time"

	"chatforge-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeUpstream     ErrorCode = "upstream_error"
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

// Session is a signed admin token and its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type UserDetails struct {
	Tenant   model.TenantItem
	Chatbots []model.ChatbotItem
}

type PlanParams struct {
	Plan         string
	MessageLimit int
	ChatbotLimit int
}

type SignupDay struct {
	Date    string
	Signups int
}

type Stats struct {
	TotalUsers        int
	NewUsers          int
	TotalSubmissions  int
	RecentSubmissions []model.SubmissionItem
	SignupChart       []SignupDay
}
