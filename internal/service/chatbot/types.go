package chatbot

import (
	"chatforge-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

const (
	msgLimitReached    = "You have reached your chatbot limit for this plan."
	msgNotFoundEdit    = "Chatbot not found or you do not have permission to edit it."
	msgNotFoundDelete  = "Chatbot not found or you do not have permission to delete it."
	msgInvalidAPIKey   = "Invalid API key."
	msgChatbotDisabled = "This chatbot has been disabled."
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

type Identity struct {
	TenantID string
	Email    string
}

// Patch holds the settings a tenant may change. Nil fields are left untouched.
type Patch struct {
	Name              *string
	Instructions      *string
	QA                *[]model.QAPair
	WelcomeMessage    *string
	Color             *string
	AuthorizedDomains *[]string
}

func (p Patch) Empty() bool {
	return p.Name == nil &&
		p.Instructions == nil &&
		p.QA == nil &&
		p.WelcomeMessage == nil &&
		p.Color == nil &&
		p.AuthorizedDomains == nil
}

// PublicConfig is what the embedded widget needs to render itself.
type PublicConfig struct {
	Name    string
	Welcome string
	Color   string
	Plan    string
}
