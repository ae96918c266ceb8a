package gate

import "chatforge-backend/internal/model"

type ErrorCode string

const (
	ErrorCodeInvalidCredential     ErrorCode = "invalid_credential"
	ErrorCodeInternalInconsistency ErrorCode = "internal_inconsistency"
	ErrorCodeAccessDisabled        ErrorCode = "access_disabled"
	ErrorCodeQuotaExceeded         ErrorCode = "quota_exceeded"
	ErrorCodeInternal              ErrorCode = "internal_error"
)

const (
	MessageInvalidCredential = "Invalid API key."
	MessageOwnerNotFound     = "Chatbot owner not found."
	MessageAccessDisabled    = "This API key has been disabled."
	MessageQuotaExceeded     = "Monthly message limit reached. Please upgrade your plan."
	MessageDomainRejected    = "This chatbot is not authorized to be used on this domain. Please contact the site administrator."
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

// Request is the credential and origin presented by an embed.
type Request struct {
	APIKey string
	Origin string
}

type Outcome string

const (
	OutcomeAdmitted       Outcome = "admitted"
	OutcomePolicyRejected Outcome = "policy_rejected"
)

// Decision is the non-error result of Admit. Message is only set for
// OutcomePolicyRejected; Tenant is only set for OutcomeAdmitted.
type Decision struct {
	Outcome Outcome
	Message string
	Chatbot model.ChatbotItem
	Tenant  model.TenantItem
}

func (d Decision) Admitted() bool {
	return d.Outcome == OutcomeAdmitted
}
