package outreach

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeConflict   ErrorCode = "conflict"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

// Error carries per-field messages when a form fails validation.
type Error struct {
	Code    ErrorCode
	Message string
	Fields  map[string][]string
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

type SubmissionParams struct {
	Name    string
	Email   string
	Company string
	Plan    string
	Message string
}

// SendResult reports a bulk mailing. Failed recipients are counted, not named.
type SendResult struct {
	Recipients int
	Failed     int
}
