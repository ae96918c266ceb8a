package chat

import "chatforge-backend/internal/model"

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeUpstream   ErrorCode = "upstream_error"
)

// MessageGenerationFailed is the only upstream detail shown to callers.
const MessageGenerationFailed = "Sorry, an error occurred while generating a reply."

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

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one earlier message of the conversation.
type Turn struct {
	Role string
	Text string
}

// Input is everything needed to answer one user message.
type Input struct {
	Message      string
	Instructions string
	QA           []model.QAPair
	History      []Turn
}

// InputForChatbot builds the generation input from a chatbot's settings.
func InputForChatbot(bot model.ChatbotItem, message string, history []Turn) Input {
	return Input{
		Message:      message,
		Instructions: bot.Instructions,
		QA:           bot.QA,
		History:      history,
	}
}
