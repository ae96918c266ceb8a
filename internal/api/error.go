package api

type HTTPError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

type ApiError struct {
	Error  string              `json:"message"`
	Fields map[string][]string `json:"fields,omitempty"`
}
