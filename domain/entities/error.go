package entities

import "fmt"

// ErrorDetail describes a failure in a form that can be returned as data,
// logged or serialized. Type is one of "syntax", "runtime", "timeout",
// "canceled", "conversion", "transaction", "pool", "policy", "config",
// "host_function" or "internal".
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	// Code narrows Type, e.g. the operation that timed out.
	Code string `json:"code"`
	// Stack is the runtime backtrace of a script error.
	Stack      string `json:"stack,omitempty"`
	IsTimeout  bool   `json:"is_timeout,omitempty"`
	IsNotFound bool   `json:"is_not_found,omitempty"`
}

func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = e.Type + ": " + msg
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail of the given type.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}
