package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) *Response[T] {
	return &Response[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

// ErrorBody is the error shape every endpoint returns: {error, details, code}.
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code"`
}

// ErrorResponse builds an ErrorBody whose code is derived from the HTTP status.
func ErrorResponse(status int, message string) *ErrorBody {
	return &ErrorBody{
		Error: message,
		Code:  statusCode(status),
	}
}

func (e *ErrorBody) WithCode(code string) *ErrorBody {
	e.Code = code
	return e
}

func (e *ErrorBody) WithDetails(details interface{}) *ErrorBody {
	e.Details = details
	return e
}

// statusCode turns "Service Unavailable" into "service_unavailable".
func statusCode(status int) string {
	text := utils.StatusMessage(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
