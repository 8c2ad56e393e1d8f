package fakeapi

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError carries a machine-readable code next to the message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newValidationError(message string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message}
}

func newConflictError(err error) *AppError {
	return &AppError{Code: "CONFLICT", Message: "Resource already exists", Err: err}
}

func newNotFoundError(err error) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: "Referenced resource not found", Err: err}
}

func newUnauthorizedError(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message}
}

func newInternalError(err error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Err: err}
}

// respondWithError writes a standardized error body.
func respondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
