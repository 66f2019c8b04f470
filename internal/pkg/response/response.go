package response

import (
	"encoding/json"

	"estate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the failure shape for every non-validation error.
type ErrorBody struct {
	Error   interface{} `json:"error"`
	Details string      `json:"details,omitempty"`
}

// ValidationBody lists every failed field rule.
type ValidationBody struct {
	Errors []validation.FieldError `json:"errors"`
}

// OK sends a 200 JSON response.
func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(data)
}

// RawJSON sends bytes that are already JSON, unchanged.
func RawJSON(c *fiber.Ctx, statusCode int, body json.RawMessage) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(statusCode).Send(body)
}

// Error sends {error: message}.
func Error(c *fiber.Ctx, message string, statusCode int) error {
	return c.Status(statusCode).JSON(ErrorBody{Error: message})
}

// ErrorWithDetails sends {error: message, details: details}.
func ErrorWithDetails(c *fiber.Ctx, message, details string, statusCode int) error {
	return c.Status(statusCode).JSON(ErrorBody{Error: message, Details: details})
}

// Validation sends 400 {errors: [...]}.
func Validation(c *fiber.Ctx, err *validation.Error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ValidationBody{Errors: err.Failures})
}
