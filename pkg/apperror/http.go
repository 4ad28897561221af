package apperror

import (
	"ai-doc-assistant/config"
	"ai-doc-assistant/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// ErrorResponse is the standardized HTTP error payload
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// SuccessMessage is the standardized HTTP success payload
type SuccessMessage struct {
	Message    string `json:"message"`
	TrackingID string `json:"tracking_id"`
	Data       any    `json:"data"`
}

// WriteError logs a structured warning and returns a standardized JSON error
func WriteError(module config.Module, c fiber.Ctx, httpStatus int, code string, message string) error {
	logger.WithFields(map[string]interface{}{
		"module":        module,
		"status_code":   httpStatus,
		"error_code":    code,
		"error_message": message,
		"http_method":   c.Method(),
		"path":          c.Path(),
		"url":           c.OriginalURL(),
		"ip":            c.IP(),
	}).Warnf("http error")

	return c.Status(httpStatus).JSON(ErrorResponse{
		Error:     message,
		ErrorCode: code,
	})
}

// BadRequest writes a 400 with the malformed-input error code
func BadRequest(module config.Module, c fiber.Ctx, message string) error {
	return WriteError(module, c, fiber.StatusBadRequest, KindMalformed.String(), message)
}

// FromError maps a kinded error to the matching HTTP status
func FromError(module config.Module, c fiber.Ctx, err error) error {
	kind := KindOf(err)
	status := fiber.StatusInternalServerError
	switch kind {
	case KindMalformed:
		status = fiber.StatusBadRequest
	case KindNotFound:
		status = fiber.StatusNotFound
	case KindUnavailable:
		status = fiber.StatusBadGateway
	}
	return WriteError(module, c, status, kind.String(), err.Error())
}

// InternalError writes a 500 with the underlying error message
func InternalError(module config.Module, c fiber.Ctx, err error) error {
	return WriteError(module, c, fiber.StatusInternalServerError, "internal", err.Error())
}

// Success writes a standardized JSON success response
func Success(module config.Module, c fiber.Ctx, response SuccessMessage) error {
	return c.Status(fiber.StatusOK).JSON(response)
}
