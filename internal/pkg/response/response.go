package response

import (
	"errors"

	"ekrini-reservation/internal/pkg/errs"

	"github.com/gofiber/fiber/v2"
)

// Body is the standardized JSON envelope (Express parity: { success, message, data }).
type Body struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Body{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Body{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SuccessList sends a 200 OK response with a count alongside the data slice.
func SuccessList(c *fiber.Ctx, count int, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Body{
		Success: true,
		Count:   &count,
		Data:    data,
	})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int) error {
	return c.Status(statusCode).JSON(Body{
		Success: false,
		Message: message,
	})
}

// FromError maps a service error to the HTTP status implied by its kind.
func FromError(c *fiber.Ctx, err error, fallbackMessage string) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return Error(c, err.Error(), fiber.StatusNotFound)
	case errors.Is(err, errs.ErrAlreadyExists):
		return Error(c, err.Error(), fiber.StatusBadRequest)
	case errors.Is(err, errs.ErrValidation):
		return Error(c, err.Error(), fiber.StatusBadRequest)
	case errors.Is(err, errs.ErrUnavailable):
		return Error(c, err.Error(), fiber.StatusConflict)
	case errors.Is(err, errs.ErrDependency):
		return Error(c, err.Error(), fiber.StatusBadGateway)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(Body{
			Success: false,
			Message: fallbackMessage,
			Error:   err.Error(),
		})
	}
}
