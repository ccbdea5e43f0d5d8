/**
 * @description
 * JSON envelope helpers shared by every handler:
 * {success, data, pagination?, error?}.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/licitabot/backend/internal/breaker"
	"github.com/licitabot/backend/internal/services"
)

// Envelope is the wire convention of the query surface.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries a machine-readable code next to the message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

func fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(Envelope{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

// failFromError maps the service error taxonomy to HTTP codes: validation
// errors are 400, an open breaker is 503 with its own code so callers can
// short-circuit, everything else is a 500.
func failFromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return fail(c, fiber.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, services.ErrProfileNotFound):
		return fail(c, fiber.StatusNotFound, "profile_not_found", err.Error())
	case errors.Is(err, breaker.ErrOpen):
		return fail(c, fiber.StatusServiceUnavailable, "circuit_open", err.Error())
	default:
		return fail(c, fiber.StatusInternalServerError, "internal", "internal error")
	}
}
