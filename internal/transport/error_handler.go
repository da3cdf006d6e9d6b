package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clinicore/notify-engine/internal/domain"
)

// ErrorHandler maps domain errors to status codes and a {error, kind} body so
// callers can classify failures without parsing messages.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		kind := "internal"

		switch {
		case errors.Is(err, domain.ErrValidation):
			code = fiber.StatusBadRequest
			kind = "validation"
		case errors.Is(err, domain.ErrNotFound):
			code = fiber.StatusNotFound
			kind = "not_found"
		case errors.Is(err, domain.ErrAccessDenied):
			code = fiber.StatusForbidden
			kind = "access_denied"
		case errors.Is(err, domain.ErrConflict):
			code = fiber.StatusConflict
			kind = "conflict"
		default:
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				kind = kindForStatus(e.Code)
			}
		}

		logger.Error("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"kind":  kind,
		})
	}
}

func kindForStatus(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "validation"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusForbidden:
		return "access_denied"
	case fiber.StatusConflict:
		return "conflict"
	default:
		return "internal"
	}
}
