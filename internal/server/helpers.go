package server

import (
	"errors"
	"log/slog"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondWithError writes err as {error, code} with the status its code maps to.
// Errors that are not AppErrors are reported as internal without leaking their text.
func respondWithError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	status := statusForCode(appErr.Code)
	if status >= fiber.StatusInternalServerError {
		observability.GlobalLogger.ErrorContext(c.UserContext(), "request error",
			slog.String("code", appErr.Code),
			slog.String("error", appErr.Error()),
		)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = respondWithError(c, models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}
