package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/voice"
)

// ErrorHandler maps domain errors to gateway status codes. The body
// carries the same text the CLI would show.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": domain.Describe(err),
		})
	}
}

func StatusFor(err error) int {
	var (
		fe          *fiber.Error
		up          *domain.UpstreamError
		network     *domain.NetworkError
		unsupported *domain.UnsupportedFileError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &unsupported):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, voice.ErrNotOpen):
		return fiber.StatusConflict
	case domain.IsDeviceError(err):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &network):
		return fiber.StatusBadGateway
	case errors.As(err, &up):
		if up.StatusCode == fiber.StatusNotFound {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadGateway
	case domain.IsCancelled(err):
		// nginx's "client closed request"
		return 499
	default:
		return fiber.StatusInternalServerError
	}
}
