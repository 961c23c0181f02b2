package serverutils

import (
	"errors"
	"fmt"

	"codepilot-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware recovers panics and turns errors that handlers
// return unhandled into a BaseResponse.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("HTTP", "Recovered from panic", map[string]interface{}{
					"path":  ctx.Path(),
					"panic": fmt.Sprint(r),
				})
				err = ctx.Status(fiber.StatusInternalServerError).
					JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
			}
		}()

		err = ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		code := StatusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

// RequireConfigured short-circuits with 503 while check reports an error,
// so AI routes fail before touching any state.
func RequireConfigured(check func() error) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := check(); err != nil {
			return ctx.Status(fiber.StatusServiceUnavailable).
				JSON(ErrorResponse(fiber.StatusServiceUnavailable, err.Error()))
		}
		return ctx.Next()
	}
}
