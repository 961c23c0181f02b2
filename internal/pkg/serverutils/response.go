package serverutils

import (
	"codepilot-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) *BaseResponse[T] {
	return &BaseResponse[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) *BaseResponse[any] {
	return &BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// StatusFor maps an application error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindParse:
		return fiber.StatusBadRequest
	case apperror.KindAuth:
		return fiber.StatusUnauthorized
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindConfiguration:
		return fiber.StatusServiceUnavailable
	case apperror.KindNetwork:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Fail writes err as a BaseResponse with the status StatusFor picks.
func Fail(ctx *fiber.Ctx, err error) error {
	code := StatusFor(err)
	return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
}
