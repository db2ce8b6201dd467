package serverutils

import (
	"errors"

	"lexchat-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors escaping the controllers into the
// shared response envelope. The limit gate gets its dedicated 429 payload so
// clients can render the blocking banner.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var limitErr *dto.LimitExceededError
		if errors.As(err, &limitErr) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(dto.LimitExceededResponse{
				Success:   false,
				Code:      fiber.StatusTooManyRequests,
				Message:   limitErr.Error(),
				ErrorType: "LIMIT_EXCEEDED",
				Data: dto.LimitExceededData{
					Limit:      limitErr.Limit,
					Used:       limitErr.Used,
					ResetAfter: limitErr.ResetAfter,
					ShowSignIn: true,
				},
			})
		}

		if errors.Is(err, dto.ErrTurnInFlight) {
			return ctx.Status(fiber.StatusConflict).
				JSON(ErrorResponse(fiber.StatusConflict, err.Error()))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}
}
