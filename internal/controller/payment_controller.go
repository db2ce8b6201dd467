package controller

import (
	"lexchat-be/internal/dto"
	"lexchat-be/internal/pkg/serverutils"
	"lexchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	Checkout(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
}

func NewPaymentController(svc service.IPaymentService) IPaymentController {
	return &paymentController{service: svc}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payment")
	h.Post("/midtrans/notification", c.Webhook)
	h.Post("/checkout", serverutils.JwtMiddleware, c.Checkout)
}

func (c *paymentController) Checkout(ctx *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateCheckout(ctx.Context(), serverutils.Identity(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Checkout created", res))
}

func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	var req dto.MidtransWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid notification body")
	}

	if err := c.service.HandleNotification(ctx.Context(), &req); err != nil {
		// Return 500 so Midtrans will retry the notification
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}
	return ctx.SendStatus(fiber.StatusOK)
}
