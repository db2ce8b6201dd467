package controller

import (
	"lexchat-be/internal/pkg/serverutils"
	"lexchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Entitlement(ctx *fiber.Ctx) error
}

type userController struct {
	service service.IUserService
}

func NewUserController(svc service.IUserService) IUserController {
	return &userController{service: svc}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/users", serverutils.JwtMiddleware)
	h.Post("/register", c.Register)
	h.Get("/me/entitlement", c.Entitlement)
}

func (c *userController) Register(ctx *fiber.Ctx) error {
	userId := serverutils.Identity(ctx)
	if err := c.service.Register(ctx.Context(), userId); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("User registered", fiber.Map{"user_id": userId}))
}

func (c *userController) Entitlement(ctx *fiber.Ctx) error {
	userId := serverutils.Identity(ctx)
	return ctx.JSON(serverutils.SuccessResponse("Entitlement", c.service.Entitlement(userId)))
}
