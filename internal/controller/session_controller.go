package controller

import (
	"strings"

	"lexchat-be/internal/pkg/serverutils"
	"lexchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	CaseTypes(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
}

func NewSessionController(svc service.ISessionService) ISessionController {
	return &sessionController{service: svc}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions", serverutils.JwtMiddleware)
	h.Get("/", c.List)
	h.Get("/case-types", c.CaseTypes)
	h.Post("/refresh", c.Refresh)
	h.Get("/:id", c.Get)
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	userId := serverutils.Identity(ctx)

	// Optional comma-separated case-type filter, e.g. ?case_types=civil_law,tax_law
	if raw := ctx.Query("case_types"); raw != "" {
		sessions := c.service.FilterByCaseTypes(userId, strings.Split(raw, ","))
		return ctx.JSON(serverutils.SuccessResponse("Filtered sessions", sessions))
	}

	return ctx.JSON(serverutils.SuccessResponse("Sessions", c.service.Sessions(userId)))
}

func (c *sessionController) Get(ctx *fiber.Ctx) error {
	userId := serverutils.Identity(ctx)

	session, ok := c.service.GetByID(userId, ctx.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return ctx.JSON(serverutils.SuccessResponse("Session", session))
}

func (c *sessionController) Refresh(ctx *fiber.Ctx) error {
	userId := serverutils.Identity(ctx)
	c.service.Refresh(ctx.Context(), userId)
	return ctx.JSON(serverutils.SuccessResponse("Sessions refreshed", c.service.Sessions(userId)))
}

func (c *sessionController) CaseTypes(ctx *fiber.Ctx) error {
	userId := serverutils.Identity(ctx)
	return ctx.JSON(serverutils.SuccessResponse("Available case types", c.service.AvailableCaseTypes(userId)))
}
