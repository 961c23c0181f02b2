package controller

import (
	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/service"
	"codepilot-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router, protected fiber.Handler)
	Signup(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{service: service}
}

// RegisterRoutes mounts signup and login both at the root and under /auth;
// the web client calls the short paths.
func (c *authController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	r.Post("/signup", c.Signup)
	r.Post("/login", c.Login)

	h := r.Group("/auth")
	h.Post("/signup", c.Signup)
	h.Post("/login", c.Login)
	h.Post("/logout", protected, c.Logout)
}

// authError keeps the {error} body the auth endpoints have always returned.
// Client mistakes are 400, everything else 500.
func authError(ctx *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindAuth, apperror.KindConflict, apperror.KindParse:
		status = fiber.StatusBadRequest
	}
	return ctx.Status(status).JSON(dto.AuthErrorResponse{Error: err.Error()})
}

func (c *authController) Signup(ctx *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return authError(ctx, apperror.Validation("Invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return authError(ctx, err)
	}

	res, err := c.service.Signup(ctx.UserContext(), &req)
	if err != nil {
		return authError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return authError(ctx, apperror.Validation("Invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return authError(ctx, err)
	}

	res, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return authError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	if err := c.service.Logout(ctx.UserContext(), serverutils.UserID(ctx)); err != nil {
		return authError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"message": "Logged out"})
}
