package controller

import (
	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/service"
	"codepilot-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router, protected fiber.Handler)
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
	ChangePassword(ctx *fiber.Ctx) error
	DeleteAccount(ctx *fiber.Ctx) error
	GetPreferences(ctx *fiber.Ctx) error
	UpdatePreferences(ctx *fiber.Ctx) error
}

type userController struct {
	service     service.IUserService
	preferences service.IPreferenceService
}

func NewUserController(service service.IUserService, preferences service.IPreferenceService) IUserController {
	return &userController{service: service, preferences: preferences}
}

func (c *userController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	h := r.Group("/user", protected)
	h.Get("/profile", c.GetProfile)
	h.Put("/profile", c.UpdateProfile)
	h.Put("/password", c.ChangePassword)
	h.Delete("/account", c.DeleteAccount)
	h.Get("/preferences", c.GetPreferences)
	h.Put("/preferences", c.UpdatePreferences)
}

func userUUID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(serverutils.UserID(ctx))
	if err != nil {
		return uuid.Nil, &apperror.Error{Kind: apperror.KindAuth, Message: "Invalid user id"}
	}
	return id, nil
}

func (c *userController) GetProfile(ctx *fiber.Ctx) error {
	userId, err := userUUID(ctx)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}

	res, err := c.service.GetProfile(ctx.UserContext(), userId)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("User profile", res))
}

func (c *userController) UpdateProfile(ctx *fiber.Ctx) error {
	userId, err := userUUID(ctx)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}

	var req dto.UpdateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.Fail(ctx, apperror.Validation("Invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return serverutils.Fail(ctx, err)
	}

	res, err := c.service.UpdateProfile(ctx.UserContext(), userId, &req)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile updated successfully!", res))
}

func (c *userController) ChangePassword(ctx *fiber.Ctx) error {
	userId, err := userUUID(ctx)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}

	var req dto.ChangePasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.Fail(ctx, apperror.Validation("Invalid request body"))
	}

	if err := c.service.ChangePassword(ctx.UserContext(), userId, &req); err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Password updated successfully!", nil))
}

func (c *userController) DeleteAccount(ctx *fiber.Ctx) error {
	userId, err := userUUID(ctx)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}

	if err := c.service.DeleteAccount(ctx.UserContext(), userId); err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Account deleted", nil))
}

func (c *userController) GetPreferences(ctx *fiber.Ctx) error {
	res, err := c.preferences.Get(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Preferences", res))
}

func (c *userController) UpdatePreferences(ctx *fiber.Ctx) error {
	var req dto.PreferencesDTO
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.Fail(ctx, apperror.Validation("Invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return serverutils.Fail(ctx, err)
	}

	res, err := c.preferences.Update(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Preferences updated", res))
}
