package controller

import (
	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/service"
	"codepilot-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type IGenerationController interface {
	RegisterRoutes(r fiber.Router, protected, configured fiber.Handler)
	Build(ctx *fiber.Ctx) error
	Debug(ctx *fiber.Ctx) error
	Image(ctx *fiber.Ctx) error
}

type generationController struct {
	service service.IGenerationService
}

func NewGenerationController(service service.IGenerationService) IGenerationController {
	return &generationController{service: service}
}

// RegisterRoutes mounts the three one-shot panes. Image generation has its own
// provider, so only the text panes sit behind the configured check.
func (c *generationController) RegisterRoutes(r fiber.Router, protected, configured fiber.Handler) {
	r.Post("/build", protected, configured, c.Build)
	r.Post("/debug", protected, configured, c.Debug)
	r.Post("/image", protected, c.Image)
}

func parseAndValidate(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func (c *generationController) Build(ctx *fiber.Ctx) error {
	var req dto.BuildRequest
	if err := parseAndValidate(ctx, &req); err != nil {
		return serverutils.Fail(ctx, err)
	}

	res, err := c.service.Build(ctx.UserContext(), &req)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Code generated", res))
}

func (c *generationController) Debug(ctx *fiber.Ctx) error {
	var req dto.DebugRequest
	if err := parseAndValidate(ctx, &req); err != nil {
		return serverutils.Fail(ctx, err)
	}

	res, err := c.service.Debug(ctx.UserContext(), &req)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Debug analysis", res))
}

func (c *generationController) Image(ctx *fiber.Ctx) error {
	var req dto.ImageRequest
	if err := parseAndValidate(ctx, &req); err != nil {
		return serverutils.Fail(ctx, err)
	}

	res, err := c.service.GenerateImage(ctx.UserContext(), &req)
	if err != nil {
		return serverutils.Fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Images generated", res))
}
