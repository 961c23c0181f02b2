package controller

import (
	"codepilot-be/internal/dto"
	"codepilot-be/internal/entity"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IConfigController interface {
	RegisterRoutes(r fiber.Router, protected fiber.Handler)
	Status(ctx *fiber.Ctx) error
	Views(ctx *fiber.Ctx) error
}

type configController struct {
	service service.IConfigService
}

func NewConfigController(service service.IConfigService) IConfigController {
	return &configController{service: service}
}

func (c *configController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	r.Get("/config/status", c.Status)
	r.Get("/views", protected, c.Views)
}

// Status is public so the client can show the configuration banner before login.
func (c *configController) Status(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Status())
}

var viewLabels = map[entity.AppView]string{
	entity.AppViewChat:  "Chat",
	entity.AppViewBuild: "Build",
	entity.AppViewDebug: "Debug",
	entity.AppViewImage: "Image",
}

func (c *configController) Views(ctx *fiber.Ctx) error {
	views := make([]dto.ViewDTO, 0, len(entity.AppViews))
	for _, v := range entity.AppViews {
		views = append(views, dto.ViewDTO{Id: string(v), Label: viewLabels[v]})
	}
	return ctx.JSON(serverutils.SuccessResponse("Views", views))
}
