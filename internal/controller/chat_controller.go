package controller

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/entity"
	"codepilot-be/internal/pkg/logger"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/service"
	internalWS "codepilot-be/internal/websocket"
	"codepilot-be/pkg/apperror"
	"codepilot-be/pkg/chatstore"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, protected, configured fiber.Handler)
	ListSessions(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SelectSession(ctx *fiber.Ctx) error
	NewChat(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	Connect(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewChatController(service service.IChatService, hub *internalWS.Hub, log logger.ILogger) IChatController {
	return &chatController{service: service, hub: hub, logger: log}
}

func (c *chatController) RegisterRoutes(r fiber.Router, protected, configured fiber.Handler) {
	h := r.Group("/chat", protected)
	h.Get("/sessions", c.ListSessions)
	h.Get("/sessions/:id", c.GetSession)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Post("/sessions/:id/select", c.SelectSession)
	h.Post("/new", c.NewChat)
	h.Post("/messages", configured, c.SendMessage)
	h.Get("/ws", c.Connect)
}

func chatFail(ctx *fiber.Ctx, err error) error {
	if errors.Is(err, chatstore.ErrSessionNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, err.Error()))
	}
	return serverutils.Fail(ctx, err)
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	res, err := c.service.ListSessions(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return chatFail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat sessions", res))
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return chatFail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id")); err != nil {
		return chatFail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Chat session deleted", nil))
}

func (c *chatController) SelectSession(ctx *fiber.Ctx) error {
	res, err := c.service.SelectSession(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return chatFail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session selected", res))
}

func (c *chatController) NewChat(ctx *fiber.Ctx) error {
	if err := c.service.NewChat(ctx.UserContext(), serverutils.UserID(ctx)); err != nil {
		return chatFail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("New chat started", nil))
}

// SendMessage streams session snapshots as server-sent events and ends with
// a "done" event carrying the final session. Clients that pass ?stream=false
// get only the final session as a regular JSON response.
func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.Fail(ctx, apperror.Validation("Invalid request body"))
	}
	if strings.TrimSpace(req.Text) == "" {
		return serverutils.Fail(ctx, service.ErrEmptyMessage)
	}

	userID := serverutils.UserID(ctx)
	reqCtx := ctx.UserContext()

	if req.SessionId != "" {
		if _, err := c.service.GetSession(reqCtx, userID, req.SessionId); err != nil {
			return chatFail(ctx, err)
		}
	}

	if !ctx.QueryBool("stream", true) {
		sess, err := c.service.SendMessage(reqCtx, userID, req.SessionId, req.Text, nil)
		if err != nil {
			return chatFail(ctx, err)
		}
		return ctx.JSON(serverutils.SuccessResponse("Message sent", sess))
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The fiber ctx is released once the handler returns, so the writer only
	// touches values captured above.
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		sse := &sseWriter{w: w}
		sess, err := c.service.SendMessage(reqCtx, userID, req.SessionId, req.Text,
			service.ChatSinkFunc(func(session *entity.ChatSession) {
				sse.send(dto.ChatEventSession, dto.ChatUpdateEvent{Type: dto.ChatEventSession, Session: session})
			}))
		if err != nil {
			c.logger.Warn("Chat", "Send failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			sse.send("error", fiber.Map{"message": err.Error()})
			return
		}
		sse.send(dto.ChatEventDone, dto.ChatUpdateEvent{Type: dto.ChatEventDone, Session: sess})
	})
	return nil
}

// sseWriter stops writing after the first failed flush; the send itself
// keeps running so the reply is still persisted.
type sseWriter struct {
	w    *bufio.Writer
	gone bool
}

func (s *sseWriter) send(event string, payload interface{}) {
	if s.gone {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	if err := s.w.Flush(); err != nil {
		s.gone = true
	}
}

// Connect upgrades to a websocket that receives every session update of
// the user, from any device.
func (c *chatController) Connect(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	userID := serverutils.UserID(ctx)
	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("Chat", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(c.hub, conn, userID)
		c.logger.Info("Chat", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(ctx)
}
