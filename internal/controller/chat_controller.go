package controller

import (
	"bufio"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/cherr"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	GetStreamIds(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.SendMessage)
	h.Get("history", c.GetHistory)
	h.Get(":id/streams", c.GetStreamIds)
	h.Get(":id/messages", c.GetMessages)
	h.Delete(":id", c.Delete)
}

// SendMessage runs the chat pipeline and streams the generation back as
// server-sent events. The response body stays open until the terminal done
// event has been written and the assistant message persisted.
func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userId, err := authenticatedUser(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return cherr.Wrap(cherr.BadRequestAPI, "Invalid request body", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	chatStream, err := c.chatService.SendMessage(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Stream-Id", chatStream.StreamId.String())

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// A write error means the client hung up. Disconnect discards the
		// remaining frames while the generation still completes and persists.
		_ = stream.NewSSEEncoder(w).EncodeAll(chatStream.Events, chatStream.Disconnect)
	}))
	return nil
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	userId, err := authenticatedUser(ctx)
	if err != nil {
		return err
	}

	limit := ctx.QueryInt("limit", 0)
	startingAfter, err := cursorParam(ctx, "starting_after")
	if err != nil {
		return err
	}
	endingBefore, err := cursorParam(ctx, "ending_before")
	if err != nil {
		return err
	}

	res, err := c.chatService.GetHistory(ctx.Context(), userId, limit, startingAfter, endingBefore)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *chatController) GetMessages(ctx *fiber.Ctx) error {
	userId, err := authenticatedUser(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.chatService.GetMessages(ctx.Context(), userId, chatId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}

func (c *chatController) GetStreamIds(ctx *fiber.Ctx) error {
	userId, err := authenticatedUser(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.chatService.GetStreamIds(ctx.Context(), userId, chatId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get streams", res))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	userId, err := authenticatedUser(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.chatService.DeleteChat(ctx.Context(), userId, chatId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete chat", nil))
}

func authenticatedUser(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, cherr.New(cherr.UnauthorizedChat, "Missing token")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, cherr.Wrap(cherr.UnauthorizedChat, "Invalid token subject", err)
	}
	return userId, nil
}

func uuidParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, cherr.Wrap(cherr.BadRequestAPI, "Invalid "+name+" parameter", err)
	}
	return id, nil
}

func cursorParam(ctx *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestAPI, "Invalid "+name+" cursor", err)
	}
	return &id, nil
}
