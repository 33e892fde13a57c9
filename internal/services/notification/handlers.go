package notification

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// Handler HTTP-обработчики уведомлений
type Handler struct {
	service *Service
	auth    fiber.Handler
	timeout time.Duration
}

// NewHandler создает обработчики поверх сервиса
func NewHandler(service *Service, auth fiber.Handler, timeout time.Duration) *Handler {
	return &Handler{service: service, auth: auth, timeout: timeout}
}

// GetCounts возвращает счетчики уведомлений
func (h *Handler) GetCounts(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	counts, err := h.service.Counts(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(counts)
}

// MarkMessagesRead отмечает сообщения переписки прочитанными
func (h *Handler) MarkMessagesRead(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.NotFound("Conversation not found")
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	n, err := h.service.MarkMessagesRead(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "updated": n})
}

// MarkRequestViewed отмечает запрос просмотренным
func (h *Handler) MarkRequestViewed(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.NotFound("Swap request not found")
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	role, err := h.service.MarkRequestViewed(ctx, requestID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "role": role})
}

// MarkAllReceivedViewed отмечает все входящие запросы просмотренными
func (h *Handler) MarkAllReceivedViewed(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	n, err := h.service.MarkAllReceivedViewed(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "updated": n})
}

// MarkAllSentViewed отмечает все отправленные запросы просмотренными
func (h *Handler) MarkAllSentViewed(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	n, err := h.service.MarkAllSentViewed(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "updated": n})
}
