package chat

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// Handler HTTP-обработчики переписок
type Handler struct {
	service *ChatService
	auth    fiber.Handler
	timeout time.Duration
}

// NewHandler создает обработчики поверх сервиса
func NewHandler(service *ChatService, auth fiber.Handler, timeout time.Duration) *Handler {
	return &Handler{service: service, auth: auth, timeout: timeout}
}

// CreateConversation открывает переписку пары или дописывает в существующую
func (h *Handler) CreateConversation(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	var payload struct {
		Participants []string `json:"participants"`
		ListingID    string   `json:"listing_id"`
		ListingName  string   `json:"listing_name"`
		Message      string   `json:"message"`
	}
	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return apperr.Validation("Invalid request body")
	}

	if len(payload.Participants) != 2 {
		return apperr.Validation("Exactly two participants are required")
	}
	var participants [2]uuid.UUID
	for i, raw := range payload.Participants {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("Invalid participant ID")
		}
		participants[i] = id
	}

	var recipientID uuid.UUID
	switch userID {
	case participants[0]:
		recipientID = participants[1]
	case participants[1]:
		recipientID = participants[0]
	default:
		return apperr.Authorization("You can only start conversations you participate in")
	}

	var listingID *uuid.UUID
	if payload.ListingID != "" {
		id, err := uuid.Parse(payload.ListingID)
		if err != nil {
			return apperr.Validation("Invalid listing ID")
		}
		listingID = &id
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	result, err := h.service.OpenOrAppend(ctx, models.ConversationOpen{
		SenderID:    userID,
		RecipientID: recipientID,
		ListingID:   listingID,
		ListingName: payload.ListingName,
		Text:        payload.Message,
	})
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"conversation_id": result.Conversation.ID,
		"created":         result.Created,
		"conversation":    result.Conversation,
		"message":         result.Message,
	})
}

// GetConversations возвращает переписки пользователя
func (h *Handler) GetConversations(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	since, err := sinceQuery(c)
	if err != nil {
		return err
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	conversations, err := h.service.ListConversations(ctx, userID, since)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// GetMessages возвращает сообщения переписки
func (h *Handler) GetMessages(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	conversationID, err := conversationIDParam(c)
	if err != nil {
		return err
	}
	since, err := sinceQuery(c)
	if err != nil {
		return err
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	page, err := h.service.ListMessages(ctx, conversationID, userID, since)
	if err != nil {
		return err
	}

	return c.JSON(page)
}

// SendMessage отправляет сообщение в переписку
func (h *Handler) SendMessage(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	conversationID, err := conversationIDParam(c)
	if err != nil {
		return err
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return apperr.Validation("Invalid request body")
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	message, err := h.service.SendMessage(ctx, conversationID, userID, payload.Text)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

func conversationIDParam(c fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("Conversation not found")
	}
	return id, nil
}

// sinceQuery разбирает ?since=
func sinceQuery(c fiber.Ctx) (*time.Time, error) {
	return ParseSince(c.Query("since"))
}

// ParseSince принимает RFC3339 (без потери точности) или миллисекунды unix.
// Миллисекунды округляются до конца миллисекунды: сообщение, чей timestamp
// клиент получил в этой форме, повторно не возвращается.
func ParseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(ms).Add(time.Millisecond - time.Nanosecond).UTC()
		return &t, nil
	}
	return nil, apperr.Validation("Invalid since parameter")
}
