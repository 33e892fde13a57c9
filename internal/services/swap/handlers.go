package swap

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// Handler HTTP-обработчики запросов на обмен
type Handler struct {
	workflow *Workflow
	auth     fiber.Handler
	timeout  time.Duration
}

// NewHandler создает обработчики поверх workflow
func NewHandler(workflow *Workflow, auth fiber.Handler, timeout time.Duration) *Handler {
	return &Handler{workflow: workflow, auth: auth, timeout: timeout}
}

// CreateRequest создает запрос на покупку или обмен
func (h *Handler) CreateRequest(c fiber.Ctx) error {
	senderID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	var payload struct {
		TargetListingID  string `json:"target_listing_id"`
		RequestType      string `json:"request_type"`
		OfferedListingID string `json:"offered_listing_id"`
		Message          string `json:"message"`
	}
	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return apperr.Validation("Invalid request body")
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	request, err := h.workflow.Create(ctx, CreateInput{
		SenderID:         senderID,
		TargetListingID:  payload.TargetListingID,
		RequestType:      payload.RequestType,
		OfferedListingID: payload.OfferedListingID,
		Message:          payload.Message,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"request": request,
	})
}

// GetReceived возвращает входящие запросы
func (h *Handler) GetReceived(c fiber.Ctx) error {
	return h.list(c, models.RoleReceiver)
}

// GetSent возвращает отправленные запросы
func (h *Handler) GetSent(c fiber.Ctx) error {
	return h.list(c, models.RoleSender)
}

func (h *Handler) list(c fiber.Ctx, role models.Role) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	requests, err := h.workflow.List(ctx, userID, role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"requests": requests,
		"total":    len(requests),
	})
}

// AcceptRequest принимает запрос и раскрывает контакты получателя
func (h *Handler) AcceptRequest(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	var payload struct {
		ContactInfo *models.ContactInfo `json:"contact_info"`
	}
	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return apperr.Validation("Invalid request body")
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	request, err := h.workflow.Accept(ctx, requestID, userID, payload.ContactInfo)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"request": request,
	})
}

// RejectRequest отклоняет запрос
func (h *Handler) RejectRequest(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	request, err := h.workflow.Reject(ctx, requestID, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"request": request,
	})
}

// CancelRequest отменяет собственный ожидающий запрос
func (h *Handler) CancelRequest(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	requestID, err := requestIDParam(c)
	if err != nil {
		return err
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	if err := h.workflow.Cancel(ctx, requestID, userID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Swap request cancelled",
	})
}

// requestIDParam разбирает :id; неверный формат равносилен отсутствию запроса
func requestIDParam(c fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("Swap request not found")
	}
	return id, nil
}
