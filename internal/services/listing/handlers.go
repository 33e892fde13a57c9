package listing

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	attrPrefix   = "attr."
)

// Handler HTTP-обработчики объявлений
type Handler struct {
	service *ListingService
	auth    fiber.Handler
	timeout time.Duration
}

// NewHandler создает обработчики объявлений
func NewHandler(service *ListingService, auth fiber.Handler, timeout time.Duration) *Handler {
	return &Handler{service: service, auth: auth, timeout: timeout}
}

// CreateListing создает новое объявление
func (h *Handler) CreateListing(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	var input ListingInput
	if err := c.Bind().Body(&input); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return apperr.Validation("Invalid request body")
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	listing, err := h.service.Create(ctx, userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"listing": listing,
	})
}

// GetListing возвращает объявление по ID
func (h *Handler) GetListing(c fiber.Ctx) error {
	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	listing, err := h.service.Get(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"listing": listing})
}

// GetPublicListings возвращает каталог объявлений с фильтрами
func (h *Handler) GetPublicListings(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	listings, total, err := h.service.Browse(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// GetMyListings возвращает объявления текущего пользователя в любом статусе
func (h *Handler) GetMyListings(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	limit, offset, err := parsePage(c)
	if err != nil {
		return err
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	listings, total, err := h.service.Browse(ctx, models.ListingFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"listings": listings, "total": total})
}

// UpdateListing обновляет объявление владельца
func (h *Handler) UpdateListing(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	var input ListingInput
	if err := c.Bind().Body(&input); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return apperr.Validation("Invalid request body")
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	listing, err := h.service.Update(ctx, c.Params("id"), userID, input)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "listing": listing})
}

// DeleteListing удаляет объявление владельца
func (h *Handler) DeleteListing(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	ctx, cancel := utils.RequestContext(h.timeout)
	defer cancel()

	if err := h.service.Delete(ctx, c.Params("id"), userID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Listing deleted successfully",
	})
}

// parseFilter разбирает параметры каталога; по умолчанию только активные
func parseFilter(c fiber.Ctx) (models.ListingFilter, error) {
	limit, offset, err := parsePage(c)
	if err != nil {
		return models.ListingFilter{}, err
	}

	filter := models.ListingFilter{
		Status:    models.ListingActive,
		Condition: c.Query("condition"),
		Location:  c.Query("location"),
		Limit:     limit,
		Offset:    offset,
	}

	switch status := c.Query("status"); status {
	case "":
	case "all":
		filter.Status = ""
	case string(models.ListingActive), string(models.ListingReserved):
		filter.Status = models.ListingStatus(status)
	default:
		return filter, apperr.Validation("Invalid status filter")
	}

	if filter.MinPrice, err = priceQuery(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = priceQuery(c, "max_price"); err != nil {
		return filter, err
	}

	// Атрибуты передаются как attr.<ключ>=<значение>
	for key, value := range c.Queries() {
		if !strings.HasPrefix(key, attrPrefix) || value == "" {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, attrPrefix))
		if name == "" {
			continue
		}
		if filter.Attributes == nil {
			filter.Attributes = make(map[string]string)
		}
		filter.Attributes[name] = value
	}

	return filter, nil
}

func priceQuery(c fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperr.Validation("Invalid " + name + " parameter")
	}
	return &v, nil
}

func parsePage(c fiber.Ctx) (int, int, error) {
	limit, offset := defaultLimit, 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return 0, 0, apperr.Validation("Invalid limit parameter")
		}
		limit = min(v, maxLimit)
	}
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, apperr.Validation("Invalid offset parameter")
		}
		offset = v
	}
	return limit, offset, nil
}
