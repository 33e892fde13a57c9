package favorite

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// FavoriteService представляет сервис для работы с избранными объявлениями
type FavoriteService struct {
	favorites store.FavoriteStore
	listings  store.ListingStore
	auth      fiber.Handler
	timeout   time.Duration
	now       func() time.Time
}

// NewFavoriteService создает новый экземпляр FavoriteService
func NewFavoriteService(favorites store.FavoriteStore, listings store.ListingStore, auth fiber.Handler, timeout time.Duration) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		listings:  listings,
		auth:      auth,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Add добавляет активное объявление в избранное пользователя
func (s *FavoriteService) Add(ctx context.Context, userID uuid.UUID, rawListingID string) (*models.Favorite, error) {
	if rawListingID == "" {
		return nil, apperr.Validation("Listing ID is required")
	}
	listingID, err := uuid.Parse(rawListingID)
	if err != nil {
		return nil, apperr.NotFound("Listing not found or not active")
	}

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unexpected("Failed to check listing", err)
	}
	if listing == nil || listing.Status != models.ListingActive {
		return nil, apperr.NotFound("Listing not found or not active")
	}

	favorite := &models.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: s.now(),
	}
	switch err := s.favorites.AddFavorite(ctx, favorite); {
	case err == nil:
		return favorite, nil
	case errors.Is(err, store.ErrDuplicate):
		return nil, apperr.Conflict("Listing is already in favorites")
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Listing not found or not active")
	default:
		return nil, apperr.Unexpected("Failed to add to favorites", err)
	}
}

// Remove удаляет объявление из избранного
func (s *FavoriteService) Remove(ctx context.Context, userID uuid.UUID, rawListingID string) error {
	listingID, err := uuid.Parse(rawListingID)
	if err != nil {
		return apperr.NotFound("Listing is not in favorites")
	}
	if err := s.favorites.RemoveFavorite(ctx, userID, listingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Listing is not in favorites")
		}
		return apperr.Unexpected("Failed to remove from favorites", err)
	}
	return nil
}

// AddToFavorites добавляет объявление в избранное
func (s *FavoriteService) AddToFavorites(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	var requestData struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return apperr.Validation("Invalid request body")
	}

	ctx, cancel := utils.RequestContext(s.timeout)
	defer cancel()

	favorite, err := s.Add(ctx, userID, requestData.ListingID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      favorite.ID,
		"message": "Listing added to favorites",
	})
}

// RemoveFromFavorites удаляет объявление из избранного
func (s *FavoriteService) RemoveFromFavorites(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	ctx, cancel := utils.RequestContext(s.timeout)
	defer cancel()

	if err := s.Remove(ctx, userID, c.Params("id")); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Listing removed from favorites",
	})
}

// GetFavorites возвращает избранные объявления пользователя
func (s *FavoriteService) GetFavorites(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	// Параметры пагинации
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := utils.RequestContext(s.timeout)
	defer cancel()

	favorites, total, err := s.favorites.ListFavorites(ctx, userID, limit, offset)
	if err != nil {
		return apperr.Unexpected("Failed to load favorites", err)
	}

	return c.JSON(fiber.Map{
		"favorites": favorites,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// CheckFavorite проверяет, находится ли объявление в избранном
func (s *FavoriteService) CheckFavorite(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.JSON(fiber.Map{"is_favorite": false})
	}

	ctx, cancel := utils.RequestContext(s.timeout)
	defer cancel()

	isFavorite, err := s.favorites.IsFavorite(ctx, userID, listingID)
	if err != nil {
		return apperr.Unexpected("Failed to check favorites", err)
	}

	return c.JSON(fiber.Map{"is_favorite": isFavorite})
}
