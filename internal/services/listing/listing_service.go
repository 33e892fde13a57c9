package listing

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

// RequestImage представляет структуру изображения в запросе создания объявления
type RequestImage struct {
	URL                string          `json:"url" validate:"required,url"`
	PublicID           string          `json:"public_id"`
	IsMain             bool            `json:"is_main"`
	CloudinaryResponse json.RawMessage `json:"cloudinary_response,omitempty"`
}

// ListingInput поля объявления, задаваемые владельцем
type ListingInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	Price       float64           `json:"price" validate:"gt=0"`
	Condition   string            `json:"condition" validate:"required,oneof=new excellent good used needs_repair damaged"`
	Location    string            `json:"location" validate:"required,max=200"`
	Attributes  map[string]string `json:"attributes"`
	Images      []RequestImage    `json:"images" validate:"required,min=1,max=20,dive"`
}

// ListingService представляет сервис для работы с объявлениями
type ListingService struct {
	listings store.ListingStore
	validate *validator.Validate
	now      func() time.Time
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(listings store.ListingStore) *ListingService {
	return &ListingService{
		listings: listings,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create создает активное объявление владельца
func (s *ListingService) Create(ctx context.Context, ownerID uuid.UUID, in ListingInput) (*models.Listing, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}

	now := s.now()
	listing := &models.Listing{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Condition:   in.Condition,
		Location:    in.Location,
		Attributes:  normalizeAttributes(in.Attributes),
		Images:      buildImages(in.Images),
		Status:      models.ListingActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.listings.CreateListing(ctx, listing); err != nil {
		return nil, apperr.Unexpected("Failed to save listing", err)
	}
	return listing, nil
}

// Get возвращает объявление по ID
func (s *ListingService) Get(ctx context.Context, rawID string) (*models.Listing, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("Listing not found")
	}
	listing, err := s.listings.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, apperr.Unexpected("Failed to load listing", err)
	}
	return listing, nil
}

// Browse возвращает страницу объявлений по фильтру
func (s *ListingService) Browse(ctx context.Context, f models.ListingFilter) ([]models.Listing, int, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, apperr.Validation("min_price cannot be greater than max_price")
	}
	listings, total, err := s.listings.ListListings(ctx, f)
	if err != nil {
		return nil, 0, apperr.Unexpected("Failed to load listings", err)
	}
	return listings, total, nil
}

// owned читает объявление и проверяет владельца
func (s *ListingService) owned(ctx context.Context, rawID string, userID uuid.UUID, denied string) (*models.Listing, error) {
	listing, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != userID {
		return nil, apperr.Authorization(denied)
	}
	return listing, nil
}

// Update меняет поля объявления; статус меняется только принятием запроса
func (s *ListingService) Update(ctx context.Context, rawID string, userID uuid.UUID, in ListingInput) (*models.Listing, error) {
	listing, err := s.owned(ctx, rawID, userID, "You can only edit your own listings")
	if err != nil {
		return nil, err
	}
	if err := s.check(&in); err != nil {
		return nil, err
	}

	listing.Title = in.Title
	listing.Description = in.Description
	listing.Price = in.Price
	listing.Condition = in.Condition
	listing.Location = in.Location
	listing.Attributes = normalizeAttributes(in.Attributes)
	listing.Images = buildImages(in.Images)
	listing.UpdatedAt = s.now()

	if err := s.listings.UpdateListing(ctx, listing); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, apperr.Unexpected("Failed to update listing", err)
	}
	return s.Get(ctx, listing.ID.String())
}

// Delete удаляет объявление владельца; зарезервированное удалить нельзя
func (s *ListingService) Delete(ctx context.Context, rawID string, userID uuid.UUID) error {
	listing, err := s.owned(ctx, rawID, userID, "You can only delete your own listings")
	if err != nil {
		return err
	}

	err = s.listings.DeleteListing(ctx, listing.ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Listing not found")
	case errors.Is(err, store.ErrListingUnavailable):
		return apperr.Conflict("Cannot delete a reserved listing")
	default:
		return apperr.Unexpected("Failed to delete listing", err)
	}
}

func (s *ListingService) check(in *ListingInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Condition = strings.TrimSpace(in.Condition)

	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("Invalid listing data")
	}
	switch fe := verrs[0]; fe.Field() {
	case "Title":
		return apperr.Validation("Title is required")
	case "Price":
		return apperr.Validation("Price must be greater than zero")
	case "Condition":
		return apperr.Validation("Invalid condition")
	case "Location":
		return apperr.Validation("Location is required")
	case "Images":
		return apperr.Validation("Add at least one image")
	default:
		return apperr.Validation("Invalid field: " + strings.ToLower(fe.Field()))
	}
}

// buildImages переносит изображения запроса; первое основное, если не указано иное
func buildImages(in []RequestImage) []models.ListingImage {
	hasMain := false
	for _, img := range in {
		hasMain = hasMain || img.IsMain
	}

	images := make([]models.ListingImage, 0, len(in))
	for i, img := range in {
		image := models.ListingImage{
			URL:      img.URL,
			PublicID: img.PublicID,
			IsMain:   img.IsMain || (!hasMain && i == 0),
			Position: i,
		}

		// Обрабатываем данные из Cloudinary
		if len(img.CloudinaryResponse) > 0 {
			var cr models.CloudinaryResponse
			if err := json.Unmarshal(img.CloudinaryResponse, &cr); err != nil {
				log.Printf("Ошибка парсинга ответа Cloudinary: %v", err)
			} else {
				image.PreviewURL = models.ExtractPreviewURL(cr)
				if image.PublicID == "" {
					image.PublicID = cr.PublicID
				}
			}
		}
		if image.PreviewURL == "" {
			image.PreviewURL = models.PreviewURL(img.URL)
		}

		images = append(images, image)
	}
	return images
}

// normalizeAttributes убирает пустые ключи и приводит ключи к нижнему регистру
func normalizeAttributes(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
