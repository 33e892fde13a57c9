package auth

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/identity"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// initDataTTL срок годности initData от Telegram
const initDataTTL = 24 * time.Hour

// NameCache сбрасывает кешированное отображаемое имя
type NameCache interface {
	Forget(id uuid.UUID)
}

// AuthService – структура для обработки авторизации
type AuthService struct {
	provider *identity.Provider
	users    store.UserStore
	names    NameCache
	auth     fiber.Handler
	timeout  time.Duration
	validate *validator.Validate

	// parseInitData проверяет подпись и разбирает initData
	parseInitData func(raw string) (initdata.InitData, error)
}

// NewAuthService – конструктор AuthService
func NewAuthService(botToken string, provider *identity.Provider, users store.UserStore, names NameCache, auth fiber.Handler, timeout time.Duration) *AuthService {
	return &AuthService{
		provider: provider,
		users:    users,
		names:    names,
		auth:     auth,
		timeout:  timeout,
		validate: validator.New(),
		parseInitData: func(raw string) (initdata.InitData, error) {
			if err := initdata.Validate(raw, botToken, initDataTTL); err != nil {
				return initdata.InitData{}, err
			}
			return initdata.Parse(raw)
		},
	}
}

// TelegramAuthHandler проверяет initData, создает или обновляет пользователя и возвращает JWT
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil || payload.InitData == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	// Проверяем initData
	data, err := s.parseInitData(payload.InitData)
	if err != nil {
		log.Printf("Ошибка проверки initData: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}
	if data.User.ID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Telegram user is missing"})
	}

	ctx, cancel := utils.RequestContext(s.timeout)
	defer cancel()

	user, err := s.users.UpsertTelegramUser(ctx, models.TelegramProfile{
		TelegramID: data.User.ID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
		PhotoURL:   data.User.PhotoURL,
	})
	if err != nil {
		return apperr.Unexpected("Failed to save user", err)
	}
	if user.Disabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Your account has been suspended"})
	}
	s.names.Forget(user.ID)

	// Генерируем JWT
	token, err := s.provider.IssueToken(user.ID)
	if err != nil {
		return apperr.Unexpected("Failed to generate JWT", err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// GetProfile возвращает профиль текущего пользователя
func (s *AuthService) GetProfile(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}
	return c.JSON(fiber.Map{"user": user})
}

// UpdateProfile меняет контактный email пользователя
func (s *AuthService) UpdateProfile(c fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	var payload struct {
		Email string `json:"email" validate:"required,email,max=254"`
	}
	if err := c.Bind().Body(&payload); err != nil {
		return apperr.Validation("Invalid request body")
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if err := s.validate.Struct(&payload); err != nil {
		return apperr.Validation("A valid email is required")
	}

	ctx, cancel := utils.RequestContext(s.timeout)
	defer cancel()

	user, err := s.users.UpdateUserEmail(ctx, userID, payload.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		return apperr.Unexpected("Failed to update profile", err)
	}
	s.names.Forget(userID)

	return c.JSON(fiber.Map{"success": true, "user": user})
}
