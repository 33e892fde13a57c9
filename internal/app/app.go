// Package app собирает HTTP-приложение: middleware, обработку ошибок и маршруты сервисов.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/config"
	"github.com/rajivgeraev/autoswap-api/internal/identity"
	"github.com/rajivgeraev/autoswap-api/internal/mailer"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/services/auth"
	"github.com/rajivgeraev/autoswap-api/internal/services/chat"
	"github.com/rajivgeraev/autoswap-api/internal/services/cloudinary"
	"github.com/rajivgeraev/autoswap-api/internal/services/favorite"
	"github.com/rajivgeraev/autoswap-api/internal/services/listing"
	"github.com/rajivgeraev/autoswap-api/internal/services/notification"
	"github.com/rajivgeraev/autoswap-api/internal/services/report"
	"github.com/rajivgeraev/autoswap-api/internal/services/swap"
	"github.com/rajivgeraev/autoswap-api/internal/store"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// Deps внешние зависимости приложения
type Deps struct {
	Store   store.Store
	Metrics *metrics.Metrics
	Mailer  *mailer.Mailer
}

// pinger хранилище, умеющее проверять соединение
type pinger interface {
	Ping(ctx context.Context) error
}

// New создает Fiber-приложение со всеми маршрутами
func New(cfg *config.Config, deps Deps) (*fiber.App, error) {
	if deps.Store == nil {
		return nil, errors.New("хранилище не задано")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Mailer == nil {
		deps.Mailer = mailer.New(cfg.SMTPConfig)
	}
	timeout := cfg.RequestTimeout

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "AutoSwap API",
		ErrorHandler: errorHandler,
		BodyLimit:    (report.MaxEvidenceFiles + 1) * report.MaxEvidenceSize,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	app.Get("/health", healthHandler(deps.Store))
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	// Идентификация
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	provider := identity.NewProvider(jwtService, deps.Store)
	directory, err := identity.NewDirectory(deps.Store, identity.DefaultDirectorySize)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания справочника пользователей: %w", err)
	}
	authMiddleware := middleware.AuthMiddleware(provider, timeout)

	// Создаём сервисы
	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg.CloudinaryConfig, authMiddleware, deps.Metrics)
	if err != nil {
		return nil, err
	}
	chatService := chat.NewChatService(deps.Store, provider, directory, deps.Metrics)
	workflow := swap.NewWorkflow(deps.Store, deps.Store, chatService, deps.Metrics)
	reportService := report.NewService(deps.Store, provider, cloudinaryService, deps.Mailer, deps.Metrics)

	// Регистрируем маршруты
	auth.NewAuthService(cfg.TelegramBotToken, provider, deps.Store, directory, authMiddleware, timeout).SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)
	listing.NewHandler(listing.NewListingService(deps.Store), authMiddleware, timeout).SetupRoutes(app)
	favorite.NewFavoriteService(deps.Store, deps.Store, authMiddleware, timeout).SetupRoutes(app)
	swap.NewHandler(workflow, authMiddleware, timeout).SetupRoutes(app)
	chat.NewHandler(chatService, authMiddleware, timeout).SetupRoutes(app)
	notification.NewHandler(notification.NewService(deps.Store, deps.Store, deps.Store), authMiddleware, timeout).SetupRoutes(app)
	report.NewHandler(reportService, authMiddleware).SetupRoutes(app)

	return app, nil
}

func healthHandler(st store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		if p, ok := st.(pinger); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				log.Printf("❌ Хранилище недоступно: %v", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// errorHandler отдает ошибки в формате {"error": сообщение}.
// Причина неожиданных ошибок только логируется.
func errorHandler(c fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Kind == apperr.KindUnexpected {
			log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(appErr.StatusCode()).JSON(fiber.Map{"error": appErr.Message})
	}

	// Проверяем, является ли ошибка из Fiber
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
