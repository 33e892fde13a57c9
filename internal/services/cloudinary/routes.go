package cloudinary

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты загрузки
func (s *CloudinaryService) SetupRoutes(app *fiber.App) {
	// Маршрут для получения параметров загрузки
	app.Get("/api/upload/params", s.GenerateUploadParams, s.auth)
}
