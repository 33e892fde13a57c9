package listing

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршруты для API объявлений
func (h *Handler) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/listings")

	// Публичные маршруты
	api.Get("/", h.GetPublicListings)

	// /my регистрируется раньше /:id
	api.Get("/my", h.GetMyListings, h.auth)
	api.Get("/:id", h.GetListing)

	// Защищенные маршруты (требуют авторизации)
	api.Post("/", h.CreateListing, h.auth)
	api.Put("/:id", h.UpdateListing, h.auth)
	api.Delete("/:id", h.DeleteListing, h.auth)
}
