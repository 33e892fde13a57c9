package favorite

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршруты для API избранного
func (s *FavoriteService) SetupRoutes(app *fiber.App) {
	// Защищенные маршруты (требуют авторизации)
	api := app.Group("/api/favorites", s.auth)

	api.Get("/", s.GetFavorites)
	api.Post("/", s.AddToFavorites)
	api.Delete("/:id", s.RemoveFromFavorites)
	api.Get("/:id/check", s.CheckFavorite)
}
