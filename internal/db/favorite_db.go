package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

func (s *Store) AddFavorite(ctx context.Context, f *models.Favorite) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO favorites (id, user_id, listing_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, f.ID, f.UserID, f.ListingID, f.CreatedAt)
	if err != nil {
		switch code, _ := pgErrorCode(err); code {
		case uniqueViolation:
			return store.ErrDuplicate
		case foreignKeyViolation:
			return store.ErrNotFound
		}
		return fmt.Errorf("ошибка добавления в избранное: %w", err)
	}
	return nil
}

func (s *Store) RemoveFavorite(ctx context.Context, userID, listingID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2
	`, userID, listingID)
	if err != nil {
		return fmt.Errorf("ошибка удаления из избранного: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListFavorites возвращает избранное вместе с объявлениями
func (s *Store) ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Favorite, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM favorites WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета избранного: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT f.id, f.user_id, f.listing_id, f.created_at,
			l.id, l.user_id, l.title, l.description, l.price, l.condition, l.location,
			l.attributes, l.status, l.created_at, l.updated_at
		FROM favorites f
		JOIN listings l ON f.listing_id = l.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка запроса избранного: %w", err)
	}
	defer rows.Close()

	var favorites []models.Favorite
	var listings []*models.Listing
	for rows.Next() {
		var f models.Favorite
		var l models.Listing
		var status string
		if err := rows.Scan(&f.ID, &f.UserID, &f.ListingID, &f.CreatedAt,
			&l.ID, &l.UserID, &l.Title, &l.Description, &l.Price, &l.Condition, &l.Location,
			&l.Attributes, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования избранного: %w", err)
		}
		l.Status = models.ListingStatus(status)
		listings = append(listings, &l)
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := s.loadImages(ctx, s.pool, listings); err != nil {
		return nil, 0, err
	}
	for i := range favorites {
		favorites[i].Listing = listings[i]
	}
	if favorites == nil {
		favorites = []models.Favorite{}
	}
	return favorites, total, nil
}

func (s *Store) IsFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND listing_id = $2)
	`, userID, listingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки избранного: %w", err)
	}
	return exists, nil
}
