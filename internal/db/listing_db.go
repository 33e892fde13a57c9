package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

const listingColumns = `id, user_id, title, description, price, condition, location, attributes, status, created_at, updated_at`

// querier общий интерфейс пула и транзакции
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	var status string
	err := row.Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &l.Price,
		&l.Condition, &l.Location, &l.Attributes, &status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = models.ListingStatus(status)
	if l.Attributes == nil {
		l.Attributes = map[string]string{}
	}
	return &l, nil
}

func (s *Store) CreateListing(ctx context.Context, l *models.Listing) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO listings (`+listingColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, l.ID, l.UserID, l.Title, l.Description, l.Price, l.Condition, l.Location,
			l.Attributes, string(l.Status), l.CreatedAt, l.UpdatedAt)
		if err != nil {
			if code, _ := pgErrorCode(err); code == uniqueViolation {
				return store.ErrDuplicate
			}
			return fmt.Errorf("ошибка вставки объявления: %w", err)
		}
		return insertImages(ctx, tx, l.ID, l.Images)
	})
}

func insertImages(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, images []models.ListingImage) error {
	for _, img := range images {
		_, err := tx.Exec(ctx, `
			INSERT INTO listing_images (listing_id, url, preview_url, public_id, is_main, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, listingID, img.URL, img.PreviewURL, img.PublicID, img.IsMain, img.Position)
		if err != nil {
			return fmt.Errorf("ошибка вставки изображения: %w", err)
		}
	}
	return nil
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := scanListing(s.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.loadImages(ctx, s.pool, []*models.Listing{l}); err != nil {
		return nil, err
	}
	return l, nil
}

// loadImages подгружает изображения одним запросом для всех объявлений
func (s *Store) loadImages(ctx context.Context, q querier, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(listings))
	byID := make(map[uuid.UUID]*models.Listing, len(listings))
	for _, l := range listings {
		l.Images = []models.ListingImage{}
		ids = append(ids, l.ID)
		byID[l.ID] = l
	}

	rows, err := q.Query(ctx, `
		SELECT listing_id, url, COALESCE(preview_url, ''), COALESCE(public_id, ''), is_main, position
		FROM listing_images
		WHERE listing_id = ANY($1)
		ORDER BY listing_id, position ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("ошибка запроса изображений: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listingID uuid.UUID
		var img models.ListingImage
		if err := rows.Scan(&listingID, &img.URL, &img.PreviewURL, &img.PublicID, &img.IsMain, &img.Position); err != nil {
			return fmt.Errorf("ошибка сканирования изображения: %w", err)
		}
		if l, ok := byID[listingID]; ok {
			l.Images = append(l.Images, img)
		}
	}
	return rows.Err()
}

// listingWhere строит условие выборки по фильтру
func listingWhere(f models.ListingFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Condition != "" {
		add("condition = $%d", f.Condition)
	}
	if f.Location != "" {
		add("location = $%d", f.Location)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if len(f.Attributes) > 0 {
		add("attributes @> $%d", f.Attributes)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListListings(ctx context.Context, f models.ListingFilter) ([]models.Listing, int, error) {
	where, args := listingWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета объявлений: %w", err)
	}

	query := `SELECT ` + listingColumns + ` FROM listings` + where + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	defer rows.Close()

	var ptrs []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		ptrs = append(ptrs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := s.loadImages(ctx, s.pool, ptrs); err != nil {
		return nil, 0, err
	}

	out := make([]models.Listing, 0, len(ptrs))
	for _, l := range ptrs {
		out = append(out, *l)
	}
	return out, total, nil
}

// UpdateListing обновляет поля объявления; статус не меняется
func (s *Store) UpdateListing(ctx context.Context, l *models.Listing) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE listings
			SET title = $2, description = $3, price = $4, condition = $5, location = $6,
				attributes = $7, updated_at = $8
			WHERE id = $1
		`, l.ID, l.Title, l.Description, l.Price, l.Condition, l.Location, l.Attributes, l.UpdatedAt)
		if err != nil {
			return fmt.Errorf("ошибка обновления объявления: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}

		if l.Images == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM listing_images WHERE listing_id = $1`, l.ID); err != nil {
			return fmt.Errorf("ошибка удаления изображений: %w", err)
		}
		return insertImages(ctx, tx, l.ID, l.Images)
	})
}

// DeleteListing удаляет только активное объявление
func (s *Store) DeleteListing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления объявления: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки объявления: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrListingUnavailable
}
