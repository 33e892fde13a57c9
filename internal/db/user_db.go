package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

const userColumns = `id, telegram_id, username, first_name, last_name, avatar_url, email, disabled,
	created_at, updated_at, last_login_at`

// scanUser читает пользователя, преобразуя nullable поля
func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var telegramID pgtype.Int8
	var username, firstName, lastName, avatarURL, email pgtype.Text

	err := row.Scan(&user.ID, &telegramID, &username, &firstName, &lastName, &avatarURL, &email,
		&user.Disabled, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, err
	}

	// Преобразуем nullable поля
	if telegramID.Valid {
		user.TelegramID = telegramID.Int64
	}
	user.Username = username.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.AvatarURL = avatarURL.String
	user.Email = email.String

	return &user, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	telegramID := pgtype.Int8{Int64: u.TelegramID, Valid: u.TelegramID != 0}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, telegramID, nullText(u.Username), nullText(u.FirstName), nullText(u.LastName),
		nullText(u.AvatarURL), nullText(u.Email), u.Disabled, u.CreatedAt, u.UpdatedAt, u.LastLoginAt)
	if err != nil {
		if code, _ := pgErrorCode(err); code == uniqueViolation {
			return store.ErrDuplicate
		}
		return fmt.Errorf("ошибка при создании пользователя: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// UpsertTelegramUser создает пользователя Telegram или обновляет профиль и время входа
func (s *Store) UpsertTelegramUser(ctx context.Context, p models.TelegramProfile) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (id, telegram_id, username, first_name, last_name, avatar_url, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			avatar_url = EXCLUDED.avatar_url,
			last_login_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		RETURNING `+userColumns,
		uuid.New(), p.TelegramID, nullText(p.Username), nullText(p.FirstName), nullText(p.LastName), nullText(p.PhotoURL)))
	if err != nil {
		return nil, fmt.Errorf("ошибка при сохранении Telegram пользователя: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET email = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING `+userColumns, id, nullText(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Store) SetUserDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET disabled = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, id, disabled)
	if err != nil {
		return fmt.Errorf("ошибка при блокировке пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
