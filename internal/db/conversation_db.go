package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

const conversationColumns = `id, participant_a, participant_b, listing_id, created_at, last_updated`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.ListingID, &c.CreatedAt, &c.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureConversation создает переписку, если ее еще нет.
// При конкурентных вызовах вставка выполняется ровно один раз.
func (s *Store) EnsureConversation(ctx context.Context, c *models.Conversation) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.Participants[0], c.Participants[1], c.ListingID, c.CreatedAt, c.LastUpdated)
	if err != nil {
		return false, fmt.Errorf("ошибка создания переписки: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	existing, err := s.GetConversation(ctx, c.ID)
	if err != nil {
		return false, err
	}
	*c = *existing
	return false, nil
}

// AppendMessage добавляет сообщение и сдвигает last_updated переписки
func (s *Store) AppendMessage(ctx context.Context, m *models.Message) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, sender_email, text, created_at, is_read)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, m.ID, m.ConversationID, m.SenderID, m.SenderEmail, m.Text, m.Timestamp, m.Read)
		if err != nil {
			if code, _ := pgErrorCode(err); code == foreignKeyViolation {
				return store.ErrNotFound
			}
			return fmt.Errorf("ошибка вставки сообщения: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE conversations SET last_updated = GREATEST(last_updated, $2) WHERE id = $1
		`, m.ConversationID, m.Timestamp)
		if err != nil {
			return fmt.Errorf("ошибка обновления переписки: %w", err)
		}
		return nil
	})
}

func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListMessages возвращает сообщения по возрастанию времени; since не включается
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID, since *time.Time) ([]models.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, sender_email, text, created_at, is_read
		FROM messages
		WHERE conversation_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at ASC, seq ASC
	`, conversationID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса сообщений: %w", err)
	}
	defer rows.Close()

	out := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderEmail, &m.Text, &m.Timestamp, &m.Read); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сообщения: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListConversations(ctx context.Context, userID uuid.UUID, since *time.Time) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE (participant_a = $1 OR participant_b = $1)
			AND ($2::timestamptz IS NULL OR last_updated > $2)
		ORDER BY last_updated DESC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса переписок: %w", err)
	}
	defer rows.Close()

	out := make([]models.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования переписки: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
