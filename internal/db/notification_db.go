package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчета: %w", err)
	}
	return n, nil
}

func (s *Store) CountUnreadMessages(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.count(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.participant_a = $1 OR c.participant_b = $1)
			AND m.sender_id <> $1 AND NOT m.is_read
	`, userID)
}

func (s *Store) CountUnviewedReceived(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.count(ctx, `
		SELECT COUNT(*) FROM swap_requests WHERE receiver_id = $1 AND NOT receiver_viewed
	`, userID)
}

func (s *Store) CountUnviewedSent(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.count(ctx, `
		SELECT COUNT(*) FROM swap_requests
		WHERE sender_id = $1 AND NOT sender_viewed AND status IN ('accepted', 'rejected')
	`, userID)
}

func (s *Store) SetSwapRequestViewed(ctx context.Context, id uuid.UUID, role models.Role) error {
	column := "sender_viewed"
	if role == models.RoleReceiver {
		column = "receiver_viewed"
	}
	tag, err := s.pool.Exec(ctx, `UPDATE swap_requests SET `+column+` = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка отметки просмотра: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllReceivedViewed(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE swap_requests SET receiver_viewed = TRUE
		WHERE receiver_id = $1 AND NOT receiver_viewed
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("ошибка отметки полученных запросов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) MarkAllSentViewed(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE swap_requests SET sender_viewed = TRUE
		WHERE sender_id = $1 AND NOT sender_viewed AND status IN ('accepted', 'rejected')
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("ошибка отметки отправленных запросов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) (int, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM conversations WHERE id = $1)`, conversationID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("ошибка проверки переписки: %w", err)
	}
	if !exists {
		return 0, store.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read
	`, conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("ошибка отметки сообщений: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
