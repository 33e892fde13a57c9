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

const swapColumns = `id, sender_id, receiver_id, target_listing_id, offered_listing_id, request_type, message,
	status, contact_info, receiver_viewed, sender_viewed, created_at, accepted_at, rejected_at`

func scanSwapRequest(row pgx.Row) (*models.SwapRequest, error) {
	var r models.SwapRequest
	var requestType, status string
	err := row.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.TargetListingID, &r.OfferedListingID,
		&requestType, &r.Message, &status, &r.ContactInfo, &r.ReceiverViewed, &r.SenderViewed,
		&r.CreatedAt, &r.AcceptedAt, &r.RejectedAt)
	if err != nil {
		return nil, err
	}
	r.RequestType = models.RequestType(requestType)
	r.Status = models.SwapStatus(status)
	return &r, nil
}

func (s *Store) HasPendingSwapRequest(ctx context.Context, senderID, targetListingID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM swap_requests
			WHERE sender_id = $1 AND target_listing_id = $2 AND status = 'pending'
		)
	`, senderID, targetListingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки существующих запросов: %w", err)
	}
	return exists, nil
}

// CreateSwapRequest вставляет запрос; частичный уникальный индекс
// отклоняет второй ожидающий запрос той же пары
func (s *Store) CreateSwapRequest(ctx context.Context, r *models.SwapRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO swap_requests (`+swapColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.ID, r.SenderID, r.ReceiverID, r.TargetListingID, r.OfferedListingID, string(r.RequestType),
		r.Message, string(r.Status), r.ContactInfo, r.ReceiverViewed, r.SenderViewed,
		r.CreatedAt, r.AcceptedAt, r.RejectedAt)
	if err != nil {
		code, constraint := pgErrorCode(err)
		if code == uniqueViolation {
			if constraint == pendingIndexName {
				return store.ErrPendingExists
			}
			return store.ErrDuplicate
		}
		return fmt.Errorf("ошибка вставки запроса: %w", err)
	}
	return nil
}

func (s *Store) GetSwapRequest(ctx context.Context, id uuid.UUID) (*models.SwapRequest, error) {
	r, err := scanSwapRequest(s.pool.QueryRow(ctx, `SELECT `+swapColumns+` FROM swap_requests WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Store) ListSwapRequests(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.SwapRequest, error) {
	column := "sender_id"
	if role == models.RoleReceiver {
		column = "receiver_id"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+swapColumns+`
		FROM swap_requests
		WHERE `+column+` = $1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса списка запросов: %w", err)
	}
	defer rows.Close()

	out := make([]models.SwapRequest, 0)
	for rows.Next() {
		r, err := scanSwapRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования запроса: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ApplySwapTransition применяет переход в одной транзакции.
// Статус меняется только если он все еще равен t.From, объявления
// резервируются только если они все еще активны.
func (s *Store) ApplySwapTransition(ctx context.Context, t models.SwapTransition) (*models.SwapRequest, error) {
	var acceptedAt, rejectedAt *time.Time
	switch t.To {
	case models.SwapAccepted:
		acceptedAt = &t.At
	case models.SwapRejected:
		rejectedAt = &t.At
	}

	var updated *models.SwapRequest
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		r, err := scanSwapRequest(tx.QueryRow(ctx, `
			UPDATE swap_requests
			SET status = $3,
				accepted_at = COALESCE($4, accepted_at),
				rejected_at = COALESCE($5, rejected_at),
				contact_info = COALESCE($6, contact_info),
				sender_viewed = sender_viewed AND NOT $7
			WHERE id = $1 AND status = $2
			RETURNING `+swapColumns,
			t.RequestID, string(t.From), string(t.To), acceptedAt, rejectedAt, t.ContactInfo, t.NotifySender))
		if err != nil {
			if err == pgx.ErrNoRows {
				return s.staleOrMissing(ctx, tx, t.RequestID)
			}
			return fmt.Errorf("ошибка обновления статуса запроса: %w", err)
		}

		for _, listingID := range t.ReserveListings {
			tag, err := tx.Exec(ctx, `
				UPDATE listings SET status = 'reserved', updated_at = $2
				WHERE id = $1 AND status = 'active'
			`, listingID, t.At)
			if err != nil {
				return fmt.Errorf("ошибка резервирования объявления: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return store.ErrListingUnavailable
			}
		}

		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) staleOrMissing(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM swap_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка проверки запроса: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrStaleState
}

// DeleteSwapRequest удаляет запрос, только если его статус равен expected
func (s *Store) DeleteSwapRequest(ctx context.Context, id uuid.UUID, expected models.SwapStatus) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM swap_requests WHERE id = $1 AND status = $2`, id, string(expected))
		if err != nil {
			return fmt.Errorf("ошибка удаления запроса: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return s.staleOrMissing(ctx, tx, id)
		}
		return nil
	})
}
