package db

import (
	"context"
	"fmt"

	"github.com/rajivgeraev/autoswap-api/internal/models"
)

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	evidence := r.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reports (id, reporter_uid, target_uid, reason, details, evidence, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.ReporterUID, r.TargetUID, r.Reason, r.Details, evidence, r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения жалобы: %w", err)
	}
	return nil
}
