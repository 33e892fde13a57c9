package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatusLocked статус жалобы после блокировки аккаунта
const ReportStatusLocked = "locked"

// Report жалоба на пользователя
type Report struct {
	ID          uuid.UUID `json:"id"`
	ReporterUID uuid.UUID `json:"reporter_uid"`
	TargetUID   uuid.UUID `json:"target_uid"`
	Reason      string    `json:"reason"`
	Details     string    `json:"details"`
	Evidence    []string  `json:"evidence"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
