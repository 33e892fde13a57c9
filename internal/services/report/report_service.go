package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/services/cloudinary"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

// Ограничения на доказательства
const (
	MaxEvidenceFiles = 10
	MaxEvidenceSize  = 5 << 20
)

// EvidenceUploader загружает файлы доказательств и возвращает их URL
type EvidenceUploader interface {
	UploadEvidence(ctx context.Context, files []cloudinary.File) ([]string, error)
}

// Accounts операции провайдера идентификации над аккаунтами
type Accounts interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	DisableUser(ctx context.Context, id uuid.UUID) error
}

// SuspensionNotifier уведомляет пользователя о блокировке; ошибки не возвращает
type SuspensionNotifier interface {
	SendSuspensionEmail(ctx context.Context, to, reason string)
}

// SubmitInput данные жалобы
type SubmitInput struct {
	ReporterUID uuid.UUID
	TargetUID   string `validate:"required"`
	Reason      string `validate:"required,max=200"`
	Details     string `validate:"max=4000"`
	Evidence    []cloudinary.File
}

// Service принимает жалобы и блокирует аккаунты
type Service struct {
	reports  store.ReportStore
	accounts Accounts
	uploader EvidenceUploader
	notifier SuspensionNotifier
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// NewService создает сервис жалоб
func NewService(reports store.ReportStore, accounts Accounts, uploader EvidenceUploader, notifier SuspensionNotifier, m *metrics.Metrics) *Service {
	return &Service{
		reports:  reports,
		accounts: accounts,
		uploader: uploader,
		notifier: notifier,
		metrics:  m,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit сохраняет жалобу, блокирует аккаунт и отправляет уведомление
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Report, error) {
	report, err := s.submit(ctx, in)
	s.metrics.Reports.WithLabelValues(metrics.Outcome(err)).Inc()
	return report, err
}

func (s *Service) submit(ctx context.Context, in SubmitInput) (*models.Report, error) {
	in.TargetUID = strings.TrimSpace(in.TargetUID)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Tag() == "max" {
			return nil, apperr.Validation(fmt.Sprintf("Field %s is too long", verrs[0].Field()))
		}
		return nil, apperr.Validation("Missing required fields")
	}
	if len(in.Evidence) > MaxEvidenceFiles {
		return nil, apperr.Validation(fmt.Sprintf("At most %d evidence files are allowed", MaxEvidenceFiles))
	}

	noUser := apperr.Validation("No user found with UID: " + in.TargetUID)
	targetID, err := uuid.Parse(in.TargetUID)
	if err != nil {
		return nil, noUser
	}
	if targetID == in.ReporterUID {
		return nil, apperr.Validation("You cannot report yourself")
	}

	// Проверяем цель до загрузки файлов и записи жалобы
	target, err := s.accounts.GetUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, noUser
		}
		return nil, apperr.Unexpected("Failed to submit report", err)
	}

	evidence := []string{}
	if len(in.Evidence) > 0 {
		evidence, err = s.uploader.UploadEvidence(ctx, in.Evidence)
		if err != nil {
			return nil, apperr.Unexpected("Failed to upload evidence", err)
		}
	}

	report := &models.Report{
		ID:          uuid.New(),
		ReporterUID: in.ReporterUID,
		TargetUID:   targetID,
		Reason:      in.Reason,
		Details:     strings.TrimSpace(in.Details),
		Evidence:    evidence,
		Status:      models.ReportStatusLocked,
		CreatedAt:   s.now(),
	}

	// Сначала блокировка: locked-жалоба не должна остаться при активном аккаунте
	if err := s.accounts.DisableUser(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, noUser
		}
		return nil, apperr.Unexpected("Failed to disable user", err)
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		log.Printf("❌ Аккаунт %s заблокирован, но жалоба %s не сохранена: %v", targetID, report.ID, err)
		return nil, apperr.Unexpected("Failed to submit report", err)
	}
	log.Printf("Аккаунт %s заблокирован по жалобе %s", targetID, report.ID)

	s.notifier.SendSuspensionEmail(ctx, target.Email, report.Reason)
	return report, nil
}
