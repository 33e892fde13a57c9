package report

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/services/cloudinary"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// uploadTimeout запас времени на загрузку доказательств
const uploadTimeout = 60 * time.Second

// Handler HTTP-обработчики жалоб
type Handler struct {
	service *Service
	auth    fiber.Handler
}

// NewHandler создает обработчики поверх сервиса
func NewHandler(service *Service, auth fiber.Handler) *Handler {
	return &Handler{service: service, auth: auth}
}

// SubmitReport принимает multipart-форму жалобы с файлами evidence
func (h *Handler) SubmitReport(c fiber.Ctx) error {
	reporterID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authenticated"})
	}

	in := SubmitInput{
		ReporterUID: reporterID,
		TargetUID:   c.FormValue("targetUid"),
		Reason:      c.FormValue("reason"),
		Details:     c.FormValue("details"),
	}

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File["evidence"]
	}
	if len(headers) > MaxEvidenceFiles {
		return apperr.Validation(fmt.Sprintf("At most %d evidence files are allowed", MaxEvidenceFiles))
	}

	files, closeAll, err := openEvidence(headers)
	defer closeAll()
	if err != nil {
		return err
	}
	in.Evidence = files

	ctx, cancel := utils.RequestContext(uploadTimeout)
	defer cancel()

	report, err := h.service.Submit(ctx, in)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":  "Report submitted and account locked",
		"evidence": report.Evidence,
		"report":   report,
	})
}

// openEvidence открывает файлы формы; closeAll закрывает уже открытые
func openEvidence(headers []*multipart.FileHeader) ([]cloudinary.File, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, cl := range closers {
			if err := cl.Close(); err != nil {
				log.Printf("Ошибка закрытия файла: %v", err)
			}
		}
	}

	files := make([]cloudinary.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > MaxEvidenceSize {
			return nil, closeAll, apperr.Validation("Evidence files must be at most 5MB each")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, apperr.Unexpected("Failed to read evidence file", err)
		}
		closers = append(closers, f)
		files = append(files, cloudinary.File{Name: fh.Filename, Reader: f})
	}
	return files, closeAll, nil
}
