package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/autoswap-api/internal/config"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
)

// ErrNotConfigured учетные данные Cloudinary не заданы
var ErrNotConfigured = errors.New("cloudinary is not configured")

// uploadLimit ограничивает параллельные загрузки одного запроса
const uploadLimit = 4

// File файл для загрузки
type File struct {
	Name   string
	Reader io.Reader
}

// CloudinaryService предоставляет методы для работы с Cloudinary
type CloudinaryService struct {
	cfg     config.CloudinaryConfig
	cld     *cloudinary.Cloudinary
	auth    fiber.Handler
	metrics *metrics.Metrics
}

// NewCloudinaryService создает новый экземпляр CloudinaryService.
// Без учетных данных сервис работает, но загрузка возвращает ErrNotConfigured.
func NewCloudinaryService(cfg config.CloudinaryConfig, auth fiber.Handler, m *metrics.Metrics) (*CloudinaryService, error) {
	s := &CloudinaryService{cfg: cfg, auth: auth, metrics: m}
	if !cfg.Configured() {
		log.Println("⚠️ Cloudinary не настроен, загрузка файлов недоступна")
		return s, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	s.cld = cld
	return s, nil
}

// Upload загружает файл в папку и возвращает публичный URL
func (s *CloudinaryService) Upload(ctx context.Context, folder string, file File) (string, error) {
	if s.cld == nil {
		return "", ErrNotConfigured
	}

	resp, err := s.cld.Upload.Upload(ctx, file.Reader, uploader.UploadParams{
		Folder:         folder,
		PublicID:       uuid.NewString(),
		UniqueFilename: api.Bool(false),
	})
	if err == nil && resp.Error.Message != "" {
		err = errors.New(resp.Error.Message)
	}
	s.metrics.Uploads.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки %s: %w", file.Name, err)
	}
	return resp.SecureURL, nil
}

// UploadEvidence загружает доказательства к жалобе параллельно, сохраняя порядок
func (s *CloudinaryService) UploadEvidence(ctx context.Context, files []File) ([]string, error) {
	urls := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadLimit)
	for i, file := range files {
		g.Go(func() error {
			u, err := s.Upload(gctx, s.cfg.EvidenceFolder, file)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// SignParams подписывает параметры прямой загрузки с клиента
func (s *CloudinaryService) SignParams(listingID string, now time.Time) (fiber.Map, error) {
	if !s.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	timestamp := strconv.FormatInt(now.Unix(), 10)
	folder := s.cfg.ListingFolder + "/" + listingID

	// Параметры для подписи
	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", folder)
	params.Set("upload_preset", s.cfg.UploadPreset)

	signature, err := api.SignParameters(params, s.cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи параметров: %w", err)
	}

	return fiber.Map{
		"timestamp":     timestamp,
		"signature":     signature,
		"folder":        folder,
		"upload_preset": s.cfg.UploadPreset,
		"api_key":       s.cfg.APIKey,
		"cloud_name":    s.cfg.CloudName,
		"listing_id":    listingID,
	}, nil
}

// GenerateUploadParams создаёт параметры для загрузки изображений
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	// Генерируем ID для объявления, если не передан
	listingID := c.Query("listing_id")
	if listingID == "" {
		listingID = uuid.New().String()
	} else if _, err := uuid.Parse(listingID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	params, err := s.SignParams(listingID, time.Now())
	if err != nil {
		log.Printf("Ошибка генерации параметров загрузки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Upload is not available"})
	}

	return c.JSON(params)
}
