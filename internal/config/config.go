package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Драйверы хранилища
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config структура конфигурации
type Config struct {
	Port             string
	AppEnv           string // Окружение приложения
	StoreDriver      string
	TelegramBotToken string
	JWTSecret        string
	TokenTTL         time.Duration
	RequestTimeout   time.Duration
	CORSOrigins      []string
	DatabaseURL      string
	DatabaseConfig   DatabaseConfig
	CloudinaryConfig CloudinaryConfig
	SMTPConfig       SMTPConfig
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName      string
	APIKey         string
	APISecret      string
	UploadPreset   string
	ListingFolder  string
	EvidenceFolder string
}

// Configured сообщает, заданы ли учетные данные Cloudinary
func (c CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// SMTPConfig содержит параметры SMTP-релея для уведомлений
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Configured сообщает, задан ли SMTP-релей
func (c SMTPConfig) Configured() bool {
	return c.Host != ""
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "autoswap_user"),
		Password: getEnv("PGPASSWORD", "autoswap_pass"),
		Name:     getEnv("PGDATABASE", "autoswap"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
		MaxConns: int32(getEnvInt("PG_MAX_CONNS", 10)),
		MinConns: int32(getEnvInt("PG_MIN_CONNS", 2)),
	}

	// Формируем строку подключения к базе данных, если она не задана целиком
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)
	}

	cloudinaryConfig := CloudinaryConfig{
		CloudName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:         getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:      getEnv("CLOUDINARY_API_SECRET", ""),
		UploadPreset:   getEnv("CLOUDINARY_UPLOAD_PRESET", "autoswap_listings"),
		ListingFolder:  getEnv("CLOUDINARY_LISTING_FOLDER", "swap-listings"),
		EvidenceFolder: getEnv("CLOUDINARY_EVIDENCE_FOLDER", "report-evidence"),
	}

	smtpConfig := SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnvInt("SMTP_PORT", 587),
		User:     getEnv("SMTP_USER", ""),
		Password: getEnv("SMTP_PASS", ""),
		From:     getEnv("SMTP_FROM", getEnv("SMTP_USER", "")),
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		AppEnv:           getEnv("APP_ENV", "production"), // По умолчанию production
		StoreDriver:      getEnv("STORE_DRIVER", StoreDriverPostgres),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		TokenTTL:         getEnvDuration("TOKEN_TTL", 24*time.Hour),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 5*time.Second),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		DatabaseURL:      dbURL,
		DatabaseConfig:   dbConfig,
		CloudinaryConfig: cloudinaryConfig,
		SMTPConfig:       smtpConfig,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("не задана обязательная переменная окружения JWT_SECRET")
	}
	if c.StoreDriver != StoreDriverPostgres && c.StoreDriver != StoreDriverMemory {
		return fmt.Errorf("неизвестный драйвер хранилища: %q", c.StoreDriver)
	}
	return nil
}

// IsDevelopment сообщает, запущено ли приложение в режиме разработки
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ Некорректное значение %s=%q, используем %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️ Некорректное значение %s=%q, используем %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
