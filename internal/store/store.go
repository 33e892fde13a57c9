// Package store определяет контракт хранилища и его реализацию в памяти.
// Реализация для PostgreSQL находится в пакете db.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/models"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("store: not found")
	// ErrPendingExists уже есть ожидающий запрос для пары (отправитель, объявление)
	ErrPendingExists = errors.New("store: pending swap request already exists")
	// ErrStaleState статус записи изменился между чтением и записью
	ErrStaleState = errors.New("store: stale state")
	// ErrListingUnavailable объявление уже не активно
	ErrListingUnavailable = errors.New("store: listing is not active")
	// ErrDuplicate нарушение уникальности
	ErrDuplicate = errors.New("store: duplicate")
)

// ListingStore объявления
type ListingStore interface {
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListListings(ctx context.Context, f models.ListingFilter) ([]models.Listing, int, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	DeleteListing(ctx context.Context, id uuid.UUID) error
}

// SwapRequestStore запросы на обмен
type SwapRequestStore interface {
	HasPendingSwapRequest(ctx context.Context, senderID, targetListingID uuid.UUID) (bool, error)
	CreateSwapRequest(ctx context.Context, r *models.SwapRequest) error
	GetSwapRequest(ctx context.Context, id uuid.UUID) (*models.SwapRequest, error)
	ListSwapRequests(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.SwapRequest, error)
	ApplySwapTransition(ctx context.Context, t models.SwapTransition) (*models.SwapRequest, error)
	DeleteSwapRequest(ctx context.Context, id uuid.UUID, expected models.SwapStatus) error
}

// NotificationStore счетчики и флаги просмотра
type NotificationStore interface {
	CountUnreadMessages(ctx context.Context, userID uuid.UUID) (int, error)
	CountUnviewedReceived(ctx context.Context, userID uuid.UUID) (int, error)
	CountUnviewedSent(ctx context.Context, userID uuid.UUID) (int, error)
	SetSwapRequestViewed(ctx context.Context, id uuid.UUID, role models.Role) error
	MarkAllReceivedViewed(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAllSentViewed(ctx context.Context, userID uuid.UUID) (int, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) (int, error)
}

// ConversationStore переписки и сообщения
type ConversationStore interface {
	EnsureConversation(ctx context.Context, c *models.Conversation) (bool, error)
	AppendMessage(ctx context.Context, m *models.Message) error
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, since *time.Time) ([]models.Message, error)
	ListConversations(ctx context.Context, userID uuid.UUID, since *time.Time) ([]models.Conversation, error)
}

// UserStore учетные записи
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpsertTelegramUser(ctx context.Context, p models.TelegramProfile) (*models.User, error)
	UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error)
	SetUserDisabled(ctx context.Context, id uuid.UUID, disabled bool) error
}

// ReportStore жалобы
type ReportStore interface {
	CreateReport(ctx context.Context, r *models.Report) error
}

// FavoriteStore избранное
type FavoriteStore interface {
	AddFavorite(ctx context.Context, f *models.Favorite) error
	RemoveFavorite(ctx context.Context, userID, listingID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Favorite, int, error)
	IsFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
}

// Store полный контракт хранилища
type Store interface {
	ListingStore
	SwapRequestStore
	NotificationStore
	ConversationStore
	UserStore
	ReportStore
	FavoriteStore
}
