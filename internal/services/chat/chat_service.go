package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

// conversationNamespace пространство имен для UUIDv5 идентификаторов переписок
var conversationNamespace = uuid.MustParse("5f0c6a7e-3d2b-5b8e-9c41-8a2f3e6d1b70")

// lookupLimit ограничивает параллельные запросы к справочнику пользователей
const lookupLimit = 8

// UserLookup актуальные данные пользователя без кеша
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// DisplayNames отображаемые имена, ошибки поиска не пробрасываются
type DisplayNames interface {
	DisplayName(ctx context.Context, id uuid.UUID) string
}

// MessagesPage сообщения переписки и статус собеседника
type MessagesPage struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	Messages       []models.Message `json:"messages"`
	OtherUserID    uuid.UUID        `json:"other_user_id"`
	Suspended      bool             `json:"suspended"`
}

// ChatService представляет сервис для работы с переписками
type ChatService struct {
	conversations store.ConversationStore
	users         UserLookup
	names         DisplayNames
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(conversations store.ConversationStore, users UserLookup, names DisplayNames, m *metrics.Metrics) *ChatService {
	return &ChatService{
		conversations: conversations,
		users:         users,
		names:         names,
		metrics:       m,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SortParticipants упорядочивает пару так же, как postgres сравнивает uuid
func SortParticipants(a, b uuid.UUID) [2]uuid.UUID {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

// ConversationID детерминированный ID переписки пары; не зависит от порядка аргументов
func ConversationID(a, b uuid.UUID) uuid.UUID {
	pair := SortParticipants(a, b)
	return uuid.NewSHA1(conversationNamespace, []byte(pair[0].String()+":"+pair[1].String()))
}

// DefaultMessage приветствие для первой реплики без текста
func DefaultMessage(listingName string) string {
	if strings.TrimSpace(listingName) == "" {
		listingName = "this item"
	}
	return fmt.Sprintf("Hi! I'm interested in your listing %q.", listingName)
}

// OpenOrAppend находит переписку пары или создает ее и добавляет сообщение
func (s *ChatService) OpenOrAppend(ctx context.Context, open models.ConversationOpen) (*models.ConversationOpenResult, error) {
	if open.SenderID == open.RecipientID {
		return nil, apperr.Validation("Cannot start a conversation with yourself")
	}

	sender, err := s.lookup(ctx, open.SenderID, "Sender not found")
	if err != nil {
		return nil, err
	}
	recipient, err := s.lookup(ctx, open.RecipientID, "Recipient not found")
	if err != nil {
		return nil, err
	}
	if recipient.Disabled {
		return nil, apperr.Authorization("This user has been suspended. You cannot send messages to them")
	}

	text := strings.TrimSpace(open.Text)
	if text == "" {
		text = DefaultMessage(open.ListingName)
	}

	now := s.now()
	conversation := &models.Conversation{
		ID:           ConversationID(open.SenderID, open.RecipientID),
		Participants: SortParticipants(open.SenderID, open.RecipientID),
		ListingID:    open.ListingID,
		CreatedAt:    now,
		LastUpdated:  now,
	}

	// Существующая переписка переиспользуется вне зависимости от объявления
	created, err := s.conversations.EnsureConversation(ctx, conversation)
	if err != nil {
		return nil, apperr.Unexpected("Failed to open conversation", err)
	}
	s.metrics.ConversationOpens.WithLabelValues(fmt.Sprint(created)).Inc()

	message, err := s.append(ctx, conversation.ID, sender, text, now)
	if err != nil {
		return nil, err
	}
	if message.Timestamp.After(conversation.LastUpdated) {
		conversation.LastUpdated = message.Timestamp
	}

	return &models.ConversationOpenResult{
		Conversation: conversation,
		Message:      message,
		Created:      created,
	}, nil
}

// SendMessage добавляет сообщение участника в переписку
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Message text is required")
	}

	conversation, err := s.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	other, err := s.lookup(ctx, conversation.Other(senderID), "Conversation participant not found")
	if err != nil {
		return nil, err
	}
	if other.Disabled {
		return nil, apperr.Authorization("This user has been suspended. You cannot send messages to them")
	}

	sender, err := s.lookup(ctx, senderID, "Sender not found")
	if err != nil {
		return nil, err
	}

	return s.append(ctx, conversation.ID, sender, text, s.now())
}

func (s *ChatService) append(ctx context.Context, conversationID uuid.UUID, sender *models.User, text string, at time.Time) (*models.Message, error) {
	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       sender.ID,
		SenderEmail:    sender.Email,
		Text:           text,
		Timestamp:      at,
	}
	if err := s.conversations.AppendMessage(ctx, message); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Conversation not found")
		}
		return nil, apperr.Unexpected("Failed to send message", err)
	}
	s.metrics.MessagesSent.Inc()
	return message, nil
}

// ListMessages сообщения по возрастанию времени; since не включается
func (s *ChatService) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, since *time.Time) (*MessagesPage, error) {
	conversation, err := s.participantConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	otherID := conversation.Other(userID)
	var (
		messages []models.Message
		other    *models.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.conversations.ListMessages(gctx, conversation.ID, since)
		return err
	})
	g.Go(func() error {
		// Статус блокировки всегда читается заново
		var err error
		other, err = s.users.GetUser(gctx, otherID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Unexpected("Failed to load messages", err)
	}

	return &MessagesPage{
		ConversationID: conversation.ID,
		Messages:       messages,
		OtherUserID:    otherID,
		Suspended:      other != nil && other.Disabled,
	}, nil
}

// ListConversations переписки пользователя по убыванию last_updated,
// с отображаемым именем собеседника
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID, since *time.Time) ([]models.Conversation, error) {
	conversations, err := s.conversations.ListConversations(ctx, userID, since)
	if err != nil {
		return nil, apperr.Unexpected("Failed to load conversations", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i := range conversations {
		g.Go(func() error {
			conversations[i].DisplayEmail = s.names.DisplayName(gctx, conversations[i].Other(userID))
			return nil
		})
	}
	_ = g.Wait()

	return conversations, nil
}

// participantConversation читает переписку и проверяет участие пользователя
func (s *ChatService) participantConversation(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Conversation not found")
		}
		return nil, apperr.Unexpected("Failed to load conversation", err)
	}
	if !conversation.HasParticipant(userID) {
		return nil, apperr.Authorization("You are not a participant of this conversation")
	}
	return conversation, nil
}

func (s *ChatService) lookup(ctx context.Context, id uuid.UUID, notFoundMsg string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(notFoundMsg)
		}
		return nil, apperr.Unexpected("Failed to load user", err)
	}
	return user, nil
}
