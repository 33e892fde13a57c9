package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

// Counts счетчики уведомлений пользователя
type Counts struct {
	UnreadMessages           int `json:"unread_messages"`
	UnviewedReceivedRequests int `json:"unviewed_received_requests"`
	UnviewedSentRequests     int `json:"unviewed_sent_requests"`
	TotalUnviewedRequests    int `json:"total_unviewed_requests"`
}

// Service считает уведомления по запросу и снимает флаги просмотра
type Service struct {
	notifications store.NotificationStore
	conversations store.ConversationStore
	requests      store.SwapRequestStore
}

// NewService создает сервис уведомлений
func NewService(notifications store.NotificationStore, conversations store.ConversationStore, requests store.SwapRequestStore) *Service {
	return &Service{notifications: notifications, conversations: conversations, requests: requests}
}

// Counts вычисляет три счетчика параллельно
func (s *Service) Counts(ctx context.Context, userID uuid.UUID) (*Counts, error) {
	var counts Counts

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts.UnreadMessages, err = s.notifications.CountUnreadMessages(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		counts.UnviewedReceivedRequests, err = s.notifications.CountUnviewedReceived(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		counts.UnviewedSentRequests, err = s.notifications.CountUnviewedSent(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Unexpected("Failed to load notification counts", err)
	}

	counts.TotalUnviewedRequests = counts.UnviewedReceivedRequests + counts.UnviewedSentRequests
	return &counts, nil
}

// MarkMessagesRead отмечает прочитанными входящие сообщения переписки
func (s *Service) MarkMessagesRead(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	conversation, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, apperr.NotFound("Conversation not found")
		}
		return 0, apperr.Unexpected("Failed to load conversation", err)
	}
	if !conversation.HasParticipant(userID) {
		return 0, apperr.Authorization("You are not a participant of this conversation")
	}

	n, err := s.notifications.MarkMessagesRead(ctx, conversationID, userID)
	if err != nil {
		return 0, apperr.Unexpected("Failed to mark messages as read", err)
	}
	return n, nil
}

// MarkRequestViewed снимает флаг для роли, которую пользователь играет в запросе
func (s *Service) MarkRequestViewed(ctx context.Context, requestID, userID uuid.UUID) (models.Role, error) {
	request, err := s.requests.GetSwapRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound("Swap request not found")
		}
		return "", apperr.Unexpected("Failed to load swap request", err)
	}

	var role models.Role
	switch userID {
	case request.ReceiverID:
		role = models.RoleReceiver
	case request.SenderID:
		role = models.RoleSender
	default:
		return "", apperr.Authorization("Unauthorized. You are not a party to this request")
	}

	if err := s.notifications.SetSwapRequestViewed(ctx, requestID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound("Swap request not found")
		}
		return "", apperr.Unexpected("Failed to mark request as viewed", err)
	}
	return role, nil
}

// MarkAllReceivedViewed отмечает все входящие запросы просмотренными
func (s *Service) MarkAllReceivedViewed(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.notifications.MarkAllReceivedViewed(ctx, userID)
	if err != nil {
		return 0, apperr.Unexpected("Failed to mark requests as viewed", err)
	}
	return n, nil
}

// MarkAllSentViewed отмечает просмотренными изменения статуса отправленных запросов
func (s *Service) MarkAllSentViewed(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.notifications.MarkAllSentViewed(ctx, userID)
	if err != nil {
		return 0, apperr.Unexpected("Failed to mark requests as viewed", err)
	}
	return n, nil
}
