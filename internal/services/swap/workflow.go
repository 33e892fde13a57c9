package swap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

// hydrateLimit ограничивает число одновременных чтений объявлений
const hydrateLimit = 8

// ConversationOpener открывает переписку или дописывает в существующую
type ConversationOpener interface {
	OpenOrAppend(ctx context.Context, open models.ConversationOpen) (*models.ConversationOpenResult, error)
}

// CreateInput параметры создания запроса; ID объявлений приходят от клиента как есть
type CreateInput struct {
	SenderID         uuid.UUID
	TargetListingID  string
	RequestType      string
	OfferedListingID string
	Message          string
}

// Workflow управляет жизненным циклом запросов на обмен
type Workflow struct {
	listings      store.ListingStore
	requests      store.SwapRequestStore
	conversations ConversationOpener
	metrics       *metrics.Metrics
	validate      *validator.Validate
	now           func() time.Time
}

// NewWorkflow создает workflow поверх хранилищ
func NewWorkflow(listings store.ListingStore, requests store.SwapRequestStore, conversations ConversationOpener, m *metrics.Metrics) *Workflow {
	return &Workflow{
		listings:      listings,
		requests:      requests,
		conversations: conversations,
		metrics:       m,
		validate:      validator.New(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Create проверяет предусловия по порядку и создает ожидающий запрос
func (w *Workflow) Create(ctx context.Context, in CreateInput) (*models.SwapRequest, error) {
	requestType := models.RequestType(in.RequestType)
	if requestType != models.RequestBuy && requestType != models.RequestSwap {
		return nil, apperr.Validation("Invalid request type. Must be 'swap' or 'buy'")
	}

	offeredRaw := strings.TrimSpace(in.OfferedListingID)
	if requestType == models.RequestSwap && offeredRaw == "" {
		return nil, apperr.Validation("An offered listing is required for swap requests")
	}

	if strings.TrimSpace(in.TargetListingID) == "" {
		return nil, apperr.Validation("Target listing ID is required")
	}

	target, err := w.resolveListing(ctx, in.TargetListingID, "Target listing not found")
	if err != nil {
		return nil, err
	}

	if target.UserID == in.SenderID {
		return nil, apperr.Validation("Cannot create a request for your own listing")
	}

	var offered *models.Listing
	if requestType == models.RequestSwap {
		offered, err = w.resolveListing(ctx, offeredRaw, "Offered listing not found")
		if err != nil {
			return nil, err
		}
		if offered.UserID != in.SenderID {
			return nil, apperr.Authorization("You can only offer listings you own")
		}
	}

	pending, err := w.requests.HasPendingSwapRequest(ctx, in.SenderID, target.ID)
	if err != nil {
		return nil, apperr.Unexpected("Failed to check existing requests", err)
	}
	if pending {
		return nil, apperr.Conflict("You already have a pending request for this listing")
	}

	request := &models.SwapRequest{
		ID:              uuid.New(),
		SenderID:        in.SenderID,
		ReceiverID:      target.UserID,
		TargetListingID: target.ID,
		RequestType:     requestType,
		Message:         strings.TrimSpace(in.Message),
		Status:          models.SwapPending,
		ReceiverViewed:  false,
		SenderViewed:    true,
		CreatedAt:       w.now(),
	}
	if offered != nil {
		id := offered.ID
		request.OfferedListingID = &id
	}

	if err := w.requests.CreateSwapRequest(ctx, request); err != nil {
		if errors.Is(err, store.ErrPendingExists) {
			return nil, apperr.Conflict("You already have a pending request for this listing")
		}
		return nil, apperr.Unexpected("Failed to create swap request", err)
	}
	w.metrics.SwapRequests.WithLabelValues(string(requestType)).Inc()

	// Запрос уже сохранен; сбой переписки только логируется.
	// Пустой текст заменяется приветствием с названием объявления.
	listingID := target.ID
	result, err := w.conversations.OpenOrAppend(ctx, models.ConversationOpen{
		SenderID:    in.SenderID,
		RecipientID: target.UserID,
		ListingID:   &listingID,
		ListingName: target.Title,
		Text:        request.Message,
	})
	if err != nil {
		log.Printf("Не удалось открыть переписку для запроса %s: %v", request.ID, err)
	} else {
		convID := result.Conversation.ID
		request.ConversationID = &convID
	}

	request.TargetListing = target
	request.OfferedListing = offered
	return request, nil
}

// resolveListing разбирает ID и читает объявление; неразборчивый ID считается ненайденным
func (w *Workflow) resolveListing(ctx context.Context, raw, notFoundMsg string) (*models.Listing, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperr.NotFound(notFoundMsg)
	}
	listing, err := w.listings.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(notFoundMsg)
		}
		return nil, apperr.Unexpected("Failed to load listing", err)
	}
	return listing, nil
}

// loadRequest читает запрос и проверяет, что действует его получатель или отправитель
func (w *Workflow) loadRequest(ctx context.Context, requestID, actorID uuid.UUID, role models.Role, denied string) (*models.SwapRequest, error) {
	request, err := w.requests.GetSwapRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Swap request not found")
		}
		return nil, apperr.Unexpected("Failed to load swap request", err)
	}

	owner := request.ReceiverID
	if role == models.RoleSender {
		owner = request.SenderID
	}
	if owner != actorID {
		return nil, apperr.Authorization(denied)
	}
	return request, nil
}

// Accept принимает запрос и резервирует объявления одной транзакцией
func (w *Workflow) Accept(ctx context.Context, requestID, actorID uuid.UUID, contact *models.ContactInfo) (*models.SwapRequest, error) {
	updated, err := w.accept(ctx, requestID, actorID, contact)
	w.metrics.SwapTransitions.WithLabelValues(string(ActionAccept), metrics.Outcome(err)).Inc()
	return updated, err
}

func (w *Workflow) accept(ctx context.Context, requestID, actorID uuid.UUID, contact *models.ContactInfo) (*models.SwapRequest, error) {
	request, err := w.loadRequest(ctx, requestID, actorID, models.RoleReceiver,
		"Unauthorized. You can only accept requests sent to you")
	if err != nil {
		return nil, err
	}

	to, ok := Next(request.Status, ActionAccept)
	if !ok {
		return nil, alreadyTerminal(request.Status)
	}

	if err := w.validateContact(contact); err != nil {
		return nil, err
	}

	reserve := []uuid.UUID{request.TargetListingID}
	if request.RequestType == models.RequestSwap && request.OfferedListingID != nil {
		reserve = append(reserve, *request.OfferedListingID)
	}

	updated, err := w.requests.ApplySwapTransition(ctx, models.SwapTransition{
		RequestID:       request.ID,
		From:            request.Status,
		To:              to,
		At:              w.now(),
		ContactInfo:     contact,
		ReserveListings: reserve,
		NotifySender:    true,
	})
	if err != nil {
		return nil, w.transitionError(ctx, request.ID, err)
	}

	w.hydrate(ctx, []*models.SwapRequest{updated})
	return updated, nil
}

func (w *Workflow) validateContact(contact *models.ContactInfo) error {
	if contact == nil || strings.TrimSpace(contact.Email) == "" {
		return apperr.Validation("Contact email is required to accept a request")
	}
	contact.Email = strings.TrimSpace(contact.Email)
	if err := w.validate.Struct(contact); err != nil {
		return apperr.Validation("Contact email must be a valid email address")
	}
	return nil
}

// Reject отклоняет ожидающий запрос
func (w *Workflow) Reject(ctx context.Context, requestID, actorID uuid.UUID) (*models.SwapRequest, error) {
	updated, err := w.reject(ctx, requestID, actorID)
	w.metrics.SwapTransitions.WithLabelValues(string(ActionReject), metrics.Outcome(err)).Inc()
	return updated, err
}

func (w *Workflow) reject(ctx context.Context, requestID, actorID uuid.UUID) (*models.SwapRequest, error) {
	request, err := w.loadRequest(ctx, requestID, actorID, models.RoleReceiver,
		"Unauthorized. You can only reject requests sent to you")
	if err != nil {
		return nil, err
	}

	to, ok := Next(request.Status, ActionReject)
	if !ok {
		return nil, alreadyTerminal(request.Status)
	}

	updated, err := w.requests.ApplySwapTransition(ctx, models.SwapTransition{
		RequestID:    request.ID,
		From:         request.Status,
		To:           to,
		At:           w.now(),
		NotifySender: true,
	})
	if err != nil {
		return nil, w.transitionError(ctx, request.ID, err)
	}

	w.hydrate(ctx, []*models.SwapRequest{updated})
	return updated, nil
}

// Cancel удаляет ожидающий или отклоненный запрос по инициативе отправителя
func (w *Workflow) Cancel(ctx context.Context, requestID, actorID uuid.UUID) error {
	err := w.cancel(ctx, requestID, actorID)
	w.metrics.SwapTransitions.WithLabelValues(string(ActionCancel), metrics.Outcome(err)).Inc()
	return err
}

func (w *Workflow) cancel(ctx context.Context, requestID, actorID uuid.UUID) error {
	request, err := w.loadRequest(ctx, requestID, actorID, models.RoleSender,
		"Unauthorized. You can only cancel requests you sent")
	if err != nil {
		return err
	}

	status := request.Status
	// Статус мог смениться между чтением и удалением: pending -> rejected
	// все еще допускает отмену, поэтому удаление повторяется один раз
	for attempt := 0; ; attempt++ {
		if _, ok := Next(status, ActionCancel); !ok {
			return cannotCancel(status)
		}

		err = w.requests.DeleteSwapRequest(ctx, request.ID, status)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, store.ErrNotFound):
			return apperr.NotFound("Swap request not found")
		case errors.Is(err, store.ErrStaleState):
			current, getErr := w.requests.GetSwapRequest(ctx, request.ID)
			if getErr != nil {
				return apperr.NotFound("Swap request not found")
			}
			if attempt > 0 {
				return cannotCancel(current.Status)
			}
			status = current.Status
		default:
			return apperr.Unexpected("Failed to cancel swap request", err)
		}
	}
}

// transitionError переводит ошибки хранилища после неудачного перехода
func (w *Workflow) transitionError(ctx context.Context, requestID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Swap request not found")
	case errors.Is(err, store.ErrListingUnavailable):
		return apperr.Conflict("One of the listings in this request is no longer available")
	case errors.Is(err, store.ErrStaleState):
		// Другой запрос успел изменить статус между чтением и записью
		current, getErr := w.requests.GetSwapRequest(ctx, requestID)
		if getErr != nil {
			return apperr.NotFound("Swap request not found")
		}
		return alreadyTerminal(current.Status)
	default:
		return apperr.Unexpected("Failed to update swap request", err)
	}
}

func alreadyTerminal(status models.SwapStatus) error {
	return apperr.Conflict(fmt.Sprintf("This request has already been %s", status))
}

func cannotCancel(status models.SwapStatus) error {
	if status == models.SwapAccepted {
		return apperr.Conflict("Cannot cancel an already accepted request")
	}
	return apperr.Conflict(fmt.Sprintf("Cannot cancel a request that is %s", status))
}

// List возвращает запросы пользователя в выбранной роли, новые первыми
func (w *Workflow) List(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.SwapRequest, error) {
	requests, err := w.requests.ListSwapRequests(ctx, userID, role)
	if err != nil {
		return nil, apperr.Unexpected("Failed to load swap requests", err)
	}

	ptrs := make([]*models.SwapRequest, len(requests))
	for i := range requests {
		ptrs[i] = &requests[i]
	}
	w.hydrate(ctx, ptrs)
	return requests, nil
}

// hydrate подгружает объявления параллельно; ненайденное объявление пропускается
func (w *Workflow) hydrate(ctx context.Context, requests []*models.SwapRequest) {
	ids := make(map[uuid.UUID]struct{})
	for _, r := range requests {
		ids[r.TargetListingID] = struct{}{}
		if r.OfferedListingID != nil {
			ids[*r.OfferedListingID] = struct{}{}
		}
	}

	var mu sync.Mutex
	loaded := make(map[uuid.UUID]*models.Listing, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateLimit)
	for id := range ids {
		g.Go(func() error {
			listing, err := w.listings.GetListing(gctx, id)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					log.Printf("Ошибка загрузки объявления %s: %v", id, err)
				}
				return nil
			}
			mu.Lock()
			loaded[id] = listing
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range requests {
		r.TargetListing = loaded[r.TargetListingID]
		if r.OfferedListingID != nil {
			r.OfferedListing = loaded[*r.OfferedListingID]
		}
	}
}
