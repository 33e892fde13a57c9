package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/models"
)

// Memory хранилище в памяти процесса.
// Все операции выполняются под одной блокировкой, поэтому составные
// изменения (принятие запроса с резервированием объявлений) атомарны.
type Memory struct {
	mu            sync.Mutex
	seq           int64
	users         map[uuid.UUID]*models.User
	listings      map[uuid.UUID]*memListing
	swapRequests  map[uuid.UUID]*memSwapRequest
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID][]*models.Message
	reports       []*models.Report
	favorites     map[uuid.UUID]*memFavorite
}

type memListing struct {
	seq int64
	models.Listing
}

type memSwapRequest struct {
	seq int64
	models.SwapRequest
}

type memFavorite struct {
	seq int64
	models.Favorite
}

var _ Store = (*Memory)(nil)

// NewMemory создает пустое хранилище в памяти
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[uuid.UUID]*models.User),
		listings:      make(map[uuid.UUID]*memListing),
		swapRequests:  make(map[uuid.UUID]*memSwapRequest),
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID][]*models.Message),
		favorites:     make(map[uuid.UUID]*memFavorite),
	}
}

func (m *Memory) next() int64 {
	m.seq++
	return m.seq
}

// --- объявления ---

func copyListing(l *models.Listing) *models.Listing {
	out := *l
	out.Attributes = make(map[string]string, len(l.Attributes))
	for k, v := range l.Attributes {
		out.Attributes[k] = v
	}
	out.Images = append([]models.ListingImage(nil), l.Images...)
	return &out
}

func (m *Memory) CreateListing(_ context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.listings[l.ID]; exists {
		return ErrDuplicate
	}
	m.listings[l.ID] = &memListing{seq: m.next(), Listing: *copyListing(l)}
	return nil
}

func (m *Memory) GetListing(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyListing(&l.Listing), nil
}

func (m *Memory) ListListings(_ context.Context, f models.ListingFilter) ([]models.Listing, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*memListing, 0, len(m.listings))
	for _, l := range m.listings {
		if f.Matches(&l.Listing) {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	total := len(matched)
	start, end := window(total, f.Limit, f.Offset)
	out := make([]models.Listing, 0, end-start)
	for _, l := range matched[start:end] {
		out = append(out, *copyListing(&l.Listing))
	}
	return out, total, nil
}

func (m *Memory) UpdateListing(_ context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.listings[l.ID]
	if !ok {
		return ErrNotFound
	}
	updated := copyListing(l)
	// Статус меняется только через принятие запроса
	updated.Status = stored.Status
	updated.UserID = stored.UserID
	updated.CreatedAt = stored.CreatedAt
	if l.Images == nil {
		updated.Images = stored.Images
	}
	stored.Listing = *updated
	return nil
}

func (m *Memory) DeleteListing(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return ErrNotFound
	}
	if l.Status != models.ListingActive {
		return ErrListingUnavailable
	}
	delete(m.listings, id)
	return nil
}

// --- запросы на обмен ---

func copySwapRequest(r *models.SwapRequest) *models.SwapRequest {
	out := *r
	if r.OfferedListingID != nil {
		id := *r.OfferedListingID
		out.OfferedListingID = &id
	}
	if r.ContactInfo != nil {
		ci := *r.ContactInfo
		out.ContactInfo = &ci
	}
	if r.AcceptedAt != nil {
		at := *r.AcceptedAt
		out.AcceptedAt = &at
	}
	if r.RejectedAt != nil {
		at := *r.RejectedAt
		out.RejectedAt = &at
	}
	out.TargetListing = nil
	out.OfferedListing = nil
	out.ConversationID = nil
	return &out
}

func (m *Memory) hasPendingLocked(senderID, targetListingID uuid.UUID) bool {
	for _, r := range m.swapRequests {
		if r.SenderID == senderID && r.TargetListingID == targetListingID && r.Status == models.SwapPending {
			return true
		}
	}
	return false
}

func (m *Memory) HasPendingSwapRequest(_ context.Context, senderID, targetListingID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasPendingLocked(senderID, targetListingID), nil
}

func (m *Memory) CreateSwapRequest(_ context.Context, r *models.SwapRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.swapRequests[r.ID]; exists {
		return ErrDuplicate
	}
	// Эквивалент частичного уникального индекса в postgres
	if r.Status == models.SwapPending && m.hasPendingLocked(r.SenderID, r.TargetListingID) {
		return ErrPendingExists
	}
	m.swapRequests[r.ID] = &memSwapRequest{seq: m.next(), SwapRequest: *copySwapRequest(r)}
	return nil
}

func (m *Memory) GetSwapRequest(_ context.Context, id uuid.UUID) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.swapRequests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySwapRequest(&r.SwapRequest), nil
}

func (m *Memory) ListSwapRequests(_ context.Context, userID uuid.UUID, role models.Role) ([]models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*memSwapRequest, 0)
	for _, r := range m.swapRequests {
		if (role == models.RoleSender && r.SenderID == userID) ||
			(role == models.RoleReceiver && r.ReceiverID == userID) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	out := make([]models.SwapRequest, 0, len(matched))
	for _, r := range matched {
		out = append(out, *copySwapRequest(&r.SwapRequest))
	}
	return out, nil
}

func (m *Memory) ApplySwapTransition(_ context.Context, t models.SwapTransition) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.swapRequests[t.RequestID]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != t.From {
		return nil, ErrStaleState
	}

	// Сначала проверяем все объявления, чтобы не изменить ничего при отказе
	for _, id := range t.ReserveListings {
		l, ok := m.listings[id]
		if !ok || l.Status != models.ListingActive {
			return nil, ErrListingUnavailable
		}
	}
	for _, id := range t.ReserveListings {
		m.listings[id].Status = models.ListingReserved
		m.listings[id].UpdatedAt = t.At
	}

	at := t.At
	r.Status = t.To
	switch t.To {
	case models.SwapAccepted:
		r.AcceptedAt = &at
	case models.SwapRejected:
		r.RejectedAt = &at
	}
	if t.ContactInfo != nil {
		ci := *t.ContactInfo
		r.ContactInfo = &ci
	}
	if t.NotifySender {
		r.SenderViewed = false
	}
	return copySwapRequest(&r.SwapRequest), nil
}

func (m *Memory) DeleteSwapRequest(_ context.Context, id uuid.UUID, expected models.SwapStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.swapRequests[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != expected {
		return ErrStaleState
	}
	delete(m.swapRequests, id)
	return nil
}

// --- уведомления ---

func (m *Memory) CountUnreadMessages(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, c := range m.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		for _, msg := range m.messages[id] {
			if !msg.Read && msg.SenderID != userID {
				count++
			}
		}
	}
	return count, nil
}

func (m *Memory) CountUnviewedReceived(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.swapRequests {
		if r.ReceiverID == userID && !r.ReceiverViewed {
			count++
		}
	}
	return count, nil
}

func (m *Memory) CountUnviewedSent(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.swapRequests {
		if r.SenderID == userID && !r.SenderViewed && r.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

func (m *Memory) SetSwapRequestViewed(_ context.Context, id uuid.UUID, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.swapRequests[id]
	if !ok {
		return ErrNotFound
	}
	switch role {
	case models.RoleReceiver:
		r.ReceiverViewed = true
	case models.RoleSender:
		r.SenderViewed = true
	}
	return nil
}

func (m *Memory) MarkAllReceivedViewed(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.swapRequests {
		if r.ReceiverID == userID && !r.ReceiverViewed {
			r.ReceiverViewed = true
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkAllSentViewed(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.swapRequests {
		if r.SenderID == userID && !r.SenderViewed && r.Status.Terminal() {
			r.SenderViewed = true
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkMessagesRead(_ context.Context, conversationID, readerID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return 0, ErrNotFound
	}
	count := 0
	for _, msg := range m.messages[conversationID] {
		if !msg.Read && msg.SenderID != readerID {
			msg.Read = true
			count++
		}
	}
	return count, nil
}

// --- переписки ---

func copyConversation(c *models.Conversation) *models.Conversation {
	out := *c
	if c.ListingID != nil {
		id := *c.ListingID
		out.ListingID = &id
	}
	out.DisplayEmail = ""
	return &out
}

func (m *Memory) EnsureConversation(_ context.Context, c *models.Conversation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.conversations[c.ID]; ok {
		*c = *copyConversation(existing)
		return false, nil
	}
	m.conversations[c.ID] = copyConversation(c)
	return true, nil
}

func (m *Memory) AppendMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		return ErrNotFound
	}
	stored := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &stored)
	if msg.Timestamp.After(c.LastUpdated) {
		c.LastUpdated = msg.Timestamp
	}
	return nil
}

func (m *Memory) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(c), nil
}

func (m *Memory) ListMessages(_ context.Context, conversationID uuid.UUID, since *time.Time) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]models.Message, 0, len(m.messages[conversationID]))
	for _, msg := range m.messages[conversationID] {
		if since != nil && !msg.Timestamp.After(*since) {
			continue
		}
		out = append(out, *msg)
	}
	// Сообщения добавляются по порядку, стабильная сортировка сохраняет его при равных метках
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *Memory) ListConversations(_ context.Context, userID uuid.UUID, since *time.Time) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Conversation, 0)
	for _, c := range m.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		if since != nil && !c.LastUpdated.After(*since) {
			continue
		}
		out = append(out, *copyConversation(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

// --- пользователи ---

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[u.ID]; exists {
		return ErrDuplicate
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *Memory) UpsertTelegramUser(_ context.Context, p models.TelegramProfile) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, u := range m.users {
		if u.TelegramID == p.TelegramID {
			u.Username, u.FirstName, u.LastName, u.AvatarURL = p.Username, p.FirstName, p.LastName, p.PhotoURL
			u.LastLoginAt = now
			u.UpdatedAt = now
			out := *u
			return &out, nil
		}
	}

	u := &models.User{
		ID:          uuid.New(),
		TelegramID:  p.TelegramID,
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		AvatarURL:   p.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	m.users[u.ID] = u
	out := *u
	return &out, nil
}

func (m *Memory) UpdateUserEmail(_ context.Context, id uuid.UUID, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Email = email
	u.UpdatedAt = time.Now().UTC()
	out := *u
	return &out, nil
}

func (m *Memory) SetUserDisabled(_ context.Context, id uuid.UUID, disabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Disabled = disabled
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// --- жалобы ---

func (m *Memory) CreateReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *r
	stored.Evidence = append([]string(nil), r.Evidence...)
	m.reports = append(m.reports, &stored)
	return nil
}

// Reports возвращает сохраненные жалобы
func (m *Memory) Reports() []models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, *r)
	}
	return out
}

// --- избранное ---

func (m *Memory) AddFavorite(_ context.Context, f *models.Favorite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.favorites {
		if existing.UserID == f.UserID && existing.ListingID == f.ListingID {
			return ErrDuplicate
		}
	}
	m.favorites[f.ID] = &memFavorite{seq: m.next(), Favorite: *f}
	return nil
}

func (m *Memory) RemoveFavorite(_ context.Context, userID, listingID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, f := range m.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			delete(m.favorites, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListFavorites(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Favorite, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*memFavorite, 0)
	for _, f := range m.favorites {
		if f.UserID == userID {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	total := len(matched)
	start, end := window(total, limit, offset)
	out := make([]models.Favorite, 0, end-start)
	for _, f := range matched[start:end] {
		fav := f.Favorite
		if l, ok := m.listings[fav.ListingID]; ok {
			fav.Listing = copyListing(&l.Listing)
		}
		out = append(out, fav)
	}
	return out, total, nil
}

func (m *Memory) IsFavorite(_ context.Context, userID, listingID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			return true, nil
		}
	}
	return false, nil
}

// window вычисляет границы страницы; limit <= 0 означает без ограничения
func window(total, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return offset, end
}
