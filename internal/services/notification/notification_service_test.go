package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

type fixture struct {
	ctx     context.Context
	store   *store.Memory
	service *Service
	a, b    uuid.UUID
}

func newFixture() *fixture {
	st := store.NewMemory()
	return &fixture{
		ctx:     context.Background(),
		store:   st,
		service: NewService(st, st, st),
		a:       uuid.New(),
		b:       uuid.New(),
	}
}

// request создает ожидающий запрос от a к b
func (f *fixture) request(t *testing.T) *models.SwapRequest {
	t.Helper()
	r := &models.SwapRequest{
		ID:              uuid.New(),
		SenderID:        f.a,
		ReceiverID:      f.b,
		TargetListingID: uuid.New(),
		RequestType:     models.RequestBuy,
		Status:          models.SwapPending,
		SenderViewed:    true,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateSwapRequest(f.ctx, r))
	return r
}

func (f *fixture) counts(t *testing.T, user uuid.UUID) *Counts {
	t.Helper()
	c, err := f.service.Counts(f.ctx, user)
	require.NoError(t, err)
	return c
}

func TestReceivedCounterLifecycle(t *testing.T) {
	f := newFixture()
	f.request(t)
	assert.Equal(t, 1, f.counts(t, f.b).UnviewedReceivedRequests)

	f.request(t)
	assert.Equal(t, 2, f.counts(t, f.b).UnviewedReceivedRequests)

	n, err := f.service.MarkAllReceivedViewed(f.ctx, f.b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c := f.counts(t, f.b)
	assert.Zero(t, c.UnviewedReceivedRequests)
	assert.Zero(t, c.TotalUnviewedRequests)
}

func TestSentCounterAfterReject(t *testing.T) {
	f := newFixture()
	r := f.request(t)
	assert.Zero(t, f.counts(t, f.a).UnviewedSentRequests)

	_, err := f.store.ApplySwapTransition(f.ctx, models.SwapTransition{
		RequestID: r.ID, From: models.SwapPending, To: models.SwapRejected, At: time.Now(), NotifySender: true,
	})
	require.NoError(t, err)

	c := f.counts(t, f.a)
	assert.Equal(t, 1, c.UnviewedSentRequests)
	assert.Equal(t, 1, c.TotalUnviewedRequests)

	role, err := f.service.MarkRequestViewed(f.ctx, r.ID, f.a)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSender, role)
	assert.Zero(t, f.counts(t, f.a).UnviewedSentRequests)
}

func TestMarkRequestViewedRoles(t *testing.T) {
	f := newFixture()
	r := f.request(t)

	role, err := f.service.MarkRequestViewed(f.ctx, r.ID, f.b)
	require.NoError(t, err)
	assert.Equal(t, models.RoleReceiver, role)
	assert.Zero(t, f.counts(t, f.b).UnviewedReceivedRequests)

	_, err = f.service.MarkRequestViewed(f.ctx, r.ID, uuid.New())
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	_, err = f.service.MarkRequestViewed(f.ctx, uuid.New(), f.b)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMarkMessagesRead(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	conv := &models.Conversation{ID: uuid.New(), Participants: [2]uuid.UUID{f.a, f.b}, CreatedAt: now, LastUpdated: now}
	_, err := f.store.EnsureConversation(f.ctx, conv)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.AppendMessage(f.ctx, &models.Message{
			ID: uuid.New(), ConversationID: conv.ID, SenderID: f.a, Text: "ping", Timestamp: now,
		}))
	}
	assert.Equal(t, 3, f.counts(t, f.b).UnreadMessages)
	assert.Zero(t, f.counts(t, f.a).UnreadMessages)

	_, err = f.service.MarkMessagesRead(f.ctx, conv.ID, uuid.New())
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	n, err := f.service.MarkMessagesRead(f.ctx, conv.ID, f.b)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, f.counts(t, f.b).UnreadMessages)

	_, err = f.service.MarkMessagesRead(f.ctx, uuid.New(), f.b)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
