package swap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/identity"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/services/chat"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

type fixture struct {
	ctx      context.Context
	store    *store.Memory
	metrics  *metrics.Metrics
	workflow *Workflow
	a, b     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	m := metrics.New()
	directory, err := identity.NewDirectory(st, 16)
	require.NoError(t, err)
	chatService := chat.NewChatService(st, st, directory, m)

	f := &fixture{
		ctx:      context.Background(),
		store:    st,
		metrics:  m,
		workflow: NewWorkflow(st, st, chatService, m),
	}
	f.a = f.user(t, "a@example.com")
	f.b = f.user(t, "b@example.com")
	return f
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.store.CreateUser(f.ctx, u))
	return u
}

func (f *fixture) listing(t *testing.T, owner *models.User, title string) *models.Listing {
	t.Helper()
	now := time.Now().UTC()
	l := &models.Listing{
		ID:        uuid.New(),
		UserID:    owner.ID,
		Title:     title,
		Price:     5000,
		Condition: "good",
		Location:  "Almaty",
		Status:    models.ListingActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.CreateListing(f.ctx, l))
	return l
}

func (f *fixture) buy(t *testing.T, sender *models.User, target *models.Listing) *models.SwapRequest {
	t.Helper()
	r, err := f.workflow.Create(f.ctx, CreateInput{
		SenderID:        sender.ID,
		TargetListingID: target.ID.String(),
		RequestType:     "buy",
	})
	require.NoError(t, err)
	return r
}

func assertAppErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
	if msg != "" {
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, msg, appErr.Message)
	}
}

func TestCreateBuyRequest(t *testing.T) {
	f := newFixture(t)
	f.listing(t, f.a, "L1")
	l2 := f.listing(t, f.b, "Honda Civic")

	r := f.buy(t, f.a, l2)

	assert.Equal(t, models.SwapPending, r.Status)
	assert.Equal(t, f.b.ID, r.ReceiverID)
	assert.Equal(t, f.a.ID, r.SenderID)
	assert.False(t, r.ReceiverViewed)
	assert.True(t, r.SenderViewed)
	assert.Nil(t, r.OfferedListingID)
	require.NotNil(t, r.TargetListing)
	assert.Equal(t, l2.ID, r.TargetListing.ID)
	require.NotNil(t, r.ConversationID)
	assert.Equal(t, chat.ConversationID(f.a.ID, f.b.ID), *r.ConversationID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SwapRequests.WithLabelValues("buy")))

	msgs, err := f.store.ListMessages(f.ctx, *r.ConversationID, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.DefaultMessage("Honda Civic"), msgs[0].Text)
	assert.Equal(t, "a@example.com", msgs[0].SenderEmail)
}

func TestCreateSecondPendingRejected(t *testing.T) {
	f := newFixture(t)
	l2 := f.listing(t, f.b, "L2")
	f.buy(t, f.a, l2)

	_, err := f.workflow.Create(f.ctx, CreateInput{SenderID: f.a.ID, TargetListingID: l2.ID.String(), RequestType: "buy"})
	assertAppErr(t, err, apperr.KindConflict, "You already have a pending request for this listing")
}

func TestCreatePreconditionOrder(t *testing.T) {
	f := newFixture(t)
	own := f.listing(t, f.a, "mine")
	other := f.listing(t, f.b, "theirs")
	othersOffer := f.listing(t, f.b, "not mine")

	tests := []struct {
		name string
		in   CreateInput
		kind apperr.Kind
		msg  string
	}{
		{
			name: "bad type wins over missing target",
			in:   CreateInput{SenderID: f.a.ID, RequestType: "rent"},
			kind: apperr.KindValidation,
			msg:  "Invalid request type. Must be 'swap' or 'buy'",
		},
		{
			name: "swap without offered listing",
			in:   CreateInput{SenderID: f.a.ID, TargetListingID: other.ID.String(), RequestType: "swap"},
			kind: apperr.KindValidation,
			msg:  "An offered listing is required for swap requests",
		},
		{
			name: "missing target id",
			in:   CreateInput{SenderID: f.a.ID, TargetListingID: "  ", RequestType: "buy"},
			kind: apperr.KindValidation,
			msg:  "Target listing ID is required",
		},
		{
			name: "unknown target",
			in:   CreateInput{SenderID: f.a.ID, TargetListingID: uuid.NewString(), RequestType: "buy"},
			kind: apperr.KindNotFound,
			msg:  "Target listing not found",
		},
		{
			name: "malformed target id",
			in:   CreateInput{SenderID: f.a.ID, TargetListingID: "nope", RequestType: "buy"},
			kind: apperr.KindNotFound,
			msg:  "Target listing not found",
		},
		{
			name: "own listing",
			in:   CreateInput{SenderID: f.a.ID, TargetListingID: own.ID.String(), RequestType: "buy"},
			kind: apperr.KindValidation,
			msg:  "Cannot create a request for your own listing",
		},
		{
			name: "unknown offered listing",
			in: CreateInput{SenderID: f.a.ID, TargetListingID: other.ID.String(), RequestType: "swap",
				OfferedListingID: uuid.NewString()},
			kind: apperr.KindNotFound,
			msg:  "Offered listing not found",
		},
		{
			name: "offered listing owned by someone else",
			in: CreateInput{SenderID: f.a.ID, TargetListingID: other.ID.String(), RequestType: "swap",
				OfferedListingID: othersOffer.ID.String()},
			kind: apperr.KindAuthorization,
			msg:  "You can only offer listings you own",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.workflow.Create(f.ctx, tt.in)
			assertAppErr(t, err, tt.kind, tt.msg)
		})
	}
}

func TestCreateConcurrentOnlyOnePending(t *testing.T) {
	f := newFixture(t)
	target := f.listing(t, f.b, "L2")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.Create(f.ctx, CreateInput{SenderID: f.a.ID, TargetListingID: target.ID.String(), RequestType: "buy"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
			} else {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	for _, err := range errs {
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}

	sent, err := f.workflow.List(f.ctx, f.a.ID, models.RoleSender)
	require.NoError(t, err)
	assert.Len(t, sent, 1)
}

func TestAcceptReservesListings(t *testing.T) {
	f := newFixture(t)
	l2 := f.listing(t, f.b, "L2")
	r := f.buy(t, f.a, l2)

	accepted, err := f.workflow.Accept(f.ctx, r.ID, f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)
	assert.False(t, accepted.SenderViewed)
	require.NotNil(t, accepted.ContactInfo)
	assert.Equal(t, "b@x.com", accepted.ContactInfo.Email)
	require.NotNil(t, accepted.TargetListing)
	assert.Equal(t, models.ListingReserved, accepted.TargetListing.Status)

	stored, err := f.store.GetListing(f.ctx, l2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingReserved, stored.Status)

	_, err = f.workflow.Accept(f.ctx, r.ID, f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	assertAppErr(t, err, apperr.KindConflict, "This request has already been accepted")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SwapTransitions.WithLabelValues("accept", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SwapTransitions.WithLabelValues("accept", "error")))
}

func TestAcceptSwapReservesBothListings(t *testing.T) {
	f := newFixture(t)
	offered := f.listing(t, f.a, "L1")
	target := f.listing(t, f.b, "L2")

	r, err := f.workflow.Create(f.ctx, CreateInput{
		SenderID:         f.a.ID,
		TargetListingID:  target.ID.String(),
		RequestType:      "swap",
		OfferedListingID: offered.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, r.OfferedListing)

	_, err = f.workflow.Accept(f.ctx, r.ID, f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	require.NoError(t, err)

	for _, id := range []uuid.UUID{offered.ID, target.ID} {
		l, err := f.store.GetListing(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ListingReserved, l.Status)
	}
}

func TestAcceptPreconditions(t *testing.T) {
	f := newFixture(t)
	l2 := f.listing(t, f.b, "L2")
	r := f.buy(t, f.a, l2)

	_, err := f.workflow.Accept(f.ctx, uuid.New(), f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	assertAppErr(t, err, apperr.KindNotFound, "Swap request not found")

	_, err = f.workflow.Accept(f.ctx, r.ID, f.a.ID, &models.ContactInfo{Email: "b@x.com"})
	assertAppErr(t, err, apperr.KindAuthorization, "Unauthorized. You can only accept requests sent to you")

	_, err = f.workflow.Accept(f.ctx, r.ID, f.b.ID, nil)
	assertAppErr(t, err, apperr.KindValidation, "Contact email is required to accept a request")

	_, err = f.workflow.Accept(f.ctx, r.ID, f.b.ID, &models.ContactInfo{Email: "not-an-email"})
	assertAppErr(t, err, apperr.KindValidation, "Contact email must be a valid email address")

	got, err := f.store.GetSwapRequest(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, got.Status)
}

func TestAcceptReservedListingConflicts(t *testing.T) {
	f := newFixture(t)
	c := f.user(t, "c@example.com")
	l2 := f.listing(t, f.b, "L2")

	first := f.buy(t, f.a, l2)
	second := f.buy(t, c, l2)

	_, err := f.workflow.Accept(f.ctx, first.ID, f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	require.NoError(t, err)

	_, err = f.workflow.Accept(f.ctx, second.ID, f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	assertAppErr(t, err, apperr.KindConflict, "One of the listings in this request is no longer available")

	got, err := f.store.GetSwapRequest(f.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, got.Status)
}

func TestRejectResetsSenderViewed(t *testing.T) {
	f := newFixture(t)
	l2 := f.listing(t, f.b, "L2")
	r := f.buy(t, f.a, l2)

	before, err := f.store.CountUnviewedSent(f.ctx, f.a.ID)
	require.NoError(t, err)

	rejected, err := f.workflow.Reject(f.ctx, r.ID, f.b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapRejected, rejected.Status)
	assert.NotNil(t, rejected.RejectedAt)
	assert.False(t, rejected.SenderViewed)

	after, err := f.store.CountUnviewedSent(f.ctx, f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	stored, err := f.store.GetListing(f.ctx, l2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, stored.Status)

	_, err = f.workflow.Accept(f.ctx, r.ID, f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	assertAppErr(t, err, apperr.KindConflict, "This request has already been rejected")

	_, err = f.workflow.Reject(f.ctx, r.ID, f.a.ID)
	assertAppErr(t, err, apperr.KindAuthorization, "Unauthorized. You can only reject requests sent to you")
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	first := f.buy(t, f.a, f.listing(t, f.b, "L2"))
	other := f.buy(t, f.a, f.listing(t, f.b, "L3"))

	err := f.workflow.Cancel(f.ctx, other.ID, f.b.ID)
	assertAppErr(t, err, apperr.KindAuthorization, "Unauthorized. You can only cancel requests you sent")

	require.NoError(t, f.workflow.Cancel(f.ctx, other.ID, f.a.ID))

	sent, err := f.workflow.List(f.ctx, f.a.ID, models.RoleSender)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, first.ID, sent[0].ID)

	err = f.workflow.Cancel(f.ctx, other.ID, f.a.ID)
	assertAppErr(t, err, apperr.KindNotFound, "Swap request not found")
}

func TestCancelTerminalRequests(t *testing.T) {
	f := newFixture(t)
	accepted := f.buy(t, f.a, f.listing(t, f.b, "L2"))
	rejected := f.buy(t, f.a, f.listing(t, f.b, "L3"))

	_, err := f.workflow.Accept(f.ctx, accepted.ID, f.b.ID, &models.ContactInfo{Email: "b@x.com"})
	require.NoError(t, err)
	_, err = f.workflow.Reject(f.ctx, rejected.ID, f.b.ID)
	require.NoError(t, err)

	err = f.workflow.Cancel(f.ctx, accepted.ID, f.a.ID)
	assertAppErr(t, err, apperr.KindConflict, "Cannot cancel an already accepted request")

	got, err := f.store.GetSwapRequest(f.ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, got.Status)

	// Отклоненный запрос отправитель убирает из списка
	err = f.workflow.Cancel(f.ctx, rejected.ID, f.b.ID)
	assertAppErr(t, err, apperr.KindAuthorization, "Unauthorized. You can only cancel requests you sent")
	require.NoError(t, f.workflow.Cancel(f.ctx, rejected.ID, f.a.ID))

	_, err = f.store.GetSwapRequest(f.ctx, rejected.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	sent, err := f.workflow.List(f.ctx, f.a.ID, models.RoleSender)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, accepted.ID, sent[0].ID)
}

func TestListRoundTrip(t *testing.T) {
	f := newFixture(t)
	offered := f.listing(t, f.a, "L1")
	target := f.listing(t, f.b, "L2")

	created, err := f.workflow.Create(f.ctx, CreateInput{
		SenderID:         f.a.ID,
		TargetListingID:  target.ID.String(),
		RequestType:      "swap",
		OfferedListingID: offered.ID.String(),
		Message:          "trade?",
	})
	require.NoError(t, err)

	for _, tc := range []struct {
		user *models.User
		role models.Role
	}{{f.a, models.RoleSender}, {f.b, models.RoleReceiver}} {
		list, err := f.workflow.List(f.ctx, tc.user.ID, tc.role)
		require.NoError(t, err)
		require.Len(t, list, 1, tc.role)

		got := list[0]
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "trade?", got.Message)
		assert.Equal(t, models.RequestSwap, got.RequestType)
		require.NotNil(t, got.TargetListing)
		assert.Equal(t, "L2", got.TargetListing.Title)
		require.NotNil(t, got.OfferedListing)
		assert.Equal(t, "L1", got.OfferedListing.Title)
	}
}

func TestListOmitsMissingListing(t *testing.T) {
	f := newFixture(t)
	target := f.listing(t, f.b, "L2")
	f.buy(t, f.a, target)
	require.NoError(t, f.store.DeleteListing(f.ctx, target.ID))

	list, err := f.workflow.List(f.ctx, f.b.ID, models.RoleReceiver)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].TargetListing)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	f.workflow.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	older := f.buy(t, f.a, f.listing(t, f.b, "L2"))
	newer := f.buy(t, f.a, f.listing(t, f.b, "L3"))

	list, err := f.workflow.List(f.ctx, f.b.ID, models.RoleReceiver)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestCreateSurvivesConversationFailure(t *testing.T) {
	f := newFixture(t)
	target := f.listing(t, f.b, "L2")
	require.NoError(t, f.store.SetUserDisabled(f.ctx, f.b.ID, true))

	r := f.buy(t, f.a, target)
	assert.Nil(t, r.ConversationID)

	got, err := f.store.GetSwapRequest(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, got.Status)
}
