package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/autoswap-api/internal/apperr"
	"github.com/rajivgeraev/autoswap-api/internal/identity"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

func newService(t *testing.T) (*ChatService, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	directory, err := identity.NewDirectory(st, 16)
	require.NoError(t, err)
	return NewChatService(st, st, directory, metrics.New()), st
}

func addUser(t *testing.T, st *store.Memory, email string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestConversationIDIgnoresOrder(t *testing.T) {
	for i := 0; i < 50; i++ {
		a, b := uuid.New(), uuid.New()
		assert.Equal(t, ConversationID(a, b), ConversationID(b, a))
		assert.Equal(t, SortParticipants(a, b), SortParticipants(b, a))
	}
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.NotEqual(t, ConversationID(a, b), ConversationID(a, c))
}

func TestDefaultMessage(t *testing.T) {
	assert.Equal(t, `Hi! I'm interested in your listing "Lada Niva".`, DefaultMessage("Lada Niva"))
	assert.Equal(t, `Hi! I'm interested in your listing "this item".`, DefaultMessage("  "))
}

func TestOpenOrAppendReusesConversation(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	a := addUser(t, st, "a@example.com")
	b := addUser(t, st, "b@example.com")

	first, err := svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: b.ID, ListingName: "Car"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, DefaultMessage("Car"), first.Message.Text)
	assert.Equal(t, "a@example.com", first.Message.SenderEmail)

	second, err := svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: b.ID, RecipientID: a.ID, Text: "Sure"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)

	msgs, err := st.ListMessages(ctx, first.Conversation.ID, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestOpenOrAppendConcurrentCreatesOneConversation(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	a := addUser(t, st, "a@example.com")
	b := addUser(t, st, "b@example.com")
	l1, l2 := uuid.New(), uuid.New()

	opens := []models.ConversationOpen{
		{SenderID: a.ID, RecipientID: b.ID, ListingID: &l1, Text: "from a"},
		{SenderID: b.ID, RecipientID: a.ID, ListingID: &l2, Text: "from b"},
	}

	var wg sync.WaitGroup
	results := make([]*models.ConversationOpenResult, len(opens))
	errs := make([]error, len(opens))
	for i, open := range opens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.OpenOrAppend(ctx, open)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Conversation.ID, results[1].Conversation.ID)
	assert.True(t, results[0].Created != results[1].Created)

	convs, err := st.ListConversations(ctx, a.ID, nil)
	require.NoError(t, err)
	require.Len(t, convs, 1)

	msgs, err := st.ListMessages(ctx, convs[0].ID, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestOpenOrAppendRejections(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	a := addUser(t, st, "a@example.com")
	b := addUser(t, st, "b@example.com")

	_, err := svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: a.ID})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: uuid.New()})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, st.SetUserDisabled(ctx, b.ID, true))
	_, err = svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: b.ID})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestSendMessage(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	a := addUser(t, st, "a@example.com")
	b := addUser(t, st, "b@example.com")
	outsider := addUser(t, st, "c@example.com")

	opened, err := svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: b.ID, Text: "hi"})
	require.NoError(t, err)
	convID := opened.Conversation.ID

	msg, err := svc.SendMessage(ctx, convID, b.ID, "  hello back ")
	require.NoError(t, err)
	assert.Equal(t, "hello back", msg.Text)
	assert.Equal(t, "b@example.com", msg.SenderEmail)

	_, err = svc.SendMessage(ctx, convID, b.ID, "   ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.SendMessage(ctx, convID, outsider.ID, "let me in")
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	_, err = svc.SendMessage(ctx, uuid.New(), a.ID, "lost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, st.SetUserDisabled(ctx, b.ID, true))
	_, err = svc.SendMessage(ctx, convID, a.ID, "are you there?")
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestListMessagesSinceAndSuspension(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	a := addUser(t, st, "a@example.com")
	b := addUser(t, st, "b@example.com")

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	opened, err := svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: b.ID, Text: "one"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, opened.Conversation.ID, b.ID, "two")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, opened.Conversation.ID, a.ID, "three")
	require.NoError(t, err)

	page, err := svc.ListMessages(ctx, opened.Conversation.ID, a.ID, nil)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "one", page.Messages[0].Text)
	assert.Equal(t, b.ID, page.OtherUserID)
	assert.False(t, page.Suspended)

	since := page.Messages[0].Timestamp
	page, err = svc.ListMessages(ctx, opened.Conversation.ID, a.ID, &since)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "two", page.Messages[0].Text)

	require.NoError(t, st.SetUserDisabled(ctx, b.ID, true))
	page, err = svc.ListMessages(ctx, opened.Conversation.ID, a.ID, nil)
	require.NoError(t, err)
	assert.True(t, page.Suspended)

	_, err = svc.ListMessages(ctx, opened.Conversation.ID, uuid.New(), nil)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestListConversationsDisplayNames(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	a := addUser(t, st, "a@example.com")
	b := addUser(t, st, "b@example.com")
	c := &models.User{ID: uuid.New(), Username: "carl"}
	require.NoError(t, st.CreateUser(ctx, c))

	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_, err := svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: b.ID, Text: "older"})
	require.NoError(t, err)
	_, err = svc.OpenOrAppend(ctx, models.ConversationOpen{SenderID: a.ID, RecipientID: c.ID, Text: "newer"})
	require.NoError(t, err)

	convs, err := svc.ListConversations(ctx, a.ID, nil)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "carl", convs[0].DisplayEmail)
	assert.Equal(t, "b@example.com", convs[1].DisplayEmail)
}
