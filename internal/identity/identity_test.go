package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// countingUsers считает обращения к хранилищу пользователей
type countingUsers struct {
	store.UserStore
	calls int
}

func (c *countingUsers) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	c.calls++
	return c.UserStore.GetUser(ctx, id)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	jwtService := utils.NewJWTService("secret", time.Hour)
	provider := NewProvider(jwtService, st)

	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	require.NoError(t, st.CreateUser(ctx, user))

	token, err := provider.IssueToken(user.ID)
	require.NoError(t, err)

	got, err := provider.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = provider.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ghost, err := provider.IssueToken(uuid.New())
	require.NoError(t, err)
	_, err = provider.Verify(ctx, ghost)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, provider.DisableUser(ctx, user.ID))
	got, err = provider.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrDisabled)
	require.NotNil(t, got)
	assert.True(t, got.Disabled)

	fresh, err := provider.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Disabled)
}

func TestDirectoryCachesNames(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	users := &countingUsers{UserStore: st}
	directory, err := NewDirectory(users, 0)
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Username: "driver"}
	require.NoError(t, st.CreateUser(ctx, user))

	assert.Equal(t, "driver", directory.DisplayName(ctx, user.ID))
	assert.Equal(t, "driver", directory.DisplayName(ctx, user.ID))
	assert.Equal(t, 1, users.calls)

	_, err = st.UpdateUserEmail(ctx, user.ID, "driver@example.com")
	require.NoError(t, err)
	assert.Equal(t, "driver", directory.DisplayName(ctx, user.ID))

	directory.Forget(user.ID)
	assert.Equal(t, "driver@example.com", directory.DisplayName(ctx, user.ID))
	assert.Equal(t, 2, users.calls)
}

func TestDirectoryFallsBackToID(t *testing.T) {
	directory, err := NewDirectory(store.NewMemory(), 4)
	require.NoError(t, err)

	id := uuid.New()
	assert.Equal(t, id.String(), directory.DisplayName(context.Background(), id))
}
