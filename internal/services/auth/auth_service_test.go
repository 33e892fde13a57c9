package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/autoswap-api/internal/identity"
	"github.com/rajivgeraev/autoswap-api/internal/middleware"
	"github.com/rajivgeraev/autoswap-api/internal/store"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

type forgetful struct{ forgotten []uuid.UUID }

func (f *forgetful) Forget(id uuid.UUID) { f.forgotten = append(f.forgotten, id) }

func newTestService(t *testing.T) (*fiber.App, *AuthService, *store.Memory, *utils.JWTService) {
	t.Helper()
	st := store.NewMemory()
	jwtService := utils.NewJWTService("secret", time.Hour)
	provider := identity.NewProvider(jwtService, st)

	svc := NewAuthService("bot-token", provider, st, &forgetful{}, middleware.AuthMiddleware(provider, time.Second), time.Second)
	svc.parseInitData = func(raw string) (initdata.InitData, error) {
		if raw != "valid" {
			return initdata.InitData{}, errors.New("signature mismatch")
		}
		return initdata.InitData{User: initdata.User{ID: 777, Username: "driver", FirstName: "Ivan"}}, nil
	}

	app := fiber.New()
	svc.SetupRoutes(app)
	return app, svc, st, jwtService
}

func login(t *testing.T, app *fiber.App, initData string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/telegram", strings.NewReader(`{"init_data":"`+initData+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestTelegramLoginIssuesToken(t *testing.T) {
	app, _, st, jwtService := newTestService(t)

	resp, body := login(t, app, "valid")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	userID, err := jwtService.ExtractUserID(body["token"].(string))
	require.NoError(t, err)

	user, err := st.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 777, user.TelegramID)
	assert.Equal(t, "driver", user.Username)

	// Повторный вход не создает нового пользователя
	_, again := login(t, app, "valid")
	againID, err := jwtService.ExtractUserID(again["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, userID, againID)
}

func TestTelegramLoginRejectsBadData(t *testing.T) {
	app, _, _, _ := newTestService(t)

	resp, body := login(t, app, "forged")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid Telegram data", body["error"])
}

func TestTelegramLoginSuspended(t *testing.T) {
	app, _, st, jwtService := newTestService(t)

	_, body := login(t, app, "valid")
	userID, err := jwtService.ExtractUserID(body["token"].(string))
	require.NoError(t, err)
	require.NoError(t, st.SetUserDisabled(context.Background(), userID, true))

	resp, body := login(t, app, "valid")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Your account has been suspended", body["error"])
}
