// Package identity объединяет выпуск токенов и справочник пользователей.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/store"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

var (
	// ErrUnauthenticated токен отсутствует, недействителен или пользователь не найден
	ErrUnauthenticated = errors.New("identity: unauthenticated")
	// ErrDisabled аккаунт заблокирован
	ErrDisabled = errors.New("identity: account disabled")
)

// Provider проверяет токены и управляет учетными записями
type Provider struct {
	jwt   *utils.JWTService
	users store.UserStore
}

// NewProvider создает провайдер идентификации
func NewProvider(jwt *utils.JWTService, users store.UserStore) *Provider {
	return &Provider{jwt: jwt, users: users}
}

// IssueToken выпускает токен для пользователя
func (p *Provider) IssueToken(userID uuid.UUID) (string, error) {
	return p.jwt.GenerateToken(userID)
}

// Verify проверяет токен и возвращает актуальную запись пользователя
func (p *Provider) Verify(ctx context.Context, token string) (*models.User, error) {
	userID, err := p.jwt.ExtractUserID(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if user.Disabled {
		return user, ErrDisabled
	}
	return user, nil
}

// GetUser возвращает пользователя без кеширования
func (p *Provider) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return p.users.GetUser(ctx, id)
}

// DisableUser блокирует аккаунт
func (p *Provider) DisableUser(ctx context.Context, id uuid.UUID) error {
	return p.users.SetUserDisabled(ctx, id, true)
}
