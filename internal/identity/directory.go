package identity

import (
	"context"
	"log"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/rajivgeraev/autoswap-api/internal/store"
)

// DefaultDirectorySize размер кеша отображаемых имен
const DefaultDirectorySize = 1024

// Directory кеширует отображаемые имена пользователей для списков переписок
type Directory struct {
	users store.UserStore
	cache *lru.Cache
}

// NewDirectory создает справочник с LRU-кешем заданного размера
func NewDirectory(users store.UserStore, size int) (*Directory, error) {
	if size <= 0 {
		size = DefaultDirectorySize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Directory{users: users, cache: cache}, nil
}

// DisplayName возвращает email, затем username, затем сам ID.
// Ошибка поиска не пробрасывается: вызывающему достаточно ID.
func (d *Directory) DisplayName(ctx context.Context, id uuid.UUID) string {
	if name, ok := d.cache.Get(id); ok {
		return name.(string)
	}

	user, err := d.users.GetUser(ctx, id)
	if err != nil {
		log.Printf("Не удалось получить пользователя %s: %v", id, err)
		return id.String()
	}

	name := user.DisplayName()
	d.cache.Add(id, name)
	return name
}

// Forget удаляет имя из кеша после изменения профиля
func (d *Directory) Forget(id uuid.UUID) {
	d.cache.Remove(id)
}
