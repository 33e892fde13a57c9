package utils

import (
	"context"
	"time"
)

// DefaultRequestTimeout таймаут запроса к хранилищу по умолчанию
const DefaultRequestTimeout = 5 * time.Second

// RequestContext возвращает контекст с таймаутом для обработки одного запроса
func RequestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
