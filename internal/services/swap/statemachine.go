package swap

import "github.com/rajivgeraev/autoswap-api/internal/models"

// Action действие над запросом на обмен
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionCancel Action = "cancel"
)

// statusDeleted целевое состояние отмены: запрос удаляется
const statusDeleted models.SwapStatus = "deleted"

// transitions единственный источник допустимых переходов
var transitions = map[models.SwapStatus]map[Action]models.SwapStatus{
	models.SwapPending: {
		ActionAccept: models.SwapAccepted,
		ActionReject: models.SwapRejected,
		ActionCancel: statusDeleted,
	},
	// Отклоненный запрос отправитель может убрать из списка отправленных
	models.SwapRejected: {
		ActionCancel: statusDeleted,
	},
}

// Next возвращает состояние после действия; ok=false, если переход запрещен
func Next(from models.SwapStatus, action Action) (models.SwapStatus, bool) {
	to, ok := transitions[from][action]
	return to, ok
}
