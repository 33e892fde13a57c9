package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation переписка между двумя пользователями
type Conversation struct {
	ID           uuid.UUID    `json:"id"`
	Participants [2]uuid.UUID `json:"participants"`
	ListingID    *uuid.UUID   `json:"listing_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	LastUpdated  time.Time    `json:"last_updated"`

	// Дополнительные поля для API
	DisplayEmail string `json:"display_email,omitempty"`
}

// HasParticipant проверяет, участвует ли пользователь в переписке
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Other возвращает второго участника переписки
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Message сообщение в переписке.
// SenderEmail фиксируется в момент отправки и не обновляется при смене email.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderEmail    string    `json:"sender_email"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
}

// ConversationOpen параметры открытия переписки с первым сообщением
type ConversationOpen struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	ListingID   *uuid.UUID
	ListingName string
	Text        string
}

// ConversationOpenResult результат открытия переписки
type ConversationOpenResult struct {
	Conversation *Conversation `json:"conversation"`
	Message      *Message      `json:"message"`
	Created      bool          `json:"created"`
}
