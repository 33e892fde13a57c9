package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestType тип запроса на объявление
type RequestType string

const (
	RequestBuy  RequestType = "buy"
	RequestSwap RequestType = "swap"
)

// SwapStatus статус запроса на обмен
type SwapStatus string

const (
	SwapPending  SwapStatus = "pending"
	SwapAccepted SwapStatus = "accepted"
	SwapRejected SwapStatus = "rejected"
)

// Terminal сообщает, является ли статус конечным
func (s SwapStatus) Terminal() bool {
	return s == SwapAccepted || s == SwapRejected
}

// Role роль пользователя в запросе
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// ContactInfo контакты получателя, раскрываемые при принятии запроса
type ContactInfo struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SwapRequest представляет предложение о покупке или обмене
type SwapRequest struct {
	ID               uuid.UUID    `json:"id"`
	SenderID         uuid.UUID    `json:"sender_id"`
	ReceiverID       uuid.UUID    `json:"receiver_id"`
	TargetListingID  uuid.UUID    `json:"target_listing_id"`
	OfferedListingID *uuid.UUID   `json:"offered_listing_id,omitempty"`
	RequestType      RequestType  `json:"request_type"`
	Message          string       `json:"message"`
	Status           SwapStatus   `json:"status"`
	ContactInfo      *ContactInfo `json:"contact_info,omitempty"`
	ReceiverViewed   bool         `json:"receiver_viewed"`
	SenderViewed     bool         `json:"sender_viewed"`
	CreatedAt        time.Time    `json:"created_at"`
	AcceptedAt       *time.Time   `json:"accepted_at,omitempty"`
	RejectedAt       *time.Time   `json:"rejected_at,omitempty"`

	// Дополнительные поля для API
	TargetListing  *Listing   `json:"target_listing,omitempty"`
	OfferedListing *Listing   `json:"offered_listing,omitempty"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

// SwapTransition описывает атомарный переход запроса из одного статуса в другой.
// Хранилище применяет его целиком или не применяет вовсе.
type SwapTransition struct {
	RequestID       uuid.UUID
	From            SwapStatus
	To              SwapStatus
	At              time.Time
	ContactInfo     *ContactInfo
	ReserveListings []uuid.UUID
	NotifySender    bool
}
