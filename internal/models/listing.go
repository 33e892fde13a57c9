package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus статус объявления
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingReserved ListingStatus = "reserved"
)

// Listing представляет объявление о транспортном средстве
type Listing struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Condition   string            `json:"condition"`
	Location    string            `json:"location"`
	Attributes  map[string]string `json:"attributes"`
	Images      []ListingImage    `json:"images"`
	Status      ListingStatus     `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ListingImage представляет изображение объявления
type ListingImage struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url,omitempty"`
	PublicID   string `json:"public_id,omitempty"`
	IsMain     bool   `json:"is_main"`
	Position   int    `json:"position"`
}

// ListingFilter параметры выборки объявлений для каталога
type ListingFilter struct {
	UserID     *uuid.UUID
	Status     ListingStatus // пустое значение - любой статус
	Condition  string
	Location   string
	MinPrice   *float64
	MaxPrice   *float64
	Attributes map[string]string
	Limit      int
	Offset     int
}

// Matches проверяет объявление на соответствие фильтру.
// Используется хранилищем в памяти; postgres строит эквивалентный WHERE.
func (f ListingFilter) Matches(l *Listing) bool {
	if f.UserID != nil && l.UserID != *f.UserID {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Condition != "" && l.Condition != f.Condition {
		return false
	}
	if f.Location != "" && l.Location != f.Location {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	for k, v := range f.Attributes {
		if l.Attributes[k] != v {
			return false
		}
	}
	return true
}
