package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestListingFilterMatches(t *testing.T) {
	owner := uuid.New()
	lo, hi := 1000.0, 5000.0
	listing := &Listing{
		UserID:     owner,
		Price:      3000,
		Condition:  "used",
		Location:   "Berlin",
		Status:     ListingActive,
		Attributes: map[string]string{"make": "Toyota", "fuel": "diesel"},
	}

	tests := []struct {
		name   string
		filter ListingFilter
		want   bool
	}{
		{"empty", ListingFilter{}, true},
		{"owner", ListingFilter{UserID: &owner}, true},
		{"price range", ListingFilter{MinPrice: &lo, MaxPrice: &hi}, true},
		{"below min", ListingFilter{MinPrice: &hi}, false},
		{"status", ListingFilter{Status: ListingReserved}, false},
		{"attribute", ListingFilter{Attributes: map[string]string{"make": "Toyota"}}, true},
		{"attribute mismatch", ListingFilter{Attributes: map[string]string{"make": "BMW"}}, false},
		{"location", ListingFilter{Location: "Paris"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(listing))
		})
	}
}

func TestSwapStatusTerminal(t *testing.T) {
	assert.False(t, SwapPending.Terminal())
	assert.True(t, SwapAccepted.Terminal())
	assert.True(t, SwapRejected.Terminal())
}

func TestUserDisplayName(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "a@x.com", (&User{ID: id, Email: "a@x.com", Username: "a"}).DisplayName())
	assert.Equal(t, "a", (&User{ID: id, Username: "a"}).DisplayName())
	assert.Equal(t, id.String(), (&User{ID: id}).DisplayName())
}

func TestConversationOther(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c := &Conversation{Participants: [2]uuid.UUID{a, b}}
	assert.Equal(t, b, c.Other(a))
	assert.Equal(t, a, c.Other(b))
	assert.False(t, c.HasParticipant(uuid.New()))
}

func TestExtractPreviewURL(t *testing.T) {
	secure := "https://res.cloudinary.com/demo/image/upload/v1/swap-listings/car.jpg"
	assert.Equal(t,
		"https://res.cloudinary.com/demo/image/upload/c_fill,w_400,h_300/v1/swap-listings/car.jpg",
		ExtractPreviewURL(CloudinaryResponse{SecureURL: secure}))

	eager := CloudinaryResponse{SecureURL: secure, Eager: []Eager{{Status: "completed", SecureURL: "https://eager"}}}
	assert.Equal(t, "https://eager", ExtractPreviewURL(eager))

	assert.Empty(t, PreviewURL("https://example.com/car.jpg"))
}
