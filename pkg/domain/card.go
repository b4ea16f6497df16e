package domain

import (
	"time"

	"github.com/google/uuid"
)

// Business number bounds. Every card carries a 7-digit number unique across all cards.
const (
	MinBizNumber = 1000000
	MaxBizNumber = 9999999
)

// DefaultImageURL is used when a card is created without an image.
const DefaultImageURL = "https://wallpaperbat.com/img/451048-free-wallpaper-free-photography-wallpaper-japanese-folk-culture-2-wallpaper-1366x768.jpg"

// Card is a business listing.
type Card struct {
	ID          uuid.UUID
	BizNumber   int
	UserID      uuid.UUID
	Title       string
	Subtitle    string
	Description string
	Phone       string
	Email       string
	Web         string
	Image       Image
	Address     Address
	Likes       []uuid.UUID
	IsBlocked   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image is the card picture.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Address is the postal address shown on a card.
type Address struct {
	State       string `json:"state"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Street      string `json:"street"`
	HouseNumber int    `json:"houseNumber"`
	Zip         int    `json:"zip,omitempty"`
}

// LikedBy returns true if userID is in the likes set.
func (c *Card) LikedBy(userID uuid.UUID) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// OwnedBy returns true if userID owns the card.
func (c *Card) OwnedBy(userID uuid.UUID) bool {
	return c.UserID == userID
}
