package clients

import (
	"time"

	"github.com/google/uuid"
)

// Client is a customer that revenue is booked against.
type Client struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	VATNumber *string   `json:"vat_number,omitempty"`
	Channel   *string   `json:"channel,omitempty"`
	Province  *string   `json:"province,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
