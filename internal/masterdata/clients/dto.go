package clients

import (
	"strings"

	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// ClientRequest is the create/update payload.
type ClientRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	VATNumber *string `json:"vat_number" validate:"omitempty,max=32"`
	Channel   *string `json:"channel" validate:"omitempty,max=64"`
	Province  *string `json:"province" validate:"omitempty,max=2"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
	IsActive  *bool   `json:"is_active"`
}

// ListResponse wraps a page of clients.
type ListResponse struct {
	Data       []Client          `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

// ActiveRequest toggles the active flag.
type ActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (r *ClientRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.VATNumber = shared.OptionalString(r.VATNumber)
	r.Channel = shared.OptionalString(r.Channel)
	r.Notes = shared.OptionalString(r.Notes)
	r.Province = shared.OptionalString(r.Province)
	if r.Province != nil {
		upper := strings.ToUpper(*r.Province)
		r.Province = &upper
	}
}

func (r ClientRequest) apply(c *Client) {
	c.Name = r.Name
	c.VATNumber = r.VATNumber
	c.Channel = r.Channel
	c.Province = r.Province
	c.Notes = r.Notes
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
}
