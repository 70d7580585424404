package companies

import (
	"time"

	"github.com/google/uuid"
)

// Company is a principal whose mandate generates revenue.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  *string   `json:"category,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyRequest is the create/update payload.
type CompanyRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Category *string `json:"category" validate:"omitempty,max=64"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
	IsActive *bool   `json:"is_active"`
}
