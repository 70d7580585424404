// Package revenues stores monthly revenue facts keyed by client, company and period.
package revenues

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source records how a revenue row was written.
type Source string

const (
	SourceManual Source = "manual"
	SourceImport Source = "import"
)

// Revenue is one (client, company, period) fact.
type Revenue struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	CompanyID     uuid.UUID       `json:"company_id"`
	Period        time.Time       `json:"period"`
	Amount        decimal.Decimal `json:"amount"`
	Source        Source          `json:"source"`
	ImportBatchID uuid.NullUUID   `json:"import_batch_id"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ClientRef is the joined client of a revenue row.
type ClientRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Channel *string   `json:"channel,omitempty"`
}

// CompanyRef is the joined company of a revenue row.
type CompanyRef struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category *string   `json:"category,omitempty"`
}

// Entry is a revenue row with its to-one relations. Either relation may be nil
// when the joined row is missing.
type Entry struct {
	Revenue
	Client  *ClientRef  `json:"client"`
	Company *CompanyRef `json:"company"`
}

// UpsertParams writes a row on its natural key.
type UpsertParams struct {
	ClientID      uuid.UUID
	CompanyID     uuid.UUID
	Period        time.Time
	Amount        decimal.Decimal
	Source        Source
	ImportBatchID uuid.NullUUID
	Notes         *string
}

// ListFilter narrows revenue listings. Zero values mean "no filter".
type ListFilter struct {
	ClientID        *uuid.UUID
	CompanyID       *uuid.UUID
	From            time.Time
	To              time.Time
	ClientChannel   string
	CompanyCategory string

	Page    int
	PerPage int
}
