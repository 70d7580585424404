// Package imports reconciles spreadsheet rows into revenue facts, creating
// missing clients and companies on the way.
package imports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RawRow is one unvalidated spreadsheet row.
type RawRow struct {
	Period      string `json:"period"`
	ClientName  string `json:"client_name"`
	CompanyName string `json:"company_name"`
	Amount      string `json:"amount"`
}

// UnmarshalJSON accepts amount as either a JSON string or number. Columns
// other than the four known ones are ignored.
func (r *RawRow) UnmarshalJSON(data []byte) error {
	var aux struct {
		Period      string          `json:"period"`
		ClientName  string          `json:"client_name"`
		CompanyName string          `json:"company_name"`
		Amount      json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Period, r.ClientName, r.CompanyName = aux.Period, aux.ClientName, aux.CompanyName
	r.Amount = ""
	raw := bytes.TrimSpace(aux.Amount)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &r.Amount); err != nil {
			return err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		r.Amount = n.String()
	}
	return nil
}

// RowError is one entry of a batch error report. Row is the 1-based
// spreadsheet line, counting the header.
type RowError struct {
	Row   int    `json:"row"`
	Data  RawRow `json:"data"`
	Error string `json:"error"`
}

// Stats summarises a batch.
type Stats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// Result is returned by ImportRows once every row has been attempted.
type Result struct {
	BatchID     uuid.UUID  `json:"batch_id"`
	Stats       Stats      `json:"stats"`
	ErrorReport []RowError `json:"error_report,omitempty"`
}

// Batch is the audit record of one import invocation.
type Batch struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	Checksum    string     `json:"checksum"`
	ImportedAt  time.Time  `json:"imported_at"`
	TotalRows   int        `json:"total_rows"`
	SuccessRows int        `json:"success_rows"`
	ErrorRows   int        `json:"error_rows"`
	ErrorReport []RowError `json:"error_report"`
}

// BatchFilter pages through import history, newest first.
type BatchFilter struct {
	Page    int
	PerPage int
}
