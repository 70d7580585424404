package imports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Repository stores import batches in Postgres.
type Repository struct {
	db dbtx
}

func NewRepository(db dbtx) *Repository {
	return &Repository{db: db}
}

const batchColumns = `id, filename, checksum, imported_at, total_rows, success_rows, error_rows, error_report`

func (r *Repository) Create(ctx context.Context, b Batch) error {
	_, err := r.db.Exec(ctx, `INSERT INTO import_batches (id, filename, checksum, imported_at, total_rows, success_rows, error_rows)
		VALUES ($1, $2, $3, $4, $5, 0, 0)`,
		b.ID, b.Filename, b.Checksum, b.ImportedAt, b.TotalRows)
	if err != nil {
		return fmt.Errorf("imports: create batch: %w", err)
	}
	return nil
}

// Finish writes the final counts. The report column stays NULL when there were no errors.
func (r *Repository) Finish(ctx context.Context, id uuid.UUID, stats Stats, report []RowError) error {
	var payload []byte
	if len(report) > 0 {
		var err error
		payload, err = json.Marshal(report)
		if err != nil {
			return fmt.Errorf("imports: encode report: %w", err)
		}
	}
	tag, err := r.db.Exec(ctx, `UPDATE import_batches
		SET success_rows = $2, error_rows = $3, error_report = $4
		WHERE id = $1`, id, stats.Success, stats.Errors, payload)
	if err != nil {
		return fmt.Errorf("imports: finish batch %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("imports: finish batch %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter BatchFilter) ([]Batch, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM import_batches`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("imports: count batches: %w", err)
	}
	_, perPage := shared.NormalizePage(filter.Page, filter.PerPage)
	rows, err := r.db.Query(ctx, `SELECT `+batchColumns+` FROM import_batches
		ORDER BY imported_at DESC, id
		LIMIT $1 OFFSET $2`, perPage, shared.Offset(filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, fmt.Errorf("imports: list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]Batch, 0)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Batch, error) {
	b, err := scanBatch(r.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM import_batches WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, shared.ErrNotFound
	}
	return b, err
}

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	var report []byte
	if err := row.Scan(&b.ID, &b.Filename, &b.Checksum, &b.ImportedAt, &b.TotalRows, &b.SuccessRows, &b.ErrorRows, &report); err != nil {
		return Batch{}, err
	}
	if len(report) > 0 {
		if err := json.Unmarshal(report, &b.ErrorReport); err != nil {
			return Batch{}, fmt.Errorf("imports: decode report of %s: %w", b.ID, err)
		}
	}
	return b, nil
}
