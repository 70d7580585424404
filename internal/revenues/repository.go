package revenues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revenue-dashboard/revenue-dashboard/internal/platform/db"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// ErrDuplicateKey is returned when an update would collide with another row's
// (client, company, period) key.
var ErrDuplicateKey = fmt.Errorf("%w: revenue already exists for client, company and period", shared.ErrConflict)

// Repository persists revenue rows.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Upsert(ctx context.Context, params UpsertParams) (Revenue, error)
	Get(ctx context.Context, id uuid.UUID, forUpdate bool) (Entry, error)
	Update(ctx context.Context, rev Revenue) (Revenue, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]Entry, int, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

const revenueColumns = `id, client_id, company_id, period, amount, source, import_batch_id, notes, created_at, updated_at`

const entrySelect = `SELECT r.id, r.client_id, r.company_id, r.period, r.amount, r.source, r.import_batch_id, r.notes, r.created_at, r.updated_at,
	c.id, c.name, c.channel, co.id, co.name, co.category
FROM revenues r
LEFT JOIN clients c ON c.id = r.client_id
LEFT JOIN companies co ON co.id = r.company_id`

type repository struct {
	db   dbtx
	pool db.Beginner
	now  func() time.Time
}

// NewRepository returns a pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool, now: time.Now}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, now: r.now})
	})
}

func scanRevenue(row pgx.Row) (Revenue, error) {
	var rev Revenue
	var source string
	err := row.Scan(&rev.ID, &rev.ClientID, &rev.CompanyID, &rev.Period, &rev.Amount, &source,
		&rev.ImportBatchID, &rev.Notes, &rev.CreatedAt, &rev.UpdatedAt)
	rev.Source = Source(source)
	return rev, err
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var source string
	var clientID, companyID uuid.NullUUID
	var clientName, clientChannel, companyName, companyCategory *string
	err := row.Scan(&e.ID, &e.ClientID, &e.CompanyID, &e.Period, &e.Amount, &source,
		&e.ImportBatchID, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		&clientID, &clientName, &clientChannel, &companyID, &companyName, &companyCategory)
	if err != nil {
		return Entry{}, err
	}
	e.Source = Source(source)
	if clientID.Valid {
		e.Client = &ClientRef{ID: clientID.UUID, Name: deref(clientName), Channel: clientChannel}
	}
	if companyID.Valid {
		e.Company = &CompanyRef{ID: companyID.UUID, Name: deref(companyName), Category: companyCategory}
	}
	return e, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Upsert inserts or overwrites the row on (client_id, company_id, period).
// The last write wins for amount, source, batch and notes.
func (r *repository) Upsert(ctx context.Context, p UpsertParams) (Revenue, error) {
	now := r.now().UTC()
	rev, err := scanRevenue(r.db.QueryRow(ctx, `INSERT INTO revenues (`+revenueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (client_id, company_id, period) DO UPDATE SET
			amount = EXCLUDED.amount,
			source = EXCLUDED.source,
			import_batch_id = EXCLUDED.import_batch_id,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING `+revenueColumns,
		uuid.New(), p.ClientID, p.CompanyID, p.Period, p.Amount, string(p.Source), p.ImportBatchID, p.Notes, now))
	if err != nil {
		return Revenue{}, fmt.Errorf("revenues: upsert: %w", err)
	}
	return rev, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID, forUpdate bool) (Entry, error) {
	query := entrySelect + ` WHERE r.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF r`
	}
	e, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return Entry{}, fmt.Errorf("revenues: get %s: %w", id, mapError(err))
	}
	return e, nil
}

func (r *repository) Update(ctx context.Context, rev Revenue) (Revenue, error) {
	updated, err := scanRevenue(r.db.QueryRow(ctx, `UPDATE revenues
		SET client_id = $2, company_id = $3, period = $4, amount = $5, source = $6, import_batch_id = $7, notes = $8, updated_at = $9
		WHERE id = $1
		RETURNING `+revenueColumns,
		rev.ID, rev.ClientID, rev.CompanyID, rev.Period, rev.Amount, string(rev.Source), rev.ImportBatchID, rev.Notes, r.now().UTC()))
	if err != nil {
		return Revenue{}, fmt.Errorf("revenues: update %s: %w", rev.ID, mapError(err))
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM revenues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revenues: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("revenues: delete %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	where, args := buildWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM revenues r
		LEFT JOIN clients c ON c.id = r.client_id
		LEFT JOIN companies co ON co.id = r.company_id ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("revenues: count: %w", err)
	}

	_, perPage := shared.NormalizePage(filter.Page, filter.PerPage)
	offset := shared.Offset(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`%s %s ORDER BY r.period DESC, c.name, co.name LIMIT $%d OFFSET $%d`,
		entrySelect, where, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	entries, err := r.collect(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListEntries returns every matching row ordered by period, for aggregation.
func (r *repository) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	where, args := buildWhere(filter)
	return r.collect(ctx, entrySelect+" "+where+" ORDER BY r.period", args...)
}

func (r *repository) collect(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("revenues: list: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("revenues: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// buildWhere pushes every filter, including the channel and category
// dimensions, into SQL.
func buildWhere(f ListFilter) (string, []any) {
	var conditions []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != nil {
		add("r.client_id = $%d", *f.ClientID)
	}
	if f.CompanyID != nil {
		add("r.company_id = $%d", *f.CompanyID)
	}
	if !f.From.IsZero() {
		add("r.period >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("r.period <= $%d", f.To)
	}
	if f.ClientChannel != "" {
		add("c.channel = $%d", f.ClientChannel)
	}
	if f.CompanyCategory != "" {
		add("co.category = $%d", f.CompanyCategory)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicateKey
		case "23503":
			return fmt.Errorf("%w: unknown client or company", shared.ErrInvalidInput)
		}
	}
	return err
}
