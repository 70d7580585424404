package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/shared"
)

// Repository persists clients.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error)
	Get(ctx context.Context, id uuid.UUID) (Client, error)
	FindByName(ctx context.Context, name string) (Client, error)
	Create(ctx context.Context, client Client) (Client, error)
	Update(ctx context.Context, client Client) (Client, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

const clientColumns = `id, name, vat_number, channel, province, notes, is_active, created_at, updated_at`

type repository struct {
	db  dbtx
	now func() time.Time
}

// NewRepository builds a pgx backed repository. db is usually a *pgxpool.Pool.
func NewRepository(db dbtx) Repository {
	return &repository{db: db, now: time.Now}
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.VATNumber, &c.Channel, &c.Province, &c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Client, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR vat_number ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *filters.IsActive)
		argPos++
	}
	if channel := shared.Normalise(filters.Dimension); channel != "" {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", argPos))
		args = append(args, channel)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM clients "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("clients: count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM clients %s ORDER BY name LIMIT $%d OFFSET $%d`, clientColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.Limit(), filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()

	out := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return Client{}, fmt.Errorf("clients: get %s: %w", id, shared.MapError(err))
	}
	return c, nil
}

// FindByName matches case-insensitively on the trimmed name. When duplicates
// exist the oldest record wins so repeated imports stay stable.
func (r *repository) FindByName(ctx context.Context, name string) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients
		WHERE lower(btrim(name)) = lower(btrim($1))
		ORDER BY created_at, id
		LIMIT 1`, name))
	if err != nil {
		return Client{}, fmt.Errorf("clients: find %q: %w", name, shared.MapError(err))
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, client Client) (Client, error) {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	now := r.now().UTC()
	c, err := scanClient(r.db.QueryRow(ctx, `INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+clientColumns,
		client.ID, client.Name, client.VATNumber, client.Channel, client.Province, client.Notes, client.IsActive, now))
	if err != nil {
		return Client{}, fmt.Errorf("clients: create: %w", err)
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, client Client) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `UPDATE clients
		SET name = $2, vat_number = $3, channel = $4, province = $5, notes = $6, is_active = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+clientColumns,
		client.ID, client.Name, client.VATNumber, client.Channel, client.Province, client.Notes, client.IsActive, r.now().UTC()))
	if err != nil {
		return Client{}, fmt.Errorf("clients: update %s: %w", client.ID, shared.MapError(err))
	}
	return c, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `UPDATE clients SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING `+clientColumns,
		id, active, r.now().UTC()))
	if err != nil {
		return Client{}, fmt.Errorf("clients: set active %s: %w", id, shared.MapError(err))
	}
	return c, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clients: delete %s: %w", id, shared.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clients: delete %s: %w", id, shared.MapError(pgx.ErrNoRows))
	}
	return nil
}
