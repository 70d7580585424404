package companies

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error)
	Get(ctx context.Context, id uuid.UUID) (Company, error)
	FindByName(ctx context.Context, name string) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, company Company) (Company, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Company, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

const companyColumns = `id, name, category, notes, is_active, created_at, updated_at`

type repository struct {
	db  dbtx
	now func() time.Time
}

func NewRepository(db dbtx) Repository {
	return &repository{db: db, now: time.Now}
}

func scanCompany(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List uses a dynamic WHERE clause because every filter is optional.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if category := shared.Normalise(filters.Dimension); category != "" {
		argCount++
		where += ` AND category = $` + strconv.Itoa(argCount)
		args = append(args, category)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM companies`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("companies: count: %w", err)
	}

	query := `SELECT ` + companyColumns + ` FROM companies` + where +
		` ORDER BY name LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.Limit(), filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("companies: list: %w", err)
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		return Company{}, fmt.Errorf("companies: get %s: %w", id, shared.MapError(err))
	}
	return c, nil
}

// FindByName picks the oldest case-insensitive match on the trimmed name.
func (r *repository) FindByName(ctx context.Context, name string) (Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies
		WHERE lower(btrim(name)) = lower(btrim($1))
		ORDER BY created_at, id
		LIMIT 1`, name))
	if err != nil {
		return Company{}, fmt.Errorf("companies: find %q: %w", name, shared.MapError(err))
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, company Company) (Company, error) {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	now := r.now().UTC()
	c, err := scanCompany(r.db.QueryRow(ctx, `INSERT INTO companies (`+companyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+companyColumns,
		company.ID, company.Name, company.Category, company.Notes, company.IsActive, now))
	if err != nil {
		return Company{}, fmt.Errorf("companies: create: %w", err)
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, company Company) (Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, `UPDATE companies
		SET name = $2, category = $3, notes = $4, is_active = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+companyColumns,
		company.ID, company.Name, company.Category, company.Notes, company.IsActive, r.now().UTC()))
	if err != nil {
		return Company{}, fmt.Errorf("companies: update %s: %w", company.ID, shared.MapError(err))
	}
	return c, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, `UPDATE companies SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING `+companyColumns,
		id, active, r.now().UTC()))
	if err != nil {
		return Company{}, fmt.Errorf("companies: set active %s: %w", id, shared.MapError(err))
	}
	return c, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("companies: delete %s: %w", id, shared.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("companies: delete %s: %w", id, shared.MapError(pgx.ErrNoRows))
	}
	return nil
}
