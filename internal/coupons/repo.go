package coupons

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("coupon not found")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrInactive          = errors.New("coupon is not active")
)

const couponColumns = `
  id, business_id, title, description, type, value, code, start_date, end_date,
  active, usage_limit, usage_count, created_at, updated_at`

type Repo struct {
	pg *pgxpool.Pool
}

func NewRepo(pg *pgxpool.Pool) *Repo {
	return &Repo{pg: pg}
}

func scanCoupon(row pgx.Row) (*Coupon, error) {
	var c Coupon
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.Title, &c.Description, &c.Type, &c.Value,
		&c.Code, &c.StartDate, &c.EndDate, &c.Active, &c.UsageLimit,
		&c.UsageCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	const q = `SELECT` + couponColumns + `
FROM coupons
WHERE id = $1
LIMIT 1`
	return scanCoupon(r.pg.QueryRow(ctx, q, id))
}

func (r *Repo) Create(ctx context.Context, c *Coupon) error {
	const q = `
INSERT INTO coupons (id, business_id, title, description, type, value, code,
                     start_date, end_date, active, usage_limit, usage_count,
                     created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
RETURNING created_at, updated_at`
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.pg.QueryRow(ctx, q,
		c.ID, c.BusinessID, c.Title, c.Description, c.Type, c.Value, c.Code,
		c.StartDate, c.EndDate, c.Active, c.UsageLimit, c.UsageCount,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Redeem bumps usage_count while honoring the usage limit (0 = unlimited).
func (r *Repo) Redeem(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	const q = `
UPDATE coupons
SET usage_count = usage_count + 1,
    updated_at = now()
WHERE id = $1
  AND active
  AND (usage_limit = 0 OR usage_count < usage_limit)
RETURNING` + couponColumns
	c, err := scanCoupon(r.pg.QueryRow(ctx, q, id))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	// Distinguish missing / inactive / exhausted for the caller.
	existing, ferr := r.FindByID(ctx, id)
	if ferr != nil {
		return nil, ferr
	}
	if !existing.Active {
		return nil, ErrInactive
	}
	return nil, ErrUsageLimitReached
}

// ListIDsByBusiness returns the ids of every canonical coupon the business
// owns. The reconciler diffs the projections against this set.
func (r *Repo) ListIDsByBusiness(ctx context.Context, businessID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT id FROM coupons WHERE business_id = $1`
	rows, err := r.pg.Query(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) ListDistributionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]Distribution, error) {
	const q = `
SELECT id, coupon_id, business_id, customer_id, title, code, type, value,
       start_date, end_date, channel, created_at
FROM coupon_distributions
WHERE business_id = $1
ORDER BY created_at`
	rows, err := r.pg.Query(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Distribution
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(
			&d.ID, &d.CouponID, &d.BusinessID, &d.CustomerID, &d.Title, &d.Code,
			&d.Type, &d.Value, &d.StartDate, &d.EndDate, &d.Channel, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) ListAllocationsByBusiness(ctx context.Context, businessID uuid.UUID) ([]Allocation, error) {
	const q = `
SELECT id, coupon_id, business_id, customer_id, title, code, type, value,
       expires_at, redeemed, created_at
FROM customer_coupons
WHERE business_id = $1
ORDER BY created_at`
	rows, err := r.pg.Query(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(
			&a.ID, &a.CouponID, &a.BusinessID, &a.CustomerID, &a.Title, &a.Code,
			&a.Type, &a.Value, &a.ExpiresAt, &a.Redeemed, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertMissing writes synthesized canonical coupons in a single transaction.
// Ids are the source coupon_ids, so a concurrent or repeated run hits
// ON CONFLICT and degrades to a no-op instead of duplicating. All-or-nothing:
// any failure rolls the whole batch back.
func (r *Repo) InsertMissing(ctx context.Context, batch []Coupon) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	tx, err := r.pg.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
INSERT INTO coupons (id, business_id, title, description, type, value, code,
                     start_date, end_date, active, usage_limit, usage_count,
                     created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
ON CONFLICT (id) DO NOTHING`

	created := 0
	for _, c := range batch {
		tag, err := tx.Exec(ctx, q,
			c.ID, c.BusinessID, c.Title, c.Description, c.Type, c.Value, c.Code,
			c.StartDate, c.EndDate, c.Active, c.UsageLimit, c.UsageCount,
		)
		if err != nil {
			return 0, err
		}
		created += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return created, nil
}
