package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("customer not found")

	// ErrLinkedToOther means the customer already carries a different
	// account's user_id; first writer wins, the existing link is kept.
	ErrLinkedToOther = errors.New("customer linked to another account")
)

const customerColumns = `
  id, business_id, first_name, last_name, email, phone, phone_normalized,
  user_id, total_visits, total_spent, loyalty_points, created_at, updated_at`

type Repo struct {
	pg *pgxpool.Pool
}

func NewRepo(pg *pgxpool.Pool) *Repo {
	return &Repo{pg: pg}
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.PhoneNormalized, &c.UserID, &c.TotalVisits, &c.TotalSpent,
		&c.LoyaltyPoints, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectCustomers(rows pgx.Rows) ([]Customer, error) {
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(
			&c.ID, &c.BusinessID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
			&c.PhoneNormalized, &c.UserID, &c.TotalVisits, &c.TotalSpent,
			&c.LoyaltyPoints, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	const q = `SELECT` + customerColumns + `
FROM customers
WHERE id = $1
LIMIT 1`
	return scanCustomer(r.pg.QueryRow(ctx, q, id))
}

// ListByNormalizedPhone finds customers whose precomputed phone_normalized
// equals the given digits, most recently updated first. businessID nil means
// a global lookup.
func (r *Repo) ListByNormalizedPhone(ctx context.Context, normalized string, businessID *uuid.UUID) ([]Customer, error) {
	const q = `SELECT` + customerColumns + `
FROM customers
WHERE phone_normalized = $1
  AND ($2::uuid IS NULL OR business_id = $2)
ORDER BY updated_at DESC`
	rows, err := r.pg.Query(ctx, q, normalized, businessID)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

// ListByRawPhoneIn finds customers whose stored raw phone equals any of the
// expanded formats. Used for records written with one regional variant but
// queried with another.
func (r *Repo) ListByRawPhoneIn(ctx context.Context, formats []string, businessID *uuid.UUID) ([]Customer, error) {
	if len(formats) == 0 {
		return nil, nil
	}
	const q = `SELECT` + customerColumns + `
FROM customers
WHERE phone = ANY($1)
  AND ($2::uuid IS NULL OR business_id = $2)
ORDER BY updated_at DESC`
	rows, err := r.pg.Query(ctx, q, formats, businessID)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

// ListWithPhone returns every customer that has any phone value at all, for
// the client-side matcher fallback over records that predate normalization.
func (r *Repo) ListWithPhone(ctx context.Context, businessID *uuid.UUID) ([]Customer, error) {
	const q = `SELECT` + customerColumns + `
FROM customers
WHERE phone IS NOT NULL AND phone <> ''
  AND ($1::uuid IS NULL OR business_id = $1)
ORDER BY updated_at DESC`
	rows, err := r.pg.Query(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

func (r *Repo) Create(ctx context.Context, c *Customer) error {
	const q = `
INSERT INTO customers (id, business_id, first_name, last_name, email, phone,
                       phone_normalized, user_id, total_visits, total_spent,
                       loyalty_points, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
RETURNING created_at, updated_at`
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.pg.QueryRow(ctx, q,
		c.ID, c.BusinessID, c.FirstName, c.LastName, c.Email, c.Phone,
		c.PhoneNormalized, c.UserID, c.TotalVisits, c.TotalSpent, c.LoyaltyPoints,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// UpdatePhone rewrites both the raw and normalized phone on a customer.
func (r *Repo) UpdatePhone(ctx context.Context, id uuid.UUID, phone, normalized string) error {
	const q = `
UPDATE customers
SET phone = $2,
    phone_normalized = $3,
    updated_at = now()
WHERE id = $1`
	tag, err := r.pg.Exec(ctx, q, id, phone, normalized)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordVisit bumps engagement counters after a redemption or visit.
func (r *Repo) RecordVisit(ctx context.Context, id uuid.UUID, spent float64, points int) error {
	const q = `
UPDATE customers
SET total_visits = total_visits + 1,
    total_spent = total_spent + $2,
    loyalty_points = loyalty_points + $3,
    updated_at = now()
WHERE id = $1`
	tag, err := r.pg.Exec(ctx, q, id, spent, points)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkAccount writes the account/customer link symmetrically in one
// transaction: user_id onto the customer row and linked_customer_id onto the
// account row. The customer row is locked first so a concurrent link against
// the same customer cannot interleave. Re-linking the same pair is a no-op.
func (r *Repo) LinkAccount(ctx context.Context, customerID, accountID uuid.UUID) error {
	tx, err := r.pg.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current *uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM customers WHERE id = $1 FOR UPDATE`, customerID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if current != nil && *current != accountID {
		return ErrLinkedToOther
	}

	if _, err := tx.Exec(ctx,
		`UPDATE customers SET user_id = $2, updated_at = now() WHERE id = $1`,
		customerID, accountID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET linked_customer_id = $2, updated_at = now() WHERE id = $1`,
		accountID, customerID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
