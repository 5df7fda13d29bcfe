package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUnsupportedRole = errors.New("unsupported account role")
)

const accountColumns = `
  id, role, email, phone_number, phone_number_normalized,
  linked_customer_id, business_id, created_at, updated_at`

type Repo struct {
	pg *pgxpool.Pool
}

func NewRepo(pg *pgxpool.Pool) *Repo {
	return &Repo{pg: pg}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Role, &a.Email, &a.PhoneNumber, &a.PhoneNumberNormalized,
		&a.LinkedCustomerID, &a.BusinessID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	const q = `SELECT` + accountColumns + `
FROM accounts
WHERE id = $1
LIMIT 1`
	return scanAccount(r.pg.QueryRow(ctx, q, id))
}

func (r *Repo) Create(ctx context.Context, a *Account) error {
	switch a.Role {
	case RoleBusiness, RoleCustomer:
	default:
		return ErrUnsupportedRole
	}
	const q = `
INSERT INTO accounts (id, role, email, phone_number, phone_number_normalized,
                      linked_customer_id, business_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
RETURNING created_at, updated_at`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.pg.QueryRow(ctx, q,
		a.ID, a.Role, a.Email, a.PhoneNumber, a.PhoneNumberNormalized,
		a.LinkedCustomerID, a.BusinessID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		// detect unique violation on email
		type pgErr interface{ SQLState() string }
		if e, ok := err.(pgErr); ok && e.SQLState() == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// UpdatePhone writes the raw phone and its normalized form onto the account.
func (r *Repo) UpdatePhone(ctx context.Context, id uuid.UUID, phone, normalized string) error {
	const q = `
UPDATE accounts
SET phone_number = $2,
    phone_number_normalized = $3,
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
