package infra

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema makes the backend self-bootstrapping:
// - creates any missing table (idempotent)
// - adds columns older databases miss (non-destructive, no DROP COLUMN)
// The authoritative history lives in migrations/; this keeps a fresh or
// slightly stale database serviceable without running the migrate binary.
func EnsureSchema(ctx context.Context, pg *pgxpool.Pool) error {
	_, err := pg.Exec(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
  id UUID PRIMARY KEY,
  role VARCHAR NOT NULL CHECK (role IN ('business', 'customer')),
  email VARCHAR NOT NULL UNIQUE,
  phone_number VARCHAR NULL,
  phone_number_normalized VARCHAR NULL,
  linked_customer_id UUID NULL,
  business_id UUID NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	if err != nil {
		return err
	}

	_, err = pg.Exec(ctx, `
CREATE TABLE IF NOT EXISTS customers (
  id UUID PRIMARY KEY,
  business_id UUID NULL,
  first_name VARCHAR NOT NULL DEFAULT '',
  last_name VARCHAR NOT NULL DEFAULT '',
  email VARCHAR NULL,
  phone VARCHAR NULL,
  phone_normalized VARCHAR NULL,
  user_id UUID NULL,
  total_visits INT NOT NULL DEFAULT 0,
  total_spent NUMERIC NOT NULL DEFAULT 0,
  loyalty_points INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	if err != nil {
		return err
	}

	_, err = pg.Exec(ctx, `
CREATE TABLE IF NOT EXISTS coupons (
  id UUID PRIMARY KEY,
  business_id UUID NOT NULL,
  title VARCHAR NOT NULL DEFAULT '',
  description VARCHAR NOT NULL DEFAULT '',
  type VARCHAR NOT NULL DEFAULT 'percentage',
  value DOUBLE PRECISION NOT NULL DEFAULT 0,
  code VARCHAR NOT NULL DEFAULT '',
  start_date TIMESTAMPTZ NOT NULL DEFAULT now(),
  end_date TIMESTAMPTZ NOT NULL DEFAULT now(),
  active BOOLEAN NOT NULL DEFAULT true,
  usage_limit INT NOT NULL DEFAULT 0,
  usage_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (usage_limit = 0 OR usage_count <= usage_limit)
);
`)
	if err != nil {
		return err
	}

	_, err = pg.Exec(ctx, `
CREATE TABLE IF NOT EXISTS coupon_distributions (
  id UUID PRIMARY KEY,
  coupon_id UUID NOT NULL,
  business_id UUID NOT NULL,
  customer_id UUID NULL,
  title VARCHAR NOT NULL DEFAULT '',
  code VARCHAR NOT NULL DEFAULT '',
  type VARCHAR NOT NULL DEFAULT 'percentage',
  value DOUBLE PRECISION NOT NULL DEFAULT 0,
  start_date TIMESTAMPTZ NULL,
  end_date TIMESTAMPTZ NULL,
  channel VARCHAR NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	if err != nil {
		return err
	}

	_, err = pg.Exec(ctx, `
CREATE TABLE IF NOT EXISTS customer_coupons (
  id UUID PRIMARY KEY,
  coupon_id UUID NOT NULL,
  business_id UUID NOT NULL,
  customer_id UUID NOT NULL,
  title VARCHAR NOT NULL DEFAULT '',
  code VARCHAR NOT NULL DEFAULT '',
  type VARCHAR NOT NULL DEFAULT 'percentage',
  value DOUBLE PRECISION NOT NULL DEFAULT 0,
  expires_at TIMESTAMPTZ NULL,
  redeemed BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	if err != nil {
		return err
	}

	// Non-destructive upgrades for databases that predate normalization.
	_, err = pg.Exec(ctx, `
ALTER TABLE customers
  ADD COLUMN IF NOT EXISTS phone_normalized VARCHAR NULL,
  ADD COLUMN IF NOT EXISTS user_id UUID NULL;
`)
	if err != nil {
		return err
	}
	_, err = pg.Exec(ctx, `
ALTER TABLE accounts
  ADD COLUMN IF NOT EXISTS phone_number_normalized VARCHAR NULL,
  ADD COLUMN IF NOT EXISTS linked_customer_id UUID NULL;
`)
	if err != nil {
		return err
	}

	for _, q := range []string{
		`CREATE INDEX IF NOT EXISTS idx_customers_phone_normalized ON customers (phone_normalized)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_business_phone ON customers (business_id, phone_normalized)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers (phone)`,
		`CREATE INDEX IF NOT EXISTS idx_coupons_business ON coupons (business_id)`,
		`CREATE INDEX IF NOT EXISTS idx_coupon_distributions_business ON coupon_distributions (business_id)`,
		`CREATE INDEX IF NOT EXISTS idx_coupon_distributions_coupon ON coupon_distributions (coupon_id)`,
		`CREATE INDEX IF NOT EXISTS idx_customer_coupons_business ON customer_coupons (business_id)`,
		`CREATE INDEX IF NOT EXISTS idx_customer_coupons_coupon ON customer_coupons (coupon_id)`,
	} {
		if _, err := pg.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
