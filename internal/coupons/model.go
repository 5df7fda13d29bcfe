package coupons

import (
	"time"

	"github.com/google/uuid"
)

// Coupon types.
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

// Coupon is the canonical, authoritative record of an offer in the `coupons`
// collection. Exactly one canonical row exists per logical coupon id;
// usage_count stays within usage_limit whenever the limit is positive.
type Coupon struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"` // percentage | fixed
	Value       float64   `json:"value"`
	Code        string    `json:"code"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Active      bool      `json:"active"`
	UsageLimit  int       `json:"usage_limit"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Distribution is the denormalized, write-optimized row created at send time
// in `coupon_distributions`. It references the coupon by CouponID and carries
// enough fields to render without a join.
type Distribution struct {
	ID         uuid.UUID  `json:"id"`
	CouponID   uuid.UUID  `json:"coupon_id"`
	BusinessID uuid.UUID  `json:"business_id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Title      string     `json:"title"`
	Code       string     `json:"code"`
	Type       string     `json:"type"`
	Value      float64    `json:"value"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Channel    string     `json:"channel"` // sms | email | qr
	CreatedAt  time.Time  `json:"created_at"`
}

// Allocation is the per-customer projection in `customer_coupons`, created
// when a coupon is allocated to a specific customer.
type Allocation struct {
	ID         uuid.UUID  `json:"id"`
	CouponID   uuid.UUID  `json:"coupon_id"`
	BusinessID uuid.UUID  `json:"business_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	Title      string     `json:"title"`
	Code       string     `json:"code"`
	Type       string     `json:"type"`
	Value      float64    `json:"value"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Redeemed   bool       `json:"redeemed"`
	CreatedAt  time.Time  `json:"created_at"`
}
