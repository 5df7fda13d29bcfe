package customers

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a business's record of a person. UserID is a weak reference to
// a login account; BusinessID is the owning business. A customer belongs to
// exactly one business at a time and is never hard-deleted.
type Customer struct {
	ID              uuid.UUID  `json:"id"`
	BusinessID      *uuid.UUID `json:"business_id,omitempty"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           *string    `json:"email,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	PhoneNormalized *string    `json:"phone_normalized,omitempty"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	TotalVisits     int        `json:"total_visits"`
	TotalSpent      float64    `json:"total_spent"`
	LoyaltyPoints   int        `json:"loyalty_points"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
