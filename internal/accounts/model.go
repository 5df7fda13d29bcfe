package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleBusiness = "business"
	RoleCustomer = "customer"
)

// Account is a login identity. LinkedCustomerID is a weak reference to the
// customer record resolved for this account's phone number; BusinessID is set
// only for business-role accounts.
type Account struct {
	ID                    uuid.UUID  `json:"id"`
	Role                  string     `json:"role"` // business | customer
	Email                 string     `json:"email"`
	PhoneNumber           *string    `json:"phone_number,omitempty"`
	PhoneNumberNormalized *string    `json:"phone_number_normalized,omitempty"`
	LinkedCustomerID      *uuid.UUID `json:"linked_customer_id,omitempty"`
	BusinessID            *uuid.UUID `json:"business_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
