package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/customers"
	"github.com/perkloop/backend/internal/phone"
)

var (
	// ErrAlreadyLinkedToOther is returned when the customer already carries a
	// different account's user id. First writer wins; nothing is overwritten
	// and the call is not retried.
	ErrAlreadyLinkedToOther = errors.New("customer already linked to another account")

	// ErrWriteFailed wraps a storage write failure. The caller decides retry
	// policy; the linker never retries on its own.
	ErrWriteFailed = errors.New("link write failed")

	ErrInvalidPhone = errors.New("phone contains no digits")
)

// Link states for one account-customer pair. Linked is terminal; there is no
// unlink operation.
const (
	StateUnlinked   = "unlinked"
	StateLinking    = "linking"
	StateLinked     = "linked"
	StateLinkFailed = "link_failed"
)

// AccountStore is the account-side storage surface the linker needs.
// *accounts.Repo satisfies it.
type AccountStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
	UpdatePhone(ctx context.Context, id uuid.UUID, phone, normalized string) error
}

// CustomerStore is the customer-side write surface the linker needs: phone
// rewrites and the symmetric account-customer link as a single logical update.
// *customers.Repo satisfies it with a transactional LinkAccount.
type CustomerStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*customers.Customer, error)
	UpdatePhone(ctx context.Context, id uuid.UUID, phone, normalized string) error
	LinkAccount(ctx context.Context, customerID, accountID uuid.UUID) error
}

// Linker associates a login account with a customer record, enforcing the
// at-most-one-link invariant and staying idempotent under retries.
type Linker struct {
	accounts  AccountStore
	customers CustomerStore
	resolver  *Resolver
	cache     ResolutionCache // may be nil
	logger    *zap.Logger
}

func NewLinker(accountStore AccountStore, customerStore CustomerStore, resolver *Resolver, cache ResolutionCache, logger *zap.Logger) *Linker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Linker{accounts: accountStore, customers: customerStore, resolver: resolver, cache: cache, logger: logger}
}

// LinkAccountToCustomer writes userID onto the customer and linkedCustomerId
// onto the account. Re-linking an already-linked pair succeeds as a no-op; a
// customer held by a different account yields ErrAlreadyLinkedToOther with
// nothing written.
func (l *Linker) LinkAccountToCustomer(ctx context.Context, accountID, customerID uuid.UUID) error {
	l.logger.Info("linking account to customer",
		zap.String("account_id", accountID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("state", StateLinking),
	)
	err := l.customers.LinkAccount(ctx, customerID, accountID)
	switch {
	case err == nil:
		l.logger.Info("account linked",
			zap.String("account_id", accountID.String()),
			zap.String("customer_id", customerID.String()),
			zap.String("state", StateLinked),
		)
		return nil
	case errors.Is(err, customers.ErrLinkedToOther):
		return ErrAlreadyLinkedToOther
	case errors.Is(err, customers.ErrNotFound):
		return err
	default:
		l.logger.Error("link write failed",
			zap.String("account_id", accountID.String()),
			zap.String("customer_id", customerID.String()),
			zap.String("state", StateLinkFailed),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
}

// UpdateAccountPhoneAndLink writes the phone onto the account, resolves it to
// a customer, and links when a match is found. Returns the linked customer id,
// or uuid.Nil when no customer matched. Idempotent: a second call with the
// same phone changes nothing and returns the same id.
func (l *Linker) UpdateAccountPhoneAndLink(ctx context.Context, accountID uuid.UUID, rawPhone string) (uuid.UUID, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return uuid.Nil, ErrInvalidPhone
	}

	acct, err := l.accounts.FindByID(ctx, accountID)
	if err != nil {
		return uuid.Nil, err
	}

	if acct.PhoneNumber == nil || *acct.PhoneNumber != rawPhone {
		if err := l.accounts.UpdatePhone(ctx, accountID, rawPhone, normalized); err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		if l.cache != nil && acct.PhoneNumberNormalized != nil && *acct.PhoneNumberNormalized != normalized {
			_ = l.cache.Invalidate(ctx, nil, *acct.PhoneNumberNormalized)
		}
	}

	res, err := l.resolver.FindByPhone(ctx, rawPhone, nil)
	if err != nil {
		return uuid.Nil, err
	}
	if res.Customer == nil {
		return uuid.Nil, nil
	}

	// Already linked to this exact customer: re-running resolution must not
	// create duplicate links or error.
	if acct.LinkedCustomerID != nil && *acct.LinkedCustomerID == res.Customer.ID &&
		res.Customer.UserID != nil && *res.Customer.UserID == accountID {
		return res.Customer.ID, nil
	}

	if err := l.LinkAccountToCustomer(ctx, accountID, res.Customer.ID); err != nil {
		return uuid.Nil, err
	}
	if l.cache != nil {
		_ = l.cache.Invalidate(ctx, nil, normalized)
	}
	return res.Customer.ID, nil
}

// UpdateCustomerPhone rewrites a customer's phone and drops any cached
// resolution for the old and new normalized forms, in both the customer's
// business scope and the global scope. Returns the updated record.
func (l *Linker) UpdateCustomerPhone(ctx context.Context, customerID uuid.UUID, rawPhone string) (*customers.Customer, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return nil, ErrInvalidPhone
	}

	cust, err := l.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := l.customers.UpdatePhone(ctx, customerID, rawPhone, normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if l.cache != nil {
		if cust.PhoneNormalized != nil && *cust.PhoneNormalized != normalized {
			_ = l.cache.Invalidate(ctx, cust.BusinessID, *cust.PhoneNormalized)
			_ = l.cache.Invalidate(ctx, nil, *cust.PhoneNormalized)
		}
		_ = l.cache.Invalidate(ctx, cust.BusinessID, normalized)
		_ = l.cache.Invalidate(ctx, nil, normalized)
	}

	return l.customers.FindByID(ctx, customerID)
}
