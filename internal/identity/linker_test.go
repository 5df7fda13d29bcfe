package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/customers"
)

func newTestLinker(f *fakeStore) *Linker {
	return NewLinker(accountSide{f}, f, newTestResolver(f), nil, nil)
}

func TestLinkResolvedCustomer(t *testing.T) {
	// An account with a local-form phone and a pre-existing customer stored in
	// the international form must end up linked both ways.
	f := newFakeStore()
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer, Email: "thandi@example.com"})
	cust := f.addCustomer(customers.Customer{
		FirstName: "Thandi",
		Phone:     strPtr("+27832091122"),
	})

	linked, err := newTestLinker(f).UpdateAccountPhoneAndLink(context.Background(), acct.ID, "0832091122")
	require.NoError(t, err)
	assert.Equal(t, cust.ID, linked)

	gotCust := f.customers[cust.ID]
	require.NotNil(t, gotCust.UserID)
	assert.Equal(t, acct.ID, *gotCust.UserID)

	gotAcct := f.accounts[acct.ID]
	require.NotNil(t, gotAcct.LinkedCustomerID)
	assert.Equal(t, cust.ID, *gotAcct.LinkedCustomerID)
	require.NotNil(t, gotAcct.PhoneNumber)
	assert.Equal(t, "0832091122", *gotAcct.PhoneNumber)
}

func TestUpdateAccountPhoneAndLinkIsIdempotent(t *testing.T) {
	f := newFakeStore()
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer})
	cust := f.addCustomer(customers.Customer{Phone: strPtr("+27832091122")})
	l := newTestLinker(f)

	first, err := l.UpdateAccountPhoneAndLink(context.Background(), acct.ID, "0832091122")
	require.NoError(t, err)
	second, err := l.UpdateAccountPhoneAndLink(context.Background(), acct.ID, "0832091122")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, cust.ID, second)
	// No duplicate records appeared on the second pass.
	assert.Len(t, f.customers, 1)
	assert.Len(t, f.accounts, 1)
}

func TestLinkFirstWriterWins(t *testing.T) {
	f := newFakeStore()
	holder := uuid.New()
	cust := f.addCustomer(customers.Customer{
		Phone:  strPtr("+27832091122"),
		UserID: &holder,
	})
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer})

	err := newTestLinker(f).LinkAccountToCustomer(context.Background(), acct.ID, cust.ID)
	assert.ErrorIs(t, err, ErrAlreadyLinkedToOther)
	// The existing link survives untouched.
	assert.Equal(t, holder, *f.customers[cust.ID].UserID)
	assert.Nil(t, f.accounts[acct.ID].LinkedCustomerID)
}

func TestLinkSamePairIsNoop(t *testing.T) {
	f := newFakeStore()
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer})
	cust := f.addCustomer(customers.Customer{UserID: &acct.ID})

	err := newTestLinker(f).LinkAccountToCustomer(context.Background(), acct.ID, cust.ID)
	assert.NoError(t, err)
}

func TestLinkMissingCustomer(t *testing.T) {
	f := newFakeStore()
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer})

	err := newTestLinker(f).LinkAccountToCustomer(context.Background(), acct.ID, uuid.New())
	assert.ErrorIs(t, err, customers.ErrNotFound)
}

func TestLinkWriteFailureIsTyped(t *testing.T) {
	f := newFakeStore()
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer})
	cust := f.addCustomer(customers.Customer{Phone: strPtr("+27832091122")})
	f.linkErr = errors.New("connection reset")

	err := newTestLinker(f).LinkAccountToCustomer(context.Background(), acct.ID, cust.ID)
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestUpdatePhoneNoMatchLeavesUnlinked(t *testing.T) {
	f := newFakeStore()
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer})

	linked, err := newTestLinker(f).UpdateAccountPhoneAndLink(context.Background(), acct.ID, "0832091122")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, linked)
	// The phone still lands on the account for a later resolution pass.
	require.NotNil(t, f.accounts[acct.ID].PhoneNumber)
	assert.Equal(t, "0832091122", *f.accounts[acct.ID].PhoneNumber)
}

func TestUpdatePhoneRejectsDigitFreeInput(t *testing.T) {
	f := newFakeStore()
	acct := f.addAccount(accounts.Account{Role: accounts.RoleCustomer})

	_, err := newTestLinker(f).UpdateAccountPhoneAndLink(context.Background(), acct.ID, "---")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestUpdateCustomerPhone(t *testing.T) {
	biz := uuid.New()
	f := newFakeStore()
	cust := f.addCustomer(customers.Customer{
		BusinessID:      &biz,
		Phone:           strPtr("0832091122"),
		PhoneNormalized: strPtr("0832091122"),
	})
	cache := newFakeCache()
	cache.entries[cacheKey(&biz, "0832091122")] = cust.ID
	cache.entries[cacheKey(nil, "0832091122")] = cust.ID
	l := NewLinker(accountSide{f}, f, newTestResolver(f), cache, nil)

	updated, err := l.UpdateCustomerPhone(context.Background(), cust.ID, "+27761234567")
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+27761234567", *updated.Phone)
	require.NotNil(t, updated.PhoneNormalized)
	assert.Equal(t, "27761234567", *updated.PhoneNormalized)

	// Stale resolutions for the old number are gone in both scopes.
	assert.Contains(t, cache.invalidated, cacheKey(&biz, "0832091122"))
	assert.Contains(t, cache.invalidated, cacheKey(nil, "0832091122"))
	assert.Empty(t, cache.entries)
}

func TestUpdateCustomerPhoneRejectsDigitFreeInput(t *testing.T) {
	f := newFakeStore()
	cust := f.addCustomer(customers.Customer{Phone: strPtr("0832091122")})

	_, err := newTestLinker(f).UpdateCustomerPhone(context.Background(), cust.ID, "---")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	// The stored phone is untouched.
	assert.Equal(t, "0832091122", *f.customers[cust.ID].Phone)
}

func TestUpdateCustomerPhoneMissingCustomer(t *testing.T) {
	f := newFakeStore()

	_, err := newTestLinker(f).UpdateCustomerPhone(context.Background(), uuid.New(), "0832091122")
	assert.ErrorIs(t, err, customers.ErrNotFound)
}
