package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perkloop/backend/internal/customers"
	"github.com/perkloop/backend/internal/phone"
)

func strPtr(s string) *string { return &s }

func newTestResolver(f *fakeStore) *Resolver {
	return NewResolver(f, phone.NewMatcher(false, 0, nil), nil, nil)
}

func TestResolverNormalizedTier(t *testing.T) {
	f := newFakeStore()
	want := f.addCustomer(customers.Customer{
		FirstName:       "Thandi",
		Phone:           strPtr("+27832091122"),
		PhoneNormalized: strPtr("27832091122"),
	})

	res, err := newTestResolver(f).FindByPhone(context.Background(), "+27 83 209 1122", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Customer)
	assert.Equal(t, want.ID, res.Customer.ID)
	assert.Equal(t, TierNormalized, res.Tier)
	assert.False(t, res.Ambiguous)
}

func TestResolverRawFormatTier(t *testing.T) {
	// Record stored with the international form but no normalized column.
	f := newFakeStore()
	want := f.addCustomer(customers.Customer{
		FirstName: "Sipho",
		Phone:     strPtr("+27832091122"),
	})

	res, err := newTestResolver(f).FindByPhone(context.Background(), "0832091122", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Customer)
	assert.Equal(t, want.ID, res.Customer.ID)
	assert.Equal(t, TierRawFormats, res.Tier)
}

func TestResolverLegacyScanTier(t *testing.T) {
	// Pre-normalization row: separators inside the stored raw value mean no
	// expanded format equals it, so only the matcher scan can find it.
	f := newFakeStore()
	want := f.addCustomer(customers.Customer{
		FirstName: "Lindiwe",
		Phone:     strPtr("(083) 209-1122"),
	})

	res, err := newTestResolver(f).FindByPhone(context.Background(), "27832091122", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Customer)
	assert.Equal(t, want.ID, res.Customer.ID)
	assert.Equal(t, TierScan, res.Tier)
}

func TestResolverBusinessScope(t *testing.T) {
	bizA := uuid.New()
	bizB := uuid.New()
	f := newFakeStore()
	inA := f.addCustomer(customers.Customer{
		BusinessID:      &bizA,
		PhoneNormalized: strPtr("27832091122"),
	})
	f.addCustomer(customers.Customer{
		BusinessID:      &bizB,
		PhoneNormalized: strPtr("27832091122"),
	})

	res, err := newTestResolver(f).FindByPhone(context.Background(), "0832091122", &bizA)
	require.NoError(t, err)
	require.NotNil(t, res.Customer)
	assert.Equal(t, inA.ID, res.Customer.ID)
	assert.False(t, res.Ambiguous)
}

func TestResolverNotFoundIsNotAnError(t *testing.T) {
	f := newFakeStore()
	res, err := newTestResolver(f).FindByPhone(context.Background(), "0832091122", nil)
	require.NoError(t, err)
	assert.Nil(t, res.Customer)
	assert.Empty(t, res.Candidates)
}

func TestResolverDigitFreeInput(t *testing.T) {
	f := newFakeStore()
	res, err := newTestResolver(f).FindByPhone(context.Background(), "+-() ", nil)
	require.NoError(t, err)
	assert.Nil(t, res.Customer)
	assert.Equal(t, TierNone, res.Tier)
}

func TestResolverAmbiguityIsSurfaced(t *testing.T) {
	f := newFakeStore()
	older := f.addCustomer(customers.Customer{
		FirstName:       "Old",
		PhoneNormalized: strPtr("27832091122"),
		UpdatedAt:       time.Now().Add(-time.Hour),
	})
	newer := f.addCustomer(customers.Customer{
		FirstName:       "New",
		PhoneNormalized: strPtr("27832091122"),
		UpdatedAt:       time.Now(),
	})

	res, err := newTestResolver(f).FindByPhone(context.Background(), "0832091122", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Customer)
	assert.True(t, res.Ambiguous)
	assert.Len(t, res.Candidates, 2)
	// Most recently updated record is the primary match, not map order.
	assert.Equal(t, newer.ID, res.Customer.ID)
	assert.Equal(t, older.ID, res.Candidates[1].ID)
}
