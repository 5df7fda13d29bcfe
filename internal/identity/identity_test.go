package identity

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/customers"
)

// fakeStore is an in-memory stand-in for the pgx repos, implementing
// CustomerDirectory, AccountStore and CustomerStore.
type fakeStore struct {
	customers map[uuid.UUID]*customers.Customer
	accounts  map[uuid.UUID]*accounts.Account
	linkErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[uuid.UUID]*customers.Customer),
		accounts:  make(map[uuid.UUID]*accounts.Account),
	}
}

func (f *fakeStore) addCustomer(c customers.Customer) *customers.Customer {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := c
	f.customers[cp.ID] = &cp
	return &cp
}

func (f *fakeStore) addAccount(a accounts.Account) *accounts.Account {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := a
	f.accounts[cp.ID] = &cp
	return &cp
}

func (f *fakeStore) inScope(c *customers.Customer, businessID *uuid.UUID) bool {
	if businessID == nil {
		return true
	}
	return c.BusinessID != nil && *c.BusinessID == *businessID
}

func byUpdatedDesc(list []customers.Customer) []customers.Customer {
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*customers.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListByNormalizedPhone(_ context.Context, normalized string, businessID *uuid.UUID) ([]customers.Customer, error) {
	var out []customers.Customer
	for _, c := range f.customers {
		if c.PhoneNormalized != nil && *c.PhoneNormalized == normalized && f.inScope(c, businessID) {
			out = append(out, *c)
		}
	}
	return byUpdatedDesc(out), nil
}

func (f *fakeStore) ListByRawPhoneIn(_ context.Context, formats []string, businessID *uuid.UUID) ([]customers.Customer, error) {
	set := make(map[string]struct{}, len(formats))
	for _, v := range formats {
		set[v] = struct{}{}
	}
	var out []customers.Customer
	for _, c := range f.customers {
		if c.Phone == nil || !f.inScope(c, businessID) {
			continue
		}
		if _, ok := set[*c.Phone]; ok {
			out = append(out, *c)
		}
	}
	return byUpdatedDesc(out), nil
}

func (f *fakeStore) ListWithPhone(_ context.Context, businessID *uuid.UUID) ([]customers.Customer, error) {
	var out []customers.Customer
	for _, c := range f.customers {
		if c.Phone != nil && *c.Phone != "" && f.inScope(c, businessID) {
			out = append(out, *c)
		}
	}
	return byUpdatedDesc(out), nil
}

func (f *fakeStore) FindAccountByID(_ context.Context, id uuid.UUID) (*accounts.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// FindByID on AccountStore collides with CustomerDirectory's; the linker in
// tests gets the store wrapped so each interface sees its own lookup.
type accountSide struct{ *fakeStore }

func (s accountSide) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	return s.FindAccountByID(ctx, id)
}

func (s accountSide) UpdatePhone(_ context.Context, id uuid.UUID, phone, normalized string) error {
	a, ok := s.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	a.PhoneNumber = &phone
	a.PhoneNumberNormalized = &normalized
	a.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) UpdatePhone(_ context.Context, id uuid.UUID, phone, normalized string) error {
	c, ok := f.customers[id]
	if !ok {
		return customers.ErrNotFound
	}
	c.Phone = &phone
	c.PhoneNormalized = &normalized
	c.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) LinkAccount(_ context.Context, customerID, accountID uuid.UUID) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	c, ok := f.customers[customerID]
	if !ok {
		return customers.ErrNotFound
	}
	if c.UserID != nil && *c.UserID != accountID {
		return customers.ErrLinkedToOther
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return errors.New("account missing")
	}
	c.UserID = &accountID
	a.LinkedCustomerID = &customerID
	return nil
}

// fakeCache records invalidations so tests can assert stale resolution
// entries are dropped.
type fakeCache struct {
	entries     map[string]uuid.UUID
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]uuid.UUID)}
}

func cacheKey(businessID *uuid.UUID, normalized string) string {
	scope := "global"
	if businessID != nil {
		scope = businessID.String()
	}
	return scope + ":" + normalized
}

func (f *fakeCache) Get(_ context.Context, businessID *uuid.UUID, normalized string) (uuid.UUID, error) {
	id, ok := f.entries[cacheKey(businessID, normalized)]
	if !ok {
		return uuid.Nil, errors.New("cache miss")
	}
	return id, nil
}

func (f *fakeCache) Set(_ context.Context, businessID *uuid.UUID, normalized string, customerID uuid.UUID) error {
	f.entries[cacheKey(businessID, normalized)] = customerID
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, businessID *uuid.UUID, normalized string) error {
	key := cacheKey(businessID, normalized)
	f.invalidated = append(f.invalidated, key)
	delete(f.entries, key)
	return nil
}
