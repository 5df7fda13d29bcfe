package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/coupons"
	"github.com/perkloop/backend/internal/customers"
	"github.com/perkloop/backend/internal/server/mw"
)

type fakeAccountDir struct {
	accounts map[uuid.UUID]*accounts.Account
}

func (f *fakeAccountDir) FindByID(_ context.Context, id uuid.UUID) (*accounts.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return a, nil
}

type fakeCouponRepo struct {
	coupons map[uuid.UUID]*coupons.Coupon
}

func (f *fakeCouponRepo) FindByID(_ context.Context, id uuid.UUID) (*coupons.Coupon, error) {
	c, ok := f.coupons[id]
	if !ok {
		return nil, coupons.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCouponRepo) Create(_ context.Context, c *coupons.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	f.coupons[cp.ID] = &cp
	return nil
}

func (f *fakeCouponRepo) Redeem(_ context.Context, id uuid.UUID) (*coupons.Coupon, error) {
	c, ok := f.coupons[id]
	if !ok {
		return nil, coupons.ErrNotFound
	}
	if !c.Active {
		return nil, coupons.ErrInactive
	}
	if c.UsageLimit != 0 && c.UsageCount >= c.UsageLimit {
		return nil, coupons.ErrUsageLimitReached
	}
	c.UsageCount++
	cp := *c
	return &cp, nil
}

type fakeCustomerDir struct {
	customers map[uuid.UUID]*customers.Customer
	visits    map[uuid.UUID]int
}

func (f *fakeCustomerDir) FindByID(_ context.Context, id uuid.UUID) (*customers.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	return c, nil
}

func (f *fakeCustomerDir) RecordVisit(_ context.Context, id uuid.UUID, _ float64, _ int) error {
	if f.visits == nil {
		f.visits = make(map[uuid.UUID]int)
	}
	f.visits[id]++
	return nil
}

func redeemRequest(t *testing.T, h *CouponHandler, accountID, couponID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost,
		"/v1/coupons/"+couponID.String()+"/redeem", bytes.NewReader(raw))
	c.Params = gin.Params{{Key: "id", Value: couponID.String()}}
	c.Set(mw.CtxAccountID, accountID)
	c.Set(mw.CtxRole, accounts.RoleBusiness)

	h.Redeem(c)
	return w
}

func TestRedeemRejectsForeignCustomer(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()

	acct := &accounts.Account{ID: uuid.New(), Role: accounts.RoleBusiness, BusinessID: &mine}
	coupon := &coupons.Coupon{ID: uuid.New(), BusinessID: mine, Active: true}
	foreign := &customers.Customer{ID: uuid.New(), BusinessID: &other}

	accountDir := &fakeAccountDir{accounts: map[uuid.UUID]*accounts.Account{acct.ID: acct}}
	couponRepo := &fakeCouponRepo{coupons: map[uuid.UUID]*coupons.Coupon{coupon.ID: coupon}}
	customerDir := &fakeCustomerDir{customers: map[uuid.UUID]*customers.Customer{foreign.ID: foreign}}
	h := NewCouponHandler(zap.NewNop(), accountDir, couponRepo, customerDir)

	w := redeemRequest(t, h, acct.ID, coupon.ID, gin.H{
		"customer_id": foreign.ID.String(), "spent": 25.0, "points": 5,
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	// Neither the foreign counters nor the coupon moved.
	assert.Zero(t, customerDir.visits[foreign.ID])
	assert.Zero(t, couponRepo.coupons[coupon.ID].UsageCount)
}

func TestRedeemRecordsOwnCustomerVisit(t *testing.T) {
	mine := uuid.New()

	acct := &accounts.Account{ID: uuid.New(), Role: accounts.RoleBusiness, BusinessID: &mine}
	coupon := &coupons.Coupon{ID: uuid.New(), BusinessID: mine, Active: true}
	cust := &customers.Customer{ID: uuid.New(), BusinessID: &mine}

	accountDir := &fakeAccountDir{accounts: map[uuid.UUID]*accounts.Account{acct.ID: acct}}
	couponRepo := &fakeCouponRepo{coupons: map[uuid.UUID]*coupons.Coupon{coupon.ID: coupon}}
	customerDir := &fakeCustomerDir{customers: map[uuid.UUID]*customers.Customer{cust.ID: cust}}
	h := NewCouponHandler(zap.NewNop(), accountDir, couponRepo, customerDir)

	w := redeemRequest(t, h, acct.ID, coupon.ID, gin.H{
		"customer_id": cust.ID.String(), "spent": 25.0, "points": 5,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, customerDir.visits[cust.ID])
	assert.Equal(t, 1, couponRepo.coupons[coupon.ID].UsageCount)
}
