package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/coupons"
	"github.com/perkloop/backend/internal/customers"
	"github.com/perkloop/backend/internal/server/mw"
	"github.com/perkloop/backend/internal/server/resp"
)

// Storage surfaces the coupon handler needs. The pgx repos satisfy them.
type accountDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
}

type couponStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*coupons.Coupon, error)
	Create(ctx context.Context, c *coupons.Coupon) error
	Redeem(ctx context.Context, id uuid.UUID) (*coupons.Coupon, error)
}

type customerDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*customers.Customer, error)
	RecordVisit(ctx context.Context, id uuid.UUID, spent float64, points int) error
}

type CouponHandler struct {
	logger    *zap.Logger
	accounts  accountDirectory
	coupons   couponStore
	customers customerDirectory
}

func NewCouponHandler(logger *zap.Logger, accountsRepo accountDirectory, couponsRepo couponStore, customersRepo customerDirectory) *CouponHandler {
	return &CouponHandler{logger: logger, accounts: accountsRepo, coupons: couponsRepo, customers: customersRepo}
}

func (h *CouponHandler) businessOf(c *gin.Context) (uuid.UUID, bool) {
	accountID := c.MustGet(mw.CtxAccountID).(uuid.UUID)
	acct, err := h.accounts.FindByID(c.Request.Context(), accountID)
	if err != nil {
		resp.Error(c, http.StatusUnauthorized, "account not found")
		return uuid.Nil, false
	}
	if acct.BusinessID == nil {
		resp.Error(c, http.StatusForbidden, "account has no business")
		return uuid.Nil, false
	}
	return *acct.BusinessID, true
}

type createCouponReq struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Type        string     `json:"type" binding:"required"`
	Value       float64    `json:"value" binding:"required"`
	Code        string     `json:"code" binding:"required"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	UsageLimit  int        `json:"usage_limit"`
}

// POST /v1/coupons
func (h *CouponHandler) Create(c *gin.Context) {
	businessID, ok := h.businessOf(c)
	if !ok {
		return
	}

	var req createCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	typ := strings.ToLower(strings.TrimSpace(req.Type))
	switch typ {
	case coupons.TypePercentage, coupons.TypeFixed:
	default:
		resp.Error(c, http.StatusBadRequest, "invalid type (allowed: percentage, fixed)")
		return
	}
	if req.Value <= 0 {
		resp.Error(c, http.StatusBadRequest, "value must be positive")
		return
	}
	if req.UsageLimit < 0 {
		resp.Error(c, http.StatusBadRequest, "usage_limit must not be negative")
		return
	}

	now := time.Now().UTC()
	start := now
	if req.StartDate != nil {
		start = *req.StartDate
	}
	end := start.AddDate(0, 1, 0)
	if req.EndDate != nil {
		end = *req.EndDate
	}
	if !end.After(start) {
		resp.Error(c, http.StatusBadRequest, "end_date must be after start_date")
		return
	}

	coupon := coupons.Coupon{
		BusinessID:  businessID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Type:        typ,
		Value:       req.Value,
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		StartDate:   start,
		EndDate:     end,
		Active:      true,
		UsageLimit:  req.UsageLimit,
	}
	if err := h.coupons.Create(c.Request.Context(), &coupon); err != nil {
		h.logger.Error("coupon create failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	resp.Created(c, gin.H{"coupon": coupon})
}

type redeemReq struct {
	CustomerID *string `json:"customer_id,omitempty"`
	Spent      float64 `json:"spent"`
	Points     int     `json:"points"`
}

// POST /v1/coupons/:id/redeem
func (h *CouponHandler) Redeem(c *gin.Context) {
	businessID, ok := h.businessOf(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		resp.Error(c, http.StatusBadRequest, "id must be a UUID")
		return
	}

	var req redeemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	// The visit target must be this business's own customer; a redemption must
	// never move another business's counters.
	var custID *uuid.UUID
	if req.CustomerID != nil {
		parsed, perr := uuid.Parse(strings.TrimSpace(*req.CustomerID))
		if perr != nil {
			resp.Error(c, http.StatusBadRequest, "customer_id must be a UUID")
			return
		}
		cust, err := h.customers.FindByID(c.Request.Context(), parsed)
		if err != nil || cust.BusinessID == nil || *cust.BusinessID != businessID {
			resp.Error(c, http.StatusNotFound, "customer not found")
			return
		}
		custID = &parsed
	}

	coupon, err := h.coupons.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, coupons.ErrNotFound) {
			resp.Error(c, http.StatusNotFound, "coupon not found")
			return
		}
		h.logger.Error("coupon fetch failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	if coupon.BusinessID != businessID {
		resp.Error(c, http.StatusNotFound, "coupon not found")
		return
	}

	redeemed, err := h.coupons.Redeem(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, coupons.ErrInactive):
			resp.Error(c, http.StatusConflict, "coupon is not active")
		case errors.Is(err, coupons.ErrUsageLimitReached):
			resp.Error(c, http.StatusConflict, "coupon usage limit reached")
		case errors.Is(err, coupons.ErrNotFound):
			resp.Error(c, http.StatusNotFound, "coupon not found")
		default:
			h.logger.Error("coupon redeem failed", zap.Error(err))
			resp.Error(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	// Visit bookkeeping is best-effort; a failed counter bump does not undo
	// the redemption.
	if custID != nil {
		if err := h.customers.RecordVisit(c.Request.Context(), *custID, req.Spent, req.Points); err != nil {
			h.logger.Warn("visit record failed",
				zap.String("customer_id", custID.String()), zap.Error(err))
		}
	}

	resp.OK(c, gin.H{"coupon": redeemed})
}
