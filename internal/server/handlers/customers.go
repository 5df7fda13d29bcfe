package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/customers"
	"github.com/perkloop/backend/internal/identity"
	"github.com/perkloop/backend/internal/phone"
	"github.com/perkloop/backend/internal/server/mw"
	"github.com/perkloop/backend/internal/server/resp"
)

type CustomerHandler struct {
	logger    *zap.Logger
	accounts  *accounts.Repo
	customers *customers.Repo
	linker    *identity.Linker
}

func NewCustomerHandler(logger *zap.Logger, accountsRepo *accounts.Repo, customersRepo *customers.Repo, linker *identity.Linker) *CustomerHandler {
	return &CustomerHandler{logger: logger, accounts: accountsRepo, customers: customersRepo, linker: linker}
}

// businessOf resolves the calling account's business id. Business endpoints
// refuse accounts that have no business attached.
func (h *CustomerHandler) businessOf(c *gin.Context) (uuid.UUID, bool) {
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

type createCustomerReq struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// POST /v1/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	businessID, ok := h.businessOf(c)
	if !ok {
		return
	}

	var req createCustomerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	cust := customers.Customer{
		BusinessID: &businessID,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		cust.Email = &email
	}
	if req.Phone != nil {
		raw := strings.TrimSpace(*req.Phone)
		normalized := phone.Normalize(raw)
		if normalized == "" {
			resp.Error(c, http.StatusBadRequest, "phone contains no digits")
			return
		}
		cust.Phone = &raw
		cust.PhoneNormalized = &normalized
	}

	if err := h.customers.Create(c.Request.Context(), &cust); err != nil {
		h.logger.Error("customer create failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	resp.Created(c, gin.H{"customer": cust})
}

// GET /v1/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	businessID, ok := h.businessOf(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		resp.Error(c, http.StatusBadRequest, "id must be a UUID")
		return
	}

	cust, err := h.customers.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, customers.ErrNotFound) {
			resp.Error(c, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("customer fetch failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	// A business only ever sees its own customers.
	if cust.BusinessID == nil || *cust.BusinessID != businessID {
		resp.Error(c, http.StatusNotFound, "customer not found")
		return
	}
	resp.OK(c, gin.H{"customer": cust})
}

type updateCustomerPhoneReq struct {
	Phone string `json:"phone" binding:"required"`
}

// PUT /v1/customers/:id/phone
func (h *CustomerHandler) UpdatePhone(c *gin.Context) {
	businessID, ok := h.businessOf(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		resp.Error(c, http.StatusBadRequest, "id must be a UUID")
		return
	}

	var req updateCustomerPhoneReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	cust, err := h.customers.FindByID(c.Request.Context(), id)
	if err != nil || cust.BusinessID == nil || *cust.BusinessID != businessID {
		resp.Error(c, http.StatusNotFound, "customer not found")
		return
	}

	updated, err := h.linker.UpdateCustomerPhone(c.Request.Context(), id, strings.TrimSpace(req.Phone))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidPhone):
			resp.Error(c, http.StatusBadRequest, "phone contains no digits")
		case errors.Is(err, customers.ErrNotFound):
			resp.Error(c, http.StatusNotFound, "customer not found")
		default:
			h.logger.Error("customer phone update failed", zap.Error(err))
			resp.Error(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	resp.OK(c, gin.H{"customer": updated})
}
