package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/identity"
	"github.com/perkloop/backend/internal/phone"
	"github.com/perkloop/backend/internal/server/mw"
	"github.com/perkloop/backend/internal/server/resp"
)

type AccountHandler struct {
	logger   *zap.Logger
	accounts *accounts.Repo
	linker   *identity.Linker
}

func NewAccountHandler(logger *zap.Logger, accountsRepo *accounts.Repo, linker *identity.Linker) *AccountHandler {
	return &AccountHandler{logger: logger, accounts: accountsRepo, linker: linker}
}

type createAccountReq struct {
	Role        string  `json:"role" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	BusinessID  *string `json:"business_id,omitempty"`
}

// POST /v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case accounts.RoleBusiness, accounts.RoleCustomer:
	default:
		resp.Error(c, http.StatusBadRequest, "invalid role (allowed: business, customer)")
		return
	}

	acct := accounts.Account{
		Role:  role,
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if req.BusinessID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*req.BusinessID))
		if err != nil {
			resp.Error(c, http.StatusBadRequest, "business_id must be a UUID")
			return
		}
		acct.BusinessID = &id
	}
	if req.PhoneNumber != nil {
		raw := strings.TrimSpace(*req.PhoneNumber)
		normalized := phone.Normalize(raw)
		if normalized == "" {
			resp.Error(c, http.StatusBadRequest, "phone_number contains no digits")
			return
		}
		acct.PhoneNumber = &raw
		acct.PhoneNumberNormalized = &normalized
	}

	if err := h.accounts.Create(c.Request.Context(), &acct); err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			resp.Error(c, http.StatusConflict, "this email is already registered")
			return
		}
		h.logger.Error("account create failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}

	// A customer account created with a phone gets resolved immediately so a
	// pre-existing customer profile is linked from the first session.
	var linkedCustomerID *uuid.UUID
	if role == accounts.RoleCustomer && acct.PhoneNumber != nil {
		id, err := h.linker.UpdateAccountPhoneAndLink(c.Request.Context(), acct.ID, *acct.PhoneNumber)
		if err != nil && !errors.Is(err, identity.ErrAlreadyLinkedToOther) {
			h.logger.Warn("initial phone link failed", zap.Error(err))
		}
		if id != uuid.Nil {
			linkedCustomerID = &id
		}
	}

	out, _ := h.accounts.FindByID(c.Request.Context(), acct.ID)
	if out == nil {
		out = &acct
	}
	resp.Created(c, gin.H{"account": out, "linked_customer_id": linkedCustomerID})
}

// GET /v1/me
func (h *AccountHandler) Me(c *gin.Context) {
	accountID := c.MustGet(mw.CtxAccountID).(uuid.UUID)
	acct, err := h.accounts.FindByID(c.Request.Context(), accountID)
	if err != nil {
		resp.Error(c, http.StatusUnauthorized, "account not found")
		return
	}
	resp.OK(c, gin.H{"account": acct})
}

type updatePhoneReq struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// PUT /v1/me/phone
func (h *AccountHandler) UpdatePhone(c *gin.Context) {
	accountID := c.MustGet(mw.CtxAccountID).(uuid.UUID)
	var req updatePhoneReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	customerID, err := h.linker.UpdateAccountPhoneAndLink(c.Request.Context(), accountID, strings.TrimSpace(req.PhoneNumber))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidPhone):
			resp.Error(c, http.StatusBadRequest, "phone_number contains no digits")
		case errors.Is(err, identity.ErrAlreadyLinkedToOther):
			resp.Error(c, http.StatusConflict, "matched customer is linked to another account")
		case errors.Is(err, identity.ErrWriteFailed):
			h.logger.Error("phone update write failed", zap.Error(err))
			resp.Error(c, http.StatusInternalServerError, "internal error")
		default:
			h.logger.Error("phone update failed", zap.Error(err))
			resp.Error(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	acct, _ := h.accounts.FindByID(c.Request.Context(), accountID)
	out := gin.H{"event": "phone_updated", "account": acct}
	if customerID != uuid.Nil {
		out["linked_customer_id"] = customerID
	}
	resp.OK(c, out)
}
