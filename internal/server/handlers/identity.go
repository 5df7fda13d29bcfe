package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/identity"
	"github.com/perkloop/backend/internal/server/resp"
)

type IdentityHandler struct {
	logger   *zap.Logger
	resolver *identity.Resolver
}

func NewIdentityHandler(logger *zap.Logger, resolver *identity.Resolver) *IdentityHandler {
	return &IdentityHandler{logger: logger, resolver: resolver}
}

type resolveReq struct {
	Phone      string  `json:"phone" binding:"required"`
	BusinessID *string `json:"business_id,omitempty"`
}

// POST /v1/identity/resolve
func (h *IdentityHandler) Resolve(c *gin.Context) {
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}

	var businessID *uuid.UUID
	if req.BusinessID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*req.BusinessID))
		if err != nil {
			resp.Error(c, http.StatusBadRequest, "business_id must be a UUID")
			return
		}
		businessID = &id
	}

	res, err := h.resolver.FindByPhone(c.Request.Context(), req.Phone, businessID)
	if err != nil {
		h.logger.Error("phone resolution failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	if res.Customer == nil {
		// Absence is a normal outcome, not a failure.
		resp.Success(c, http.StatusNotFound, "no customer matched", gin.H{
			"customer": nil, "candidates": []any{}, "ambiguous": false,
		})
		return
	}
	resp.OK(c, gin.H{
		"customer":   res.Customer,
		"candidates": res.Candidates,
		"ambiguous":  res.Ambiguous,
		"tier":       res.Tier,
	})
}
