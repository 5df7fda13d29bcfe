package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/security"
	"github.com/perkloop/backend/internal/server/resp"
)

// AuthHandler issues and refreshes API tokens for an existing account. The
// real login flows (password, social) live with the auth provider; this is
// the minimal token surface the middleware needs.
type AuthHandler struct {
	logger   *zap.Logger
	accounts *accounts.Repo
	jwtm     *security.JWTManager
}

func NewAuthHandler(logger *zap.Logger, accountsRepo *accounts.Repo, jwtm *security.JWTManager) *AuthHandler {
	return &AuthHandler{logger: logger, accounts: accountsRepo, jwtm: jwtm}
}

type tokenReq struct {
	AccountID string `json:"account_id" binding:"required"`
}

// POST /v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(req.AccountID))
	if err != nil {
		resp.Error(c, http.StatusBadRequest, "account_id must be a UUID")
		return
	}
	acct, err := h.accounts.FindByID(c.Request.Context(), id)
	if err != nil {
		resp.Error(c, http.StatusNotFound, "account not found")
		return
	}
	tokens, _, err := h.jwtm.Issue(acct.Role, acct.ID)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	resp.OK(c, gin.H{"tokens": tokens, "account": acct})
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	claims, err := h.jwtm.ParseRefresh(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		resp.Error(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		resp.Error(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	tokens, _, err := h.jwtm.Issue(claims.Role, id)
	if err != nil {
		h.logger.Error("token refresh failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	resp.OK(c, gin.H{"tokens": tokens})
}
