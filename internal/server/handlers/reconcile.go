package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/reconcile"
	"github.com/perkloop/backend/internal/server/mw"
	"github.com/perkloop/backend/internal/server/resp"
	"github.com/perkloop/backend/internal/store"
)

type ReconcileHandler struct {
	logger     *zap.Logger
	accounts   *accounts.Repo
	reconciler *reconcile.Reconciler
	reports    *store.ReconcileReportStore
}

func NewReconcileHandler(logger *zap.Logger, accountsRepo *accounts.Repo, reconciler *reconcile.Reconciler, reports *store.ReconcileReportStore) *ReconcileHandler {
	return &ReconcileHandler{logger: logger, accounts: accountsRepo, reconciler: reconciler, reports: reports}
}

func (h *ReconcileHandler) businessOf(c *gin.Context) (uuid.UUID, bool) {
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

// POST /v1/reconcile
func (h *ReconcileHandler) Run(c *gin.Context) {
	businessID, ok := h.businessOf(c)
	if !ok {
		return
	}

	report, err := h.reconciler.Reconcile(c.Request.Context(), businessID)
	if err != nil {
		h.logger.Error("reconciliation failed",
			zap.String("business_id", businessID.String()), zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	// The report cache is convenience, not a ledger; losing a save is fine.
	if err := h.reports.Save(c.Request.Context(), report); err != nil {
		h.logger.Warn("report save failed", zap.Error(err))
	}
	resp.OK(c, gin.H{"report": report})
}

// GET /v1/reconcile/last
func (h *ReconcileHandler) Last(c *gin.Context) {
	businessID, ok := h.businessOf(c)
	if !ok {
		return
	}

	report, err := h.reports.Last(c.Request.Context(), businessID)
	if err != nil {
		if errors.Is(err, store.ErrNoReport) {
			resp.Error(c, http.StatusNotFound, "no reconciliation ran yet")
			return
		}
		h.logger.Error("report fetch failed", zap.Error(err))
		resp.Error(c, http.StatusInternalServerError, "internal error")
		return
	}
	resp.OK(c, gin.H{"report": report})
}
