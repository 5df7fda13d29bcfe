// One-shot coupon reconciliation for a single business, for cron or manual
// runs without the API server.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/config"
	"github.com/perkloop/backend/internal/coupons"
	"github.com/perkloop/backend/internal/infra"
	"github.com/perkloop/backend/internal/reconcile"
	"github.com/perkloop/backend/internal/store"
)

func main() {
	config.LoadDotEnvUp(8)

	business := flag.String("business", "", "business id (UUID) to reconcile")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if os.Getenv("APP_ENV") == "local" {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	businessID, err := uuid.Parse(*business)
	if err != nil {
		logger.Fatal("-business must be a UUID", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()
	infraDeps, err := infra.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("infra init failed", zap.Error(err))
	}
	defer infraDeps.Close()

	reconciler := reconcile.New(coupons.NewRepo(infraDeps.PG), logger)
	report, err := reconciler.Reconcile(ctx, businessID)
	if err != nil {
		logger.Fatal("reconciliation failed", zap.Error(err))
	}

	reports := store.NewReconcileReportStore(infraDeps.Redis, cfg.Cache.ReportTTL)
	if err := reports.Save(ctx, report); err != nil {
		logger.Warn("report save failed", zap.Error(err))
	}

	logger.Info("reconciliation done",
		zap.String("business_id", businessID.String()),
		zap.Int("created", report.Created),
		zap.Int("scanned_distributions", report.ScannedDistributions),
		zap.Int("scanned_allocations", report.ScannedAllocations),
		zap.Int("scanned_existing", report.ScannedExisting),
	)
}
