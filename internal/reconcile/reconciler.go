// Package reconcile detects and repairs divergence between the canonical
// coupons collection and its two denormalized projections, so that every
// distributed or allocated coupon has exactly one canonical record.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/perkloop/backend/internal/coupons"
)

// ErrPartial means the backfill batch failed to commit. The write is
// all-or-nothing, so the report carries zero created records and the run is
// safe to re-invoke.
var ErrPartial = errors.New("reconciliation batch did not commit")

// Synthesis defaults. A distribution represents a broadcast offer and gets a
// generous usage limit; an allocation is a single customer's coupon.
const (
	distributionUsageLimit = 100
	allocationUsageLimit   = 1
	defaultValidityDays    = 30
)

// CouponStore is the storage surface the reconciler needs. *coupons.Repo
// satisfies it.
type CouponStore interface {
	ListDistributionsByBusiness(ctx context.Context, businessID uuid.UUID) ([]coupons.Distribution, error)
	ListAllocationsByBusiness(ctx context.Context, businessID uuid.UUID) ([]coupons.Allocation, error)
	ListIDsByBusiness(ctx context.Context, businessID uuid.UUID) ([]uuid.UUID, error)
	InsertMissing(ctx context.Context, batch []coupons.Coupon) (int, error)
}

// Report summarizes one reconciliation run.
type Report struct {
	BusinessID           uuid.UUID `json:"business_id"`
	Created              int       `json:"created"`
	ScannedDistributions int       `json:"scanned_distributions"`
	ScannedAllocations   int       `json:"scanned_allocations"`
	ScannedExisting      int       `json:"scanned_existing"`
	RanAt                time.Time `json:"ran_at"`
}

// Reconciler backfills canonical coupon records for orphaned projections.
type Reconciler struct {
	store  CouponStore
	logger *zap.Logger
	now    func() time.Time
}

func New(store CouponStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, logger: logger, now: time.Now}
}

// candidate tracks the best source seen so far for one missing coupon id.
type candidate struct {
	coupon    coupons.Coupon
	createdAt time.Time
	fromDist  bool
}

// Reconcile scans both projections for the business, finds coupon ids with no
// canonical record, synthesizes them, and writes the whole set as one atomic
// batch. Deterministic ids make concurrent or repeated runs idempotent: a
// second run with no intervening data change creates nothing.
func (r *Reconciler) Reconcile(ctx context.Context, businessID uuid.UUID) (Report, error) {
	var (
		dists    []coupons.Distribution
		allocs   []coupons.Allocation
		existing []uuid.UUID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		dists, err = r.store.ListDistributionsByBusiness(gctx, businessID)
		return err
	})
	g.Go(func() (err error) {
		allocs, err = r.store.ListAllocationsByBusiness(gctx, businessID)
		return err
	})
	g.Go(func() (err error) {
		existing, err = r.store.ListIDsByBusiness(gctx, businessID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("fetch collections: %w", err)
	}

	report := Report{
		BusinessID:           businessID,
		ScannedDistributions: len(dists),
		ScannedAllocations:   len(allocs),
		ScannedExisting:      len(existing),
		RanAt:                r.now(),
	}

	known := make(map[uuid.UUID]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	// One candidate per missing coupon id. When both projections reference the
	// same id, the newer source wins; on a tie the distribution does, since it
	// carries the richer field set.
	missing := make(map[uuid.UUID]candidate)
	order := make([]uuid.UUID, 0)

	consider := func(id uuid.UUID, c coupons.Coupon, createdAt time.Time, fromDist bool) {
		if id == uuid.Nil {
			return
		}
		if _, ok := known[id]; ok {
			return
		}
		prev, ok := missing[id]
		if !ok {
			missing[id] = candidate{coupon: c, createdAt: createdAt, fromDist: fromDist}
			order = append(order, id)
			return
		}
		if createdAt.After(prev.createdAt) || (createdAt.Equal(prev.createdAt) && fromDist && !prev.fromDist) {
			missing[id] = candidate{coupon: c, createdAt: createdAt, fromDist: fromDist}
		}
	}

	for _, d := range dists {
		consider(d.CouponID, r.fromDistribution(businessID, d), d.CreatedAt, true)
	}
	for _, a := range allocs {
		consider(a.CouponID, r.fromAllocation(businessID, a), a.CreatedAt, false)
	}

	if len(missing) == 0 {
		return report, nil
	}

	batch := make([]coupons.Coupon, 0, len(missing))
	for _, id := range order {
		batch = append(batch, missing[id].coupon)
	}

	created, err := r.store.InsertMissing(ctx, batch)
	if err != nil {
		r.logger.Error("coupon backfill batch failed",
			zap.String("business_id", businessID.String()),
			zap.Int("missing", len(batch)),
			zap.Error(err),
		)
		return report, fmt.Errorf("%w: %v", ErrPartial, err)
	}
	report.Created = created

	r.logger.Info("coupon reconciliation complete",
		zap.String("business_id", businessID.String()),
		zap.Int("created", report.Created),
		zap.Int("scanned_distributions", report.ScannedDistributions),
		zap.Int("scanned_allocations", report.ScannedAllocations),
		zap.Int("scanned_existing", report.ScannedExisting),
	)
	return report, nil
}

// fromDistribution maps a send-time projection onto a canonical coupon. The
// canonical id is the source's coupon_id, never a fresh one.
func (r *Reconciler) fromDistribution(businessID uuid.UUID, d coupons.Distribution) coupons.Coupon {
	now := r.now()
	start := now
	if d.StartDate != nil {
		start = *d.StartDate
	}
	end := start.AddDate(0, 0, defaultValidityDays)
	if d.EndDate != nil {
		end = *d.EndDate
	}
	typ := d.Type
	if typ == "" {
		typ = coupons.TypePercentage
	}
	return coupons.Coupon{
		ID:          d.CouponID,
		BusinessID:  businessID,
		Title:       d.Title,
		Description: "Restored from distribution record",
		Type:        typ,
		Value:       d.Value,
		Code:        d.Code,
		StartDate:   start,
		EndDate:     end,
		Active:      true,
		UsageLimit:  distributionUsageLimit,
		UsageCount:  0,
	}
}

// fromAllocation maps a per-customer projection onto a canonical coupon.
func (r *Reconciler) fromAllocation(businessID uuid.UUID, a coupons.Allocation) coupons.Coupon {
	start := a.CreatedAt
	if start.IsZero() {
		start = r.now()
	}
	end := start.AddDate(0, 0, defaultValidityDays)
	if a.ExpiresAt != nil {
		end = *a.ExpiresAt
	}
	typ := a.Type
	if typ == "" {
		typ = coupons.TypePercentage
	}
	return coupons.Coupon{
		ID:          a.CouponID,
		BusinessID:  businessID,
		Title:       a.Title,
		Description: "Restored from customer coupon record",
		Type:        typ,
		Value:       a.Value,
		Code:        a.Code,
		StartDate:   start,
		EndDate:     end,
		Active:      true,
		UsageLimit:  allocationUsageLimit,
		UsageCount:  0,
	}
}
