package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/perkloop/backend/internal/reconcile"
)

var ErrNoReport = errors.New("no reconciliation report stored")

// ReconcileReportStore keeps the most recent reconciliation report per
// business so dashboards can show the last run without re-scanning.
type ReconcileReportStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReconcileReportStore(rdb *redis.Client, ttl time.Duration) *ReconcileReportStore {
	return &ReconcileReportStore{rdb: rdb, ttl: ttl}
}

func (s *ReconcileReportStore) key(businessID uuid.UUID) string {
	return "reconcile:last:" + businessID.String()
}

func (s *ReconcileReportStore) Save(ctx context.Context, rep reconcile.Report) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(rep.BusinessID), raw, s.ttl).Err()
}

func (s *ReconcileReportStore) Last(ctx context.Context, businessID uuid.UUID) (reconcile.Report, error) {
	raw, err := s.rdb.Get(ctx, s.key(businessID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return reconcile.Report{}, ErrNoReport
		}
		return reconcile.Report{}, err
	}
	var rep reconcile.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return reconcile.Report{}, err
	}
	return rep, nil
}
