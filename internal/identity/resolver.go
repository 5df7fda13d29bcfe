// Package identity resolves user-supplied phone numbers to customer records
// and links login accounts to the customers they resolve to.
package identity

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/customers"
	"github.com/perkloop/backend/internal/phone"
)

// Lookup tiers, cheapest first.
const (
	TierNone       = 0
	TierNormalized = 1 // precomputed phone_normalized column
	TierRawFormats = 2 // raw phone equality against every expanded format
	TierScan       = 3 // client-side matcher over pre-normalization rows
)

// CustomerDirectory is the read-only storage surface the resolver needs.
// *customers.Repo satisfies it.
type CustomerDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*customers.Customer, error)
	ListByNormalizedPhone(ctx context.Context, normalized string, businessID *uuid.UUID) ([]customers.Customer, error)
	ListByRawPhoneIn(ctx context.Context, formats []string, businessID *uuid.UUID) ([]customers.Customer, error)
	ListWithPhone(ctx context.Context, businessID *uuid.UUID) ([]customers.Customer, error)
}

// ResolutionCache is an optional read-through cache from normalized phone to
// customer id. Cache failures never fail a lookup.
type ResolutionCache interface {
	Get(ctx context.Context, businessID *uuid.UUID, normalized string) (uuid.UUID, error)
	Set(ctx context.Context, businessID *uuid.UUID, normalized string, customerID uuid.UUID) error
	Invalidate(ctx context.Context, businessID *uuid.UUID, normalized string) error
}

// Resolution is the outcome of a phone lookup. Customer is nil when nothing
// matched — absence is a normal business outcome, not an error. When several
// customers share the phone, Candidates carries all of them (most recently
// updated first) and Ambiguous is set; the primary Customer is the most
// recently updated one rather than whatever the storage layer returned first.
type Resolution struct {
	Customer   *customers.Customer
	Candidates []customers.Customer
	Ambiguous  bool
	Tier       int
}

// Resolver finds zero-or-one existing customer for a phone number, across one
// or many candidate formats. Read-only.
type Resolver struct {
	dir     CustomerDirectory
	matcher *phone.Matcher
	cache   ResolutionCache // may be nil
	logger  *zap.Logger
}

func NewResolver(dir CustomerDirectory, matcher *phone.Matcher, cache ResolutionCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, matcher: matcher, cache: cache, logger: logger}
}

// FindByPhone resolves a raw phone string within a business scope (nil for a
// global lookup). Strategy in order of cost: the precomputed normalized
// column, raw equality on every expanded format, then a scoped scan with the
// matcher applied client-side for records that predate normalization. Lookups
// never fail on absence: a digit-free phone or an empty result returns an
// empty Resolution and a nil error.
func (r *Resolver) FindByPhone(ctx context.Context, rawPhone string, businessID *uuid.UUID) (Resolution, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return Resolution{}, nil
	}

	if r.cache != nil {
		if id, err := r.cache.Get(ctx, businessID, normalized); err == nil {
			if c, err := r.dir.FindByID(ctx, id); err == nil {
				return Resolution{Customer: c, Candidates: []customers.Customer{*c}, Tier: TierNormalized}, nil
			}
			// stale entry; drop it and fall through to storage
			_ = r.cache.Invalidate(ctx, businessID, normalized)
		}
	}

	found, err := r.dir.ListByNormalizedPhone(ctx, normalized, businessID)
	if err != nil {
		return Resolution{}, err
	}
	tier := TierNormalized

	if len(found) == 0 {
		found, err = r.dir.ListByRawPhoneIn(ctx, phone.ExpandFormats(rawPhone), businessID)
		if err != nil {
			return Resolution{}, err
		}
		tier = TierRawFormats
	}

	if len(found) == 0 {
		// Legacy rows written before normalization existed: scan the scope and
		// let the matcher decide client-side.
		all, err := r.dir.ListWithPhone(ctx, businessID)
		if err != nil {
			return Resolution{}, err
		}
		for _, c := range all {
			if c.Phone != nil && r.matcher.Matches(rawPhone, *c.Phone) {
				found = append(found, c)
			}
		}
		tier = TierScan
	}

	if len(found) == 0 {
		return Resolution{}, nil
	}

	res := Resolution{
		Customer:   &found[0],
		Candidates: found,
		Ambiguous:  len(found) > 1,
		Tier:       tier,
	}
	if res.Ambiguous {
		r.logger.Warn("phone resolved to multiple customers",
			zap.String("phone_normalized", normalized),
			zap.Int("candidates", len(found)),
			zap.Int("tier", tier),
		)
	}
	if r.cache != nil && !res.Ambiguous {
		_ = r.cache.Set(ctx, businessID, normalized, res.Customer.ID)
	}
	return res, nil
}
