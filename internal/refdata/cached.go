package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/cache"
	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/metrics"
)

// CachedStore is a read-through cache in front of another Store. Tier 1 is the
// in-process memory cache; tier 2 is an optional shared cache. Only successful
// lookups are cached so a newly added reference row is visible immediately.
type CachedStore struct {
	next    Store
	memory  cache.Cache
	remote  cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logrus.Logger
}

// CachedStoreOption configures a CachedStore
type CachedStoreOption func(*CachedStore)

// WithRemoteCache enables the shared second tier
func WithRemoteCache(c cache.Cache) CachedStoreOption {
	return func(s *CachedStore) {
		s.remote = c
	}
}

// WithRemoteTTL sets the expiry of entries written to the second tier
func WithRemoteTTL(ttl time.Duration) CachedStoreOption {
	return func(s *CachedStore) {
		s.ttl = ttl
	}
}

// WithMetrics records which tier answered each lookup
func WithMetrics(m *metrics.Metrics) CachedStoreOption {
	return func(s *CachedStore) {
		s.metrics = m
	}
}

// NewCachedStore wraps next with the given memory tier
func NewCachedStore(next Store, memory cache.Cache, logger *logrus.Logger, opts ...CachedStoreOption) *CachedStore {
	s := &CachedStore{
		next:   next,
		memory: memory,
		log:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindOccupationGroup implements Store
func (s *CachedStore) FindOccupationGroup(ctx context.Context, title string, mode domain.OccupationMatchMode) (int, error) {
	key := fmt.Sprintf("occupation:%s:%s", mode, strings.ToLower(strings.TrimSpace(title)))
	return readThrough(ctx, s, domain.TableOccupations, key, func(ctx context.Context) (int, error) {
		return s.next.FindOccupationGroup(ctx, title, mode)
	})
}

// FindVariant implements Store
func (s *CachedStore) FindVariant(ctx context.Context, bodyPart string, group int, impairmentCode string) (domain.Variant, error) {
	key := "variant:" + variantKey(bodyPart, group, impairmentCode)
	return readThrough(ctx, s, domain.TableVariants, key, func(ctx context.Context) (domain.Variant, error) {
		return s.next.FindVariant(ctx, bodyPart, group, impairmentCode)
	})
}

// FindImpairmentDescription implements Store
func (s *CachedStore) FindImpairmentDescription(ctx context.Context, code string) (*domain.ImpairmentDescription, error) {
	return readThrough(ctx, s, domain.TableImpairments, "impairment:"+code, func(ctx context.Context) (*domain.ImpairmentDescription, error) {
		return s.next.FindImpairmentDescription(ctx, code)
	})
}

// FindAgeAdjustmentFactor implements Store
func (s *CachedStore) FindAgeAdjustmentFactor(ctx context.Context, bracket domain.AgeBracket, wpiRounded int) (decimal.Decimal, error) {
	return readThrough(ctx, s, domain.TableAgeAdjustment, "age:"+ageKey(bracket, wpiRounded), func(ctx context.Context) (decimal.Decimal, error) {
		return s.next.FindAgeAdjustmentFactor(ctx, bracket, wpiRounded)
	})
}

// Ping checks the wrapped store
func (s *CachedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close releases both tiers and the wrapped store
func (s *CachedStore) Close() error {
	var errs []error
	if err := s.memory.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.remote != nil {
		if err := s.remote.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.next.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func readThrough[T any](ctx context.Context, s *CachedStore, table, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := s.fromTier(ctx, s.memory, key); ok {
		var out T
		if err := json.Unmarshal(v, &out); err == nil {
			s.metrics.RecordLookup(table, metrics.TierMemory)
			return out, nil
		}
		_ = s.memory.Delete(ctx, key)
	}

	if s.remote != nil {
		if v, ok := s.fromTier(ctx, s.remote, key); ok {
			var out T
			if err := json.Unmarshal(v, &out); err == nil {
				_ = s.memory.Set(ctx, key, v, 0)
				s.metrics.RecordLookup(table, metrics.TierRedis)
				return out, nil
			}
			_ = s.remote.Delete(ctx, key)
		}
	}

	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	s.metrics.RecordLookup(table, metrics.TierStore)

	encoded, err := json.Marshal(out)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to encode reference cache entry")
		return out, nil
	}
	_ = s.memory.Set(ctx, key, encoded, 0)
	if s.remote != nil {
		if err := s.remote.Set(ctx, key, encoded, s.ttl); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("Failed to write reference cache entry")
		}
	}
	return out, nil
}

// fromTier reads key; tier errors other than a miss are logged and treated as misses
func (s *CachedStore) fromTier(ctx context.Context, tier cache.Cache, key string) ([]byte, bool) {
	v, err := tier.Get(ctx, key)
	if err == nil {
		return v, true
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).WithField("key", key).Warn("Reference cache read failed")
	}
	return nil, false
}
