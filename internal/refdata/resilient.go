package refdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/metrics"
)

// ErrUnavailable is returned while the circuit breaker is open
var ErrUnavailable = errors.New("reference data store unavailable")

// ResilienceConfig configures ResilientStore
type ResilienceConfig struct {
	Name          string
	LookupTimeout time.Duration
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	FailureRatio  float64
	MinRequests   uint32
}

// ResilienceConfigFrom builds a ResilienceConfig from application settings
func ResilienceConfigFrom(b domain.BreakerConfig, lookupTimeout time.Duration) ResilienceConfig {
	return ResilienceConfig{
		Name:          "refdata",
		LookupTimeout: lookupTimeout,
		MaxRequests:   b.MaxRequests,
		Interval:      b.Interval,
		Timeout:       b.Timeout,
		FailureRatio:  b.FailureRatio,
		MinRequests:   b.MinRequests,
	}
}

// ResilientStore bounds every lookup with a timeout and trips a circuit
// breaker when the backing store keeps failing. Lookups that find no row
// and bad reference values count as successes.
type ResilientStore struct {
	next    Store
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     *logrus.Logger
}

// NewResilientStore wraps next
func NewResilientStore(next Store, config ResilienceConfig, m *metrics.Metrics, logger *logrus.Logger) *ResilientStore {
	if config.Name == "" {
		config.Name = "refdata"
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.FailureRatio <= 0 {
		config.FailureRatio = 0.6
	}
	if config.MinRequests == 0 {
		config.MinRequests = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= config.MinRequests && failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
			m.SetBreakerOpen(name, to == gobreaker.StateOpen)
		},
		IsSuccessful: isBreakerSuccess,
	})

	return &ResilientStore{
		next:    next,
		breaker: breaker,
		timeout: config.LookupTimeout,
		log:     logger,
	}
}

func isBreakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrReferenceDataNotFound) ||
		errors.Is(err, domain.ErrInvalidReferenceData) ||
		errors.Is(err, domain.ErrInvalidAgeBracket) ||
		errors.Is(err, context.Canceled)
}

// FindOccupationGroup implements Store
func (s *ResilientStore) FindOccupationGroup(ctx context.Context, title string, mode domain.OccupationMatchMode) (int, error) {
	return guarded(ctx, s, func(ctx context.Context) (int, error) {
		return s.next.FindOccupationGroup(ctx, title, mode)
	})
}

// FindVariant implements Store
func (s *ResilientStore) FindVariant(ctx context.Context, bodyPart string, group int, impairmentCode string) (domain.Variant, error) {
	return guarded(ctx, s, func(ctx context.Context) (domain.Variant, error) {
		return s.next.FindVariant(ctx, bodyPart, group, impairmentCode)
	})
}

// FindImpairmentDescription implements Store
func (s *ResilientStore) FindImpairmentDescription(ctx context.Context, code string) (*domain.ImpairmentDescription, error) {
	return guarded(ctx, s, func(ctx context.Context) (*domain.ImpairmentDescription, error) {
		return s.next.FindImpairmentDescription(ctx, code)
	})
}

// FindAgeAdjustmentFactor implements Store
func (s *ResilientStore) FindAgeAdjustmentFactor(ctx context.Context, bracket domain.AgeBracket, wpiRounded int) (decimal.Decimal, error) {
	return guarded(ctx, s, func(ctx context.Context) (decimal.Decimal, error) {
		return s.next.FindAgeAdjustmentFactor(ctx, bracket, wpiRounded)
	})
}

// State returns the breaker state
func (s *ResilientStore) State() gobreaker.State {
	return s.breaker.State()
}

// Ping bypasses the breaker so health checks see the real store
func (s *ResilientStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped store
func (s *ResilientStore) Close() error {
	return s.next.Close()
}

func guarded[T any](ctx context.Context, s *ResilientStore, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	result, err := s.breaker.Execute(func() (interface{}, error) {
		lookupCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return fn(lookupCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
