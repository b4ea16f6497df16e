// Package cards implements the business card directory: listing storage
// contracts, business number allocation and the card use cases.
package cards

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/tendant/simple-cards/pkg/domain"
)

const (
	DefaultMaxRetries  = 5
	DefaultMaxRestarts = 3
)

// BizNumberChecker reports whether a business number is already assigned.
type BizNumberChecker interface {
	BizNumberExists(ctx context.Context, n int) (bool, error)
}

// AllocationObserver is notified after each allocation with the number of
// draws it took and its final error, if any.
type AllocationObserver interface {
	ObserveAllocation(draws int, err error)
}

// AllocatorConfig bounds the random draw.
type AllocatorConfig struct {
	Min         int
	Max         int
	MaxRetries  int
	MaxRestarts int
}

// Allocator draws business numbers uniformly from [Min, Max] until it finds
// one that is not taken. It holds no locks: the storage unique constraint is
// the final arbiter, and AllocateAndStore retries when it loses a race.
type Allocator struct {
	checker  BizNumberChecker
	cfg      AllocatorConfig
	intN     func(n int) int
	observer AllocationObserver
}

// NewAllocator creates an allocator. Zero config fields take defaults.
func NewAllocator(checker BizNumberChecker, cfg AllocatorConfig, observer AllocationObserver) *Allocator {
	if cfg.Min <= 0 {
		cfg.Min = domain.MinBizNumber
	}
	if cfg.Max <= 0 {
		cfg.Max = domain.MaxBizNumber
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = DefaultMaxRestarts
	}
	return &Allocator{checker: checker, cfg: cfg, intN: rand.IntN, observer: observer}
}

// Allocate returns a number that was free when checked.
func (a *Allocator) Allocate(ctx context.Context) (int, error) {
	n, draws, err := a.allocate(ctx)
	a.observe(draws, err)
	return n, err
}

func (a *Allocator) allocate(ctx context.Context) (int, int, error) {
	span := a.cfg.Max - a.cfg.Min + 1
	for draw := 1; draw <= a.cfg.MaxRetries; draw++ {
		if err := ctx.Err(); err != nil {
			return 0, draw - 1, err
		}
		n := a.cfg.Min + a.intN(span)
		exists, err := a.checker.BizNumberExists(ctx, n)
		if err != nil {
			return 0, draw, err
		}
		if !exists {
			return n, draw, nil
		}
	}
	return 0, a.cfg.MaxRetries, domain.ErrAllocationExhausted
}

// AllocateAndStore allocates a number and hands it to persist. When persist
// reports domain.ErrBizNumberTaken another writer claimed the number between
// the check and the write, and allocation starts over with fresh draws.
func (a *Allocator) AllocateAndStore(ctx context.Context, persist func(ctx context.Context, n int) error) (int, error) {
	total := 0
	for restart := 0; restart < a.cfg.MaxRestarts; restart++ {
		n, draws, err := a.allocate(ctx)
		total += draws
		if err != nil {
			a.observe(total, err)
			return 0, err
		}

		err = persist(ctx, n)
		if errors.Is(err, domain.ErrBizNumberTaken) {
			continue
		}
		a.observe(total, err)
		if err != nil {
			return 0, err
		}
		return n, nil
	}
	a.observe(total, domain.ErrAllocationExhausted)
	return 0, domain.ErrAllocationExhausted
}

func (a *Allocator) observe(draws int, err error) {
	if a.observer != nil {
		a.observer.ObserveAllocation(draws, err)
	}
}
