package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/lib/retry"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("gateway")

var (
	// ErrService wraps failures of the underlying store
	ErrService = errors.New("gateway: store request failed")
	// ErrTooManyConflicts is returned when a single attempt lost the race too often
	ErrTooManyConflicts = errors.New("gateway: too many conflicting writes")
)

// Transform computes the new value from the current one (nil if the key is absent).
// Returning the input unchanged writes nothing. Calling cancel aborts the update.
type Transform func(current []byte, cancel retry.CancelFunc) []byte

// KeyInfo describes the value an operation worked on
type KeyInfo struct {
	Exists   bool // A value was stored before the operation
	Attempts int  // Number of transform invocations (ConditionalUpdate only)
}

// IGateway is the document's view of the key value store
type IGateway interface {
	// Get returns the stored value, nil if the key is absent
	Get(ctx context.Context, key string) (value []byte, info KeyInfo, err error)

	// ConditionalUpdate atomically replaces the value with the output of transform and
	// returns the value that is stored afterwards.
	ConditionalUpdate(ctx context.Context, key string, transform Transform) (value []byte, info KeyInfo, err error)

	// Remove deletes the key
	Remove(ctx context.Context, key string) (err error)
}

// Options configures the gateway
type Options struct {
	GetPolicy    retry.Policy
	UpdatePolicy retry.Policy
	RemovePolicy retry.Policy
	Budget       Budget // Request budget, nil means unlimited
	MaxConflicts int    // Lost swaps per attempt before the attempt fails
}

// DefaultOptions returns the default gateway options
func DefaultOptions() *Options {
	return &Options{
		GetPolicy:    retry.GetPolicy,
		UpdatePolicy: retry.UpdatePolicy,
		RemovePolicy: retry.RemovePolicy,
		Budget:       Unlimited{},
		MaxConflicts: 16,
	}
}

type gatewayImpl struct {
	store store.IStore
	opts  Options
}

// NewGateway creates a gateway for the given store (options are optional)
func NewGateway(s store.IStore, opts *Options) IGateway {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Budget == nil {
		o.Budget = Unlimited{}
	}
	if o.MaxConflicts < 1 {
		o.MaxConflicts = 1
	}
	return &gatewayImpl{store: s, opts: o}
}

// --------------------------------------------------------------------------
// Interface Methods
// --------------------------------------------------------------------------

type readResult struct {
	value []byte
	info  KeyInfo
}

func (g *gatewayImpl) Get(ctx context.Context, key string) ([]byte, KeyInfo, error) {
	res, err := retry.Do(ctx, g.opts.GetPolicy, func(ctx context.Context, _ retry.CancelFunc) (readResult, error) {
		if err := g.admit(OpGet); err != nil {
			return readResult{}, err
		}
		value, found, err := g.store.Get(key)
		if err != nil {
			return readResult{}, serviceError(err)
		}
		return readResult{value: value, info: KeyInfo{Exists: found}}, nil
	})
	if err != nil {
		log.Debugf("get %q failed: %v", key, err)
	}
	return res.value, res.info, err
}

func (g *gatewayImpl) ConditionalUpdate(ctx context.Context, key string, transform Transform) ([]byte, KeyInfo, error) {
	start := time.Now()
	defer observeUpdate(start)

	transforms := 0
	res, err := retry.Do(ctx, g.opts.UpdatePolicy, func(ctx context.Context, cancel retry.CancelFunc) (readResult, error) {
		for conflicts := 0; conflicts < g.opts.MaxConflicts; conflicts++ {
			if err := g.admit(OpUpdate); err != nil {
				return readResult{}, err
			}

			current, found, err := g.store.Get(key)
			if err != nil {
				return readResult{}, serviceError(err)
			}
			if !found {
				current = nil
			} else if current == nil {
				current = []byte{}
			}
			info := KeyInfo{Exists: found}

			cancelled := false
			transforms++
			next := transform(clone(current), func(err error) {
				cancelled = true
				cancel(err)
			})
			info.Attempts = transforms
			if cancelled {
				return readResult{info: info}, nil
			}

			if next == nil || (found && bytes.Equal(next, current)) {
				return readResult{value: current, info: info}, nil
			}

			swapped, err := g.store.CompareAndSwap(key, current, next, 0)
			if err != nil {
				return readResult{info: info}, serviceError(err)
			}
			if swapped {
				return readResult{value: next, info: info}, nil
			}

			conflictsTotal.Inc()
			log.Debugf("conflicting write on %q, re-running transform", key)
		}
		return readResult{}, ErrTooManyConflicts
	})
	if err != nil {
		log.Debugf("conditional update of %q failed: %v", key, err)
	}
	if res.info.Attempts == 0 {
		res.info.Attempts = transforms
	}
	return res.value, res.info, err
}

func (g *gatewayImpl) Remove(ctx context.Context, key string) error {
	return retry.Run(ctx, g.opts.RemovePolicy, func(ctx context.Context, _ retry.CancelFunc) error {
		if err := g.admit(OpRemove); err != nil {
			return err
		}
		if err := g.store.Delete(key); err != nil {
			return serviceError(err)
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// admit counts the request and checks the budget
func (g *gatewayImpl) admit(op OpClass) error {
	countRequest(op)
	if !g.opts.Budget.Allow(op) {
		countBudgetExhausted(op)
		return fmt.Errorf("%w (%s)", ErrBudgetExhausted, op)
	}
	return nil
}

func serviceError(err error) error {
	return fmt.Errorf("%w: %w", ErrService, err)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
