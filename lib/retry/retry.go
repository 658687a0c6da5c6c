package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("retry")

// CancelFunc stops the retry loop. The given error is returned by Do.
type CancelFunc func(err error)

// Operation is the unit of work that is retried.
type Operation[T any] func(ctx context.Context, cancel CancelFunc) (T, error)

// Policy describes how often and how fast an operation is retried.
type Policy struct {
	MaxAttempts  int           // Total number of calls, values below 1 are treated as 1
	InitialDelay time.Duration // Base delay
	Factor       float64       // Exponential growth of the delay per attempt
}

// Default policies per operation class
var (
	GetPolicy          = Policy{MaxAttempts: 5, InitialDelay: 2 * time.Second, Factor: 1.5}
	UpdatePolicy       = Policy{MaxAttempts: 3, InitialDelay: 2 * time.Second, Factor: 1.25}
	RemovePolicy       = Policy{MaxAttempts: 3, InitialDelay: 2 * time.Second, Factor: 1.1}
	LockPolicy         = Policy{MaxAttempts: 3, InitialDelay: 2 * time.Second, Factor: 1.1}
	OpenLockPolicy     = Policy{MaxAttempts: 5, InitialDelay: 2 * time.Second, Factor: 1.1}
	CompensationPolicy = Policy{MaxAttempts: 2, InitialDelay: 2 * time.Second, Factor: 1.5}
)

// Immediate returns a policy that retries without waiting (useful in tests).
func Immediate(attempts int) Policy {
	return Policy{MaxAttempts: attempts}
}

// Delay returns the wait time before the given retry (1-based) without jitter.
func (p Policy) Delay(retry int) time.Duration {
	factor := p.Factor
	if factor <= 0 {
		factor = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(factor, float64(retry)))
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// --------------------------------------------------------------------------
// Backoff implementation
// --------------------------------------------------------------------------

// jitterBackOff implements backoff.BackOff with the policy's exponential delay and up to
// 25% random jitter on top of it.
type jitterBackOff struct {
	policy Policy
	retry  int
}

func (b *jitterBackOff) NextBackOff() time.Duration {
	b.retry++
	delay := b.policy.Delay(b.retry)
	if delay <= 0 {
		return 0
	}
	return delay + time.Duration(rand.Float64()*float64(delay)/4)
}

func (b *jitterBackOff) Reset() {
	b.retry = 0
}

// --------------------------------------------------------------------------
// Retry loop
// --------------------------------------------------------------------------

// canceller records the first cancellation of an attempt
type canceller struct {
	mu  sync.Mutex
	err error
}

func (c *canceller) cancel(err error) {
	if err == nil {
		err = errors.New("retry cancelled")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *canceller) get() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Do calls op until it succeeds, cancels, the attempts are exhausted or ctx is done.
// It always returns the value and error of the last attempt, or the cancel error.
func Do[T any](ctx context.Context, policy Policy, op Operation[T]) (T, error) {
	c := &canceller{}

	var b backoff.BackOff = &jitterBackOff{policy: policy}
	b = backoff.WithMaxRetries(b, uint64(policy.attempts()-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	var lastErr error
	result, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op(ctx, c.cancel)
		if cerr := c.get(); cerr != nil {
			return v, backoff.Permanent(cerr)
		}
		lastErr = err
		return v, err
	}, b, func(err error, wait time.Duration) {
		log.Debugf("attempt %d/%d failed, retrying in %s: %v", attempt, policy.attempts(), wait, err)
	})

	// backoff reports only the context error when the wait is interrupted
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) && lastErr != nil && !errors.Is(lastErr, cerr) {
		err = errors.Join(cerr, lastErr)
	}
	return result, err
}

// Run is Do for operations without a result.
func Run(ctx context.Context, policy Policy, op func(ctx context.Context, cancel CancelFunc) error) error {
	_, err := Do(ctx, policy, func(ctx context.Context, cancel CancelFunc) (struct{}, error) {
		return struct{}{}, op(ctx, cancel)
	})
	return err
}
