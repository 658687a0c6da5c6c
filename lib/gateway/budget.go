package gateway

import (
	"errors"

	"golang.org/x/time/rate"
)

// OpClass groups requests that share a budget
type OpClass int

const (
	OpGet OpClass = iota
	OpUpdate
	OpRemove
)

func (o OpClass) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ErrBudgetExhausted is returned when the request budget denies an operation
var ErrBudgetExhausted = errors.New("gateway: request budget exhausted")

// IsBudgetExhausted reports whether err was caused by a denied request budget
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, ErrBudgetExhausted)
}

// Budget decides whether a request of the given class may be sent to the store
type Budget interface {
	Allow(op OpClass) bool
}

// Unlimited is a Budget that allows every request
type Unlimited struct{}

func (Unlimited) Allow(OpClass) bool { return true }

// Limit is a token bucket configuration
type Limit struct {
	PerSecond float64
	Burst     int
}

// RateLimits configures one token bucket per operation class.
// A zero Limit leaves the class unlimited.
type RateLimits struct {
	Get    Limit
	Update Limit
	Remove Limit
}

type rateBudget struct {
	limiters map[OpClass]*rate.Limiter
}

// NewRateBudget creates a Budget backed by token buckets
func NewRateBudget(limits RateLimits) Budget {
	b := &rateBudget{limiters: make(map[OpClass]*rate.Limiter)}
	for op, l := range map[OpClass]Limit{OpGet: limits.Get, OpUpdate: limits.Update, OpRemove: limits.Remove} {
		if l.PerSecond <= 0 {
			continue
		}
		burst := l.Burst
		if burst < 1 {
			burst = 1
		}
		b.limiters[op] = rate.NewLimiter(rate.Limit(l.PerSecond), burst)
	}
	return b
}

func (b *rateBudget) Allow(op OpClass) bool {
	l, ok := b.limiters[op]
	return !ok || l.Allow()
}
