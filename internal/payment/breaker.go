package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

const (
	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

// Guarded bounds every provider call with a timeout and stops calling the
// provider for a while after consecutive failures.
type Guarded struct {
	next    Processor
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewGuarded(next Processor, timeout time.Duration, onStateChange func(from, to string)) *Guarded {
	st := gobreaker.Settings{
		Name:    "payment",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
	}
	if onStateChange != nil {
		st.OnStateChange = func(_ string, from, to gobreaker.State) {
			onStateChange(from.String(), to.String())
		}
	}
	return &Guarded{next: next, cb: gobreaker.NewCircuitBreaker(st), timeout: timeout}
}

func (g *Guarded) State() string { return g.cb.State().String() }

func (g *Guarded) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	return g.run(ctx, func(ctx context.Context) (*Session, error) {
		return g.next.CreateCheckoutSession(ctx, req)
	})
}

func (g *Guarded) GetSession(ctx context.Context, id string) (*Session, error) {
	return g.run(ctx, func(ctx context.Context) (*Session, error) {
		return g.next.GetSession(ctx, id)
	})
}

func (g *Guarded) run(ctx context.Context, fn func(context.Context) (*Session, error)) (*Session, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return fn(callCtx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return out.(*Session), nil
}
