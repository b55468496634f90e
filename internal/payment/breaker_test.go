package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	calls int
	err   error
	delay time.Duration
}

func (s *scripted) CreateCheckoutSession(ctx context.Context, _ CheckoutRequest) (*Session, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Session{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil
}

func (s *scripted) GetSession(ctx context.Context, id string) (*Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Session{ID: id, Paid: true}, nil
}

func TestGuarded_PassesThrough(t *testing.T) {
	next := &scripted{}
	g := NewGuarded(next, time.Second, nil)

	sess, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)

	got, err := g.GetSession(context.Background(), "cs_9")
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, "closed", g.State())
}

func TestGuarded_Timeout(t *testing.T) {
	next := &scripted{delay: time.Second}
	g := NewGuarded(next, 20*time.Millisecond, nil)

	_, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuarded_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &scripted{err: errors.New("502 from provider")}
	var transitions []string
	g := NewGuarded(next, time.Second, func(from, to string) {
		transitions = append(transitions, from+"->"+to)
	})

	for i := 0; i < breakerFailures; i++ {
		_, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	_, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, breakerFailures, next.calls)
	assert.Equal(t, "open", g.State())
	assert.Equal(t, []string{"closed->open"}, transitions)
}
