package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campuscoin/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerNotifier 在下游连续失败后熔断，熔断期间直接返回 ErrNotifierUnavailable
// （同时满足 errors.Is(err, ErrNotifierFailure)）
type BreakerNotifier struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerNotifier(next Notifier, failures uint32, openTimeout time.Duration, log zerolog.Logger) *BreakerNotifier {
	if failures == 0 {
		failures = 5
	}
	log = log.With().Str("component", "NotifierBreaker").Logger()

	st := gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("熔断器状态变化")
		},
	}
	return &BreakerNotifier{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerNotifier) Send(ctx context.Context, to, subject, body string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, to, subject, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w: %v", model.ErrNotifierFailure, model.ErrNotifierUnavailable, err)
	}
	return err
}

func (b *BreakerNotifier) State() gobreaker.State {
	return b.cb.State()
}
