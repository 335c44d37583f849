package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Option configures Do.
type Option func(*options)

type options struct {
	attempts Attempts
	backoff  Backoff
	jitter   Jitter
	timeout  time.Duration
}

func newOptions(opts ...Option) *options {
	o := &options{
		attempts: defaultAttempts,
		backoff: ExpBackoff{
			Base:   defaultBaseDelay,
			Max:    defaultMaxDelay,
			Factor: defaultBackoffFactor,
		},
		jitter: FullJitter,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Attempts is the maximum number of calls. Zero retries forever.
type Attempts uint

// WithAttempts sets the maximum number of calls.
func WithAttempts(a Attempts) Option {
	return func(o *options) {
		o.attempts = a
	}
}

// WithBackoff sets the delay between attempts.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		o.backoff = b
	}
}

// WithJitter sets how delays are randomized.
func WithJitter(j Jitter) Option {
	return func(o *options) {
		o.jitter = j
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// Backoff computes the delay after a failed attempt.
type Backoff interface {
	Delay(attempt uint) time.Duration
}

// ExpBackoff grows the delay by Factor per attempt, between Base and Max.
type ExpBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func (b ExpBackoff) Delay(attempt uint) time.Duration {
	delay := float64(b.Base)
	for range attempt {
		delay *= b.Factor
		if delay >= float64(b.Max) {
			return b.Max
		}
	}

	return max(time.Duration(delay), b.Base)
}

// ConstantBackoff waits the same delay after every attempt.
type ConstantBackoff time.Duration

func (b ConstantBackoff) Delay(uint) time.Duration {
	return time.Duration(b)
}

// Jitter is the share of a delay that is randomized.
type Jitter float64

const (
	// FullJitter picks a delay uniformly in [0, delay).
	FullJitter Jitter = 1.0
	// EqualJitter keeps half the delay and randomizes the other half.
	EqualJitter Jitter = 0.5
	// WithoutJitter keeps delays as computed.
	WithoutJitter Jitter = 0
)

func (j Jitter) apply(d time.Duration) time.Duration {
	if j <= 0 || d <= 0 {
		return d
	}

	share := min(float64(j), 1)
	random := rand.Float64() * share * float64(d) //nolint:gosec

	return time.Duration((1-share)*float64(d) + random)
}

type ctxKey string

const attemptKey ctxKey = "attempt"

func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt returns the zero-based attempt index carried by ctx.
func Attempt(ctx context.Context) uint {
	attempt, _ := ctx.Value(attemptKey).(uint)

	return attempt
}
