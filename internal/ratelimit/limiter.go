// Package ratelimit implements fixed-window attempt counting over an
// external counter store.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Action string

const (
	ActionSearch     Action = "search"
	ActionCommentAdd Action = "comment_add"
	ActionSignup     Action = "user_signup"
)

// Policy is a ceiling of MaxAttempts per Window for one action.
type Policy struct {
	Action      Action
	MaxAttempts int
	Window      time.Duration
}

var (
	SearchPolicy     = Policy{Action: ActionSearch, MaxAttempts: 30, Window: 300 * time.Second}
	CommentAddPolicy = Policy{Action: ActionCommentAdd, MaxAttempts: 10, Window: 3600 * time.Second}
	SignupPolicy     = Policy{Action: ActionSignup, MaxAttempts: 5, Window: 3600 * time.Second}
)

var ErrInvalidPolicy = errors.New("ratelimit: max attempts and window must be positive")

// CounterStore keeps one counter per key. IncrementAndGet must be atomic per
// key: the first increment of a fresh window returns count 1, records the
// window start and expires the counter after window.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (count int64, windowStart time.Time, err error)
}

// CounterPeeker is implemented by stores that can read a counter without
// incrementing it.
type CounterPeeker interface {
	Peek(ctx context.Context, key string) (count int64, windowStart time.Time, ok bool, err error)
}

type Decision struct {
	Allowed bool
	// RetryAfter is when the current window closes. Zero when allowed.
	RetryAfter time.Duration
}

// Info is the display form of a counter: attempts left and time to reset.
type Info struct {
	Remaining int
	ResetIn   time.Duration
}

type Limiter struct {
	store CounterStore
	now   func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func NewLimiter(store CounterStore, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndRecord counts one attempt of action by subject and reports whether
// it may proceed. Limited attempts are counted too, so hammering a closed
// window never reopens it early.
func (l *Limiter) CheckAndRecord(ctx context.Context, subject SubjectKey, action Action, maxAttempts int, window time.Duration) (Decision, error) {
	if maxAttempts <= 0 || window <= 0 {
		return Decision{}, ErrInvalidPolicy
	}

	count, start, err := l.store.IncrementAndGet(ctx, subject.StorageKey(action), window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: record %s: %w", action, err)
	}

	if count <= int64(maxAttempts) {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, RetryAfter: l.remaining(start, window)}, nil
}

// Allow is CheckAndRecord with the ceilings of p.
func (l *Limiter) Allow(ctx context.Context, subject SubjectKey, p Policy) (Decision, error) {
	return l.CheckAndRecord(ctx, subject, p.Action, p.MaxAttempts, p.Window)
}

// Info reports the counter state for subject without recording an attempt.
// Stores that cannot peek report a full allowance.
func (l *Limiter) Info(ctx context.Context, subject SubjectKey, p Policy) (Info, error) {
	peeker, ok := l.store.(CounterPeeker)
	if !ok {
		return Info{Remaining: p.MaxAttempts}, nil
	}

	count, start, found, err := peeker.Peek(ctx, subject.StorageKey(p.Action))
	if err != nil {
		return Info{}, fmt.Errorf("ratelimit: peek %s: %w", p.Action, err)
	}
	if !found {
		return Info{Remaining: p.MaxAttempts}, nil
	}

	remaining := p.MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Info{Remaining: remaining, ResetIn: l.remaining(start, p.Window)}, nil
}

func (l *Limiter) remaining(start time.Time, window time.Duration) time.Duration {
	d := start.Add(window).Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}
