// Package gate provides the readers-writer gate that serialises structural
// mutations of the storage root against each other and against readers.
package gate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

// DefaultLockTimeout bounds the wait for exclusive access.
const DefaultLockTimeout = 5 * time.Second

// Lock modes, used in errors, logs and metric labels.
const (
	ModeShared    = "shared"
	ModeExclusive = "exclusive"
)

// capacity is the semaphore weight; an exclusive holder takes all of it.
const capacity int64 = 1 << 30

// Release gives back an acquired gate. Calling it more than once is a no-op.
type Release func()

// Gate arbitrates access to the storage root.
type Gate interface {
	// RLock acquires shared access. It waits until ctx is done.
	RLock(ctx context.Context) (Release, error)

	// Lock acquires exclusive access, waiting at most the configured timeout.
	// On timeout it fails with a retryable LockTimeout error.
	Lock(ctx context.Context) (Release, error)
}

// Metrics receives gate instrumentation. A nil Metrics disables it.
type Metrics interface {
	ObserveWait(mode string, wait time.Duration)
	RecordTimeout(mode string)
}

// Config configures an RWGate.
type Config struct {
	// LockTimeout bounds exclusive acquisition. Defaults to DefaultLockTimeout.
	LockTimeout time.Duration

	// Metrics is optional.
	Metrics Metrics
}

// RWGate is a FIFO readers-writer gate built on a weighted semaphore.
// A waiting writer blocks readers that arrive after it, so writers are
// never starved by a steady stream of readers.
type RWGate struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	metrics Metrics
}

// New creates an RWGate.
func New(cfg Config) *RWGate {
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &RWGate{
		sem:     semaphore.NewWeighted(capacity),
		timeout: timeout,
		metrics: cfg.Metrics,
	}
}

// Timeout returns the exclusive acquisition bound.
func (g *RWGate) Timeout() time.Duration {
	return g.timeout
}

// RLock acquires shared access. Readers only wait while a writer holds or
// is queued for the gate, and only give up when ctx is done.
func (g *RWGate) RLock(ctx context.Context) (Release, error) {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	g.observe(ModeShared, start)
	return g.release(1), nil
}

// Lock acquires exclusive access once no other holder remains. It fails
// with a retryable LockTimeout error when that takes longer than Timeout,
// or with ctx's error when ctx is done first.
func (g *RWGate) Lock(ctx context.Context) (Release, error) {
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, capacity); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if g.metrics != nil {
			g.metrics.RecordTimeout(ModeExclusive)
		}
		return nil, storeerrors.NewLockTimeoutError(ModeExclusive)
	}
	g.observe(ModeExclusive, start)
	return g.release(capacity), nil
}

func (g *RWGate) observe(mode string, start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveWait(mode, time.Since(start))
	}
}

func (g *RWGate) release(n int64) Release {
	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(n) })
	}
}

// ============================================================================
// Scoped acquisition
// ============================================================================

// Shared runs fn while holding shared access. The gate is released on every
// exit path, including panics.
func Shared(ctx context.Context, g Gate, fn func() error) error {
	release, err := g.RLock(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Exclusive runs fn while holding exclusive access.
func Exclusive(ctx context.Context, g Gate, fn func() error) error {
	release, err := g.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// SharedValue is Shared for functions returning a value.
func SharedValue[T any](ctx context.Context, g Gate, fn func() (T, error)) (T, error) {
	var result T
	err := Shared(ctx, g, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// ExclusiveValue is Exclusive for functions returning a value.
func ExclusiveValue[T any](ctx context.Context, g Gate, fn func() (T, error)) (T, error) {
	var result T
	err := Exclusive(ctx, g, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// ============================================================================
// No-op gate
// ============================================================================

type noopGate struct{}

// NewNoop returns a Gate that never blocks.
func NewNoop() Gate {
	return noopGate{}
}

func (noopGate) RLock(context.Context) (Release, error) { return func() {}, nil }
func (noopGate) Lock(context.Context) (Release, error)  { return func() {}, nil }

var _ Gate = (*RWGate)(nil)
