package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
)

type recordingMetrics struct {
	mu       sync.Mutex
	waits    map[string]int
	timeouts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{waits: map[string]int{}, timeouts: map[string]int{}}
}

func (m *recordingMetrics) ObserveWait(mode string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits[mode]++
}

func (m *recordingMetrics) RecordTimeout(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts[mode]++
}

func TestSharedHoldersCoexist(t *testing.T) {
	g := New(Config{LockTimeout: time.Second})
	ctx := context.Background()

	r1, err := g.RLock(ctx)
	require.NoError(t, err)
	r2, err := g.RLock(ctx)
	require.NoError(t, err)

	r1()
	r2()
}

func TestExclusiveTimesOutWhileHeld(t *testing.T) {
	metrics := newRecordingMetrics()
	g := New(Config{LockTimeout: 50 * time.Millisecond, Metrics: metrics})
	ctx := context.Background()

	release, err := g.Lock(ctx)
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = g.Lock(ctx)
	require.Error(t, err)
	assert.True(t, storeerrors.IsLockTimeoutError(err))
	assert.True(t, storeerrors.IsRetryable(err))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 1, metrics.timeouts[ModeExclusive])
}

func TestExclusiveWaitsForReaders(t *testing.T) {
	g := New(Config{LockTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	reader, err := g.RLock(ctx)
	require.NoError(t, err)

	_, err = g.Lock(ctx)
	assert.True(t, storeerrors.IsLockTimeoutError(err), "a held reader blocks the writer")

	reader()
	release, err := g.Lock(ctx)
	require.NoError(t, err)
	release()
}

func TestExclusiveProceedsAfterRelease(t *testing.T) {
	g := New(Config{LockTimeout: 2 * time.Second})
	ctx := context.Background()

	release, err := g.Lock(ctx)
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		r, err := g.Lock(ctx)
		if err == nil {
			r()
		}
		acquired <- err
	}()

	time.Sleep(20 * time.Millisecond)
	release()

	select {
	case err := <-acquired:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("writer did not acquire after release")
	}
}

func TestWaitingWriterBlocksNewReaders(t *testing.T) {
	g := New(Config{LockTimeout: 2 * time.Second})
	ctx := context.Background()

	reader, err := g.RLock(ctx)
	require.NoError(t, err)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		r, err := g.Lock(ctx)
		if err == nil {
			time.Sleep(10 * time.Millisecond)
			r()
		}
	}()
	time.Sleep(20 * time.Millisecond)

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = g.RLock(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "late reader queues behind the writer")

	reader()
	<-writerDone
}

func TestCallerCancellationIsNotTimeout(t *testing.T) {
	g := New(Config{LockTimeout: time.Second})
	release, err := g.Lock(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Lock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, storeerrors.IsLockTimeoutError(err))
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := New(Config{LockTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	r1, err := g.RLock(ctx)
	require.NoError(t, err)
	r2, err := g.RLock(ctx)
	require.NoError(t, err)

	r1()
	r1()

	_, err = g.Lock(ctx)
	assert.True(t, storeerrors.IsLockTimeoutError(err), "double release must not free the other reader's share")
	r2()
}

func TestScopedHelpersReleaseOnEveryPath(t *testing.T) {
	g := New(Config{LockTimeout: 50 * time.Millisecond})
	ctx := context.Background()
	boom := errors.New("boom")

	assert.ErrorIs(t, Exclusive(ctx, g, func() error { return boom }), boom)
	assert.ErrorIs(t, Shared(ctx, g, func() error { return boom }), boom)

	assert.Panics(t, func() {
		_ = Exclusive(ctx, g, func() error { panic("bad") })
	})

	v, err := ExclusiveValue(ctx, g, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	s, err := SharedValue(ctx, g, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", s)

	release, err := g.Lock(ctx)
	require.NoError(t, err, "gate must be free after panics and errors")
	release()
}

func TestExclusiveIsMutuallyExclusive(t *testing.T) {
	g := New(Config{LockTimeout: 5 * time.Second})
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Exclusive(ctx, g, func() error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestNoopGate(t *testing.T) {
	g := NewNoop()
	ctx := context.Background()
	r1, err := g.Lock(ctx)
	require.NoError(t, err)
	r2, err := g.Lock(ctx)
	require.NoError(t, err)
	r1()
	r2()
}

func TestDefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultLockTimeout, New(Config{}).Timeout())
}
