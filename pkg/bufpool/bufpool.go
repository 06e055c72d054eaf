// Package bufpool provides pooled byte buffers for streaming file content.
//
// Uploads, downloads and the CLI cat command all copy file bodies through
// an intermediate buffer. The pool keeps two size classes so small reads
// do not pin a transfer-sized slice:
//   - Small buffers (default 32KB): io.Copy's own default, for short bodies
//   - Large buffers (default 1MB): bulk upload and download streaming
//
// Buffers larger than the large tier are allocated directly and not pooled.
//
// Usage:
//
//	n, err := bufpool.Copy(dst, src)
package bufpool

import (
	"io"
	"sync"
)

const (
	// DefaultSmallSize matches the buffer io.Copy allocates on its own (32KB).
	DefaultSmallSize = 32 << 10

	// DefaultLargeSize is used for bulk file transfer (1MB).
	DefaultLargeSize = 1 << 20
)

// Pool manages byte slices organized by size class.
type Pool struct {
	small     sync.Pool
	large     sync.Pool
	smallSize int
	largeSize int
}

// Config holds the size classes of a custom pool.
type Config struct {
	SmallSize int
	LargeSize int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		SmallSize: DefaultSmallSize,
		LargeSize: DefaultLargeSize,
	}
}

// NewPool creates a buffer pool. Zero sizes fall back to the defaults.
func NewPool(cfg Config) *Pool {
	if cfg.SmallSize <= 0 {
		cfg.SmallSize = DefaultSmallSize
	}
	if cfg.LargeSize <= cfg.SmallSize {
		cfg.LargeSize = max(DefaultLargeSize, cfg.SmallSize*2)
	}

	p := &Pool{
		smallSize: cfg.SmallSize,
		largeSize: cfg.LargeSize,
	}
	p.small.New = func() any {
		buf := make([]byte, p.smallSize)
		return &buf
	}
	p.large.New = func() any {
		buf := make([]byte, p.largeSize)
		return &buf
	}
	return p
}

// Get returns a slice of length size. Its capacity may be larger.
//
// The caller must hand the slice back with Put once finished. Sizes above
// the large class are allocated directly.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte
	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}
	return (*bufPtr)[:size]
}

// Put returns buf to the pool. Slices that did not come from Get are dropped.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	full := buf[:cap(buf)]
	switch cap(buf) {
	case p.smallSize:
		p.small.Put(&full)
	case p.largeSize:
		p.large.Put(&full)
	}
}

// Copy copies src to dst through a pooled large buffer.
func (p *Pool) Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := p.Get(p.largeSize)
	defer p.Put(buf)
	return io.CopyBuffer(dst, src, buf)
}

var globalPool = NewPool(DefaultConfig())

// Get returns a slice of length size from the global pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}

// Copy copies src to dst through a buffer from the global pool.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	return globalPool.Copy(dst, src)
}
