// Package bufpool pools the chunk buffers blob stores copy upload bodies
// through.
//
// Every copy goes through a fixed-size chunk, so a progress reader upstream
// sees reads of at most ChunkSize bytes regardless of which writer the bytes
// end up in.
//
// Usage:
//
//	n, err := bufpool.Copy(dst, src)
package bufpool

import (
	"io"
	"sync"
)

// ChunkSize is the size of buffers handed out by the default pool (64KB).
const ChunkSize = 64 << 10

// Pool hands out byte slices of one fixed size.
type Pool struct {
	size int
	pool sync.Pool
}

// New creates a pool of size-byte buffers. A non-positive size means
// ChunkSize.
func New(size int) *Pool {
	if size <= 0 {
		size = ChunkSize
	}
	p := &Pool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, p.size)
		return &buf
	}
	return p
}

// Size returns the length of the buffers in the pool.
func (p *Pool) Size() int {
	return p.size
}

// Get returns a buffer of exactly Size bytes. Return it with Put.
func (p *Pool) Get() []byte {
	return *(p.pool.Get().(*[]byte))
}

// Put returns buf to the pool. Buffers of a different capacity are dropped.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	p.pool.Put(&buf)
}

// Copy copies src to dst through one of p's buffers.
//
// Both ends are wrapped so io.ReaderFrom and io.WriterTo shortcuts cannot
// bypass the chunk buffer.
func (p *Pool) Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := p.Get()
	defer p.Put(buf)
	return io.CopyBuffer(writerOnly{dst}, readerOnly{src}, buf)
}

type writerOnly struct {
	io.Writer
}

type readerOnly struct {
	io.Reader
}

var defaultPool = New(ChunkSize)

// Get returns a ChunkSize buffer from the default pool.
func Get() []byte {
	return defaultPool.Get()
}

// Put returns buf to the default pool.
func Put(buf []byte) {
	defaultPool.Put(buf)
}

// Copy copies src to dst through a buffer from the default pool.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	return defaultPool.Copy(dst, src)
}
