package blob

import (
	"io"
	"sync"
)

// ProgressReader wraps a reader and reports how much of size has been read.
//
// Percentages are emitted only when they increase, so callers see a monotonic
// sequence. Complete reports 100 if it has not been reported yet.
type ProgressReader struct {
	r    io.Reader
	size int64
	fn   ProgressFunc

	mu   sync.Mutex
	read int64
	last int
}

// NewProgressReader returns a reader that reports progress to fn.
func NewProgressReader(r io.Reader, size int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, size: size, fn: fn, last: -1}
}

// Read implements io.Reader.
func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		pct := 0
		if p.size > 0 {
			pct = int(p.read * 100 / p.size)
		}
		// 100 is reserved for Complete, the write is not durable yet.
		if pct > 99 {
			pct = 99
		}
		p.report(pct)
		p.mu.Unlock()
	}
	return n, err
}

// Complete reports 100 percent.
func (p *ProgressReader) Complete() {
	p.mu.Lock()
	p.report(100)
	p.mu.Unlock()
}

// BytesRead returns the number of bytes read so far.
func (p *ProgressReader) BytesRead() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read
}

func (p *ProgressReader) report(pct int) {
	if pct <= p.last {
		return
	}
	p.last = pct
	if p.fn != nil {
		p.fn(pct)
	}
}
