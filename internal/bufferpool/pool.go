package bufferpool

import "sync"

// Pool hands out fixed-size read buffers.
type Pool struct {
	size int
	pool sync.Pool
}

func New(size int) *Pool {
	if size <= 0 {
		size = 65535
	}
	p := &Pool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *Pool) Get() []byte {
	b := p.pool.Get().(*[]byte)
	return (*b)[:p.size]
}

// Put returns b to the pool; buffers smaller than the pool size are dropped.
func (p *Pool) Put(b []byte) {
	if cap(b) < p.size {
		return
	}
	b = b[:p.size]
	p.pool.Put(&b)
}
