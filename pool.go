package webserv

import (
	"bytes"
	"sync"
)

// bufferPool hands out reset *bytes.Buffer values: every connection
// goroutine needs scratch buffers for assembling an outbound response, and
// under sustained keep-alive traffic allocating a fresh one per request
// would put real pressure on the GC.
type bufferPool struct {
	pool *sync.Pool
}

func newBufferPool(initialCap int) *bufferPool {
	return &bufferPool{
		pool: &sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, initialCap))
			},
		},
	}
}

// Get returns an empty buffer, reused when one is available.
func (p *bufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets buf and returns it to the pool.
func (p *bufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	p.pool.Put(buf)
}

// requestPool hands out reset *HttpRequest values. A ConnectionHandler pulls
// one at the start of ReadingRequest and returns it once the response for
// that request has been fully written.
type requestPool struct {
	pool *sync.Pool
}

func newRequestPool() *requestPool {
	return &requestPool{
		pool: &sync.Pool{
			New: func() interface{} {
				return NewHttpRequest()
			},
		},
	}
}

func (p *requestPool) Get() *HttpRequest {
	return p.pool.Get().(*HttpRequest)
}

func (p *requestPool) Put(r *HttpRequest) {
	*r = HttpRequest{Headers: NewHeaderMap(), ContentLength: -1}
	p.pool.Put(r)
}
