package coinbase

import (
	"net/http"
)

// defaultIdlePerHost matches the batch group size so one group can reuse
// every connection opened by the previous one.
const defaultIdlePerHost = 10

// Pool is a reusable set of keep-alive connections.
//
// Whoever calls NewPool owns the pool and must Close it. Client methods that
// receive a pool only borrow it.
type Pool struct {
	client    *http.Client
	transport *http.Transport
}

// NewPool acquires a pool backed by its own transport, so closing it never
// affects http.DefaultTransport or another pool.
func NewPool() *Pool {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = defaultIdlePerHost
	return &Pool{
		client:    &http.Client{Transport: tr},
		transport: tr,
	}
}

// Close drops every idle connection held by the pool. In-flight requests are
// not interrupted. Close is safe to call more than once.
func (p *Pool) Close() {
	if p == nil || p.transport == nil {
		return
	}
	p.transport.CloseIdleConnections()
}
