package link

import (
	"fmt"
	"sync"
)

// Loopback is an in-memory Transport for tests and development: the test
// injects requests and collects responses directly.
type Loopback struct {
	requests  chan Request
	responses chan Response

	mu        sync.RWMutex
	connected bool
}

var _ Transport = (*Loopback)(nil)

// NewLoopback creates a loopback transport with the given queue depth.
func NewLoopback(queueLen int) *Loopback {
	if queueLen == 0 {
		queueLen = DefaultQueueSize
	}
	return &Loopback{
		requests:  make(chan Request, queueLen),
		responses: make(chan Response, queueLen),
	}
}

// Connect marks the transport connected.
func (l *Loopback) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.connected {
		return fmt.Errorf("already connected")
	}
	l.connected = true
	return nil
}

// Close marks the transport disconnected and closes the request queue.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return nil
	}
	l.connected = false
	close(l.requests)
	return nil
}

// Requests returns the request queue.
func (l *Loopback) Requests() <-chan Request { return l.requests }

// Respond queues a response for the test side.
func (l *Loopback) Respond(resp Response) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.connected {
		return fmt.Errorf("not connected")
	}
	l.responses <- resp
	return nil
}

// IsConnected returns whether Connect has been called.
func (l *Loopback) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// Inject queues a request as if the host had sent it.
func (l *Loopback) Inject(req Request) {
	l.requests <- req
}

// Responses returns the responses collected so far.
func (l *Loopback) Responses() <-chan Response { return l.responses }
