package link

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the host motion controller's bus speed.
	DefaultBaudRate = 115200
	// DefaultQueueSize is the default depth of the request queue.
	DefaultQueueSize = 16
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a Transport over a serial port. A reader goroutine decodes
// 3-byte requests off the wire and queues them; the dispatch loop drains
// the queue and responds between ticks.
type Serial struct {
	port     string
	baudRate int
	queueLen int

	conn      serial.Port
	requests  chan Request
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

var _ Transport = (*Serial)(nil)

// NewSerial creates a serial transport on the given port.
func NewSerial(port string, baudRate int, queueLen int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if queueLen == 0 {
		queueLen = DefaultQueueSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		queueLen: queueLen,
		requests: make(chan Request, queueLen),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading requests.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
	}

	port, err := serial.Open(s.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true
	s.requests = make(chan Request, s.queueLen)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// The reader owns s.requests: it alone closes the channel, on its way
	// out, so queueing a request can never race a close.
	go s.readRequests(port, s.ctx, s.requests)

	return nil
}

// Close closes the port and stops the reader. Closing the port unblocks the
// reader's pending read; the reader then exits and closes its queue.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()

	if err := s.conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	s.conn = nil
	s.connected = false

	return nil
}

// Requests returns the channel of decoded requests. Each Connect starts a
// fresh queue; the previous one is closed by its reader.
func (s *Serial) Requests() <-chan Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

// Respond writes a response back to the host.
func (s *Serial) Respond(resp Response) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return fmt.Errorf("not connected")
	}

	wire := encodeResponse(resp)
	if _, err := s.conn.Write(wire[:]); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

// IsConnected returns whether the transport is currently connected.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// readRequests reads 3-byte requests from the port and queues them. It holds
// its own references to the port, context and queue so a concurrent Close
// cannot pull them out from under a blocked read, and it alone closes the
// queue, on its way out.
func (s *Serial) readRequests(conn serial.Port, ctx context.Context, requests chan Request) {
	defer close(requests)

	var buf [3]byte
	for {
		if _, err := io.ReadFull(conn, buf[:]); err != nil {
			// A read error after Close is just the port being torn
			// down, not worth reporting.
			if err != io.EOF && ctx.Err() == nil {
				log.Printf("Error reading from serial port: %v", err)
			}
			return
		}

		req, err := decodeRequest(buf)
		if err != nil {
			log.Printf("Dropping malformed request: %v", err)
			// Let the host notice instead of silently stalling.
			if rerr := s.Respond(Response{Status: StatusBadRequest}); rerr != nil {
				log.Printf("Failed to report malformed request: %v", rerr)
			}
			continue
		}

		select {
		case requests <- req:
		default:
			log.Printf("Request queue full, dropping request")
		}
	}
}
