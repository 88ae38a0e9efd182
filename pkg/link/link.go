// Package link shuttles single register read/write requests between the
// host bus and the register map. It knows nothing of protocol framing:
// a request is an operation byte, an address and a data byte, and every
// request gets exactly one status byte back.
package link

import (
	"fmt"
)

// Operation bytes on the wire.
const (
	opRead  byte = 'R'
	opWrite byte = 'W'
)

// Response status codes.
const (
	StatusOK             uint8 = 0
	StatusInvalidAddress uint8 = 1
	StatusBadRequest     uint8 = 2
)

// Request is one decoded register access.
type Request struct {
	Write bool
	Addr  uint8
	Data  uint8 // write payload, ignored for reads
}

// Response answers one request.
type Response struct {
	Status uint8
	Data   uint8 // read result, zero otherwise
}

// Transport delivers decoded requests from the host and carries responses
// back. Implementations own connection lifecycle and byte handling.
type Transport interface {
	Connect() error
	Close() error
	Requests() <-chan Request
	Respond(Response) error
	IsConnected() bool
}

// decodeRequest parses a 3-byte wire request.
func decodeRequest(buf [3]byte) (Request, error) {
	switch buf[0] {
	case opRead:
		return Request{Addr: buf[1]}, nil
	case opWrite:
		return Request{Write: true, Addr: buf[1], Data: buf[2]}, nil
	default:
		return Request{}, fmt.Errorf("unknown operation byte 0x%02x", buf[0])
	}
}

// encodeResponse renders a response as its 2-byte wire form.
func encodeResponse(resp Response) [2]byte {
	return [2]byte{resp.Status, resp.Data}
}
