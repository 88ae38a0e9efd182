package link

import (
	"log"

	"github.com/tinwheel/hotend/pkg/device"
	"github.com/tinwheel/hotend/pkg/regmap"
)

// Handler services one queued host request per dispatch iteration. It runs
// as the highest-priority dispatch entry, so pending bus traffic is drained
// before the tick handler gets the loop.
type Handler struct {
	tr   Transport
	regs *regmap.Map
}

// NewHandler creates a handler feeding the given register map.
func NewHandler(tr Transport, regs *regmap.Map) *Handler {
	return &Handler{tr: tr, regs: regs}
}

// Poll processes at most one request. It returns StatusAgain after handling
// one so the dispatch scan restarts, and StatusNoop when the queue is empty.
func (h *Handler) Poll() device.Status {
	select {
	case req, ok := <-h.tr.Requests():
		if !ok {
			return device.StatusNoop
		}
		if err := h.tr.Respond(h.serve(req)); err != nil {
			log.Printf("Failed to respond to host: %v", err)
		}
		return device.StatusAgain
	default:
		return device.StatusNoop
	}
}

// serve applies one request to the register map.
func (h *Handler) serve(req Request) Response {
	if req.Write {
		if err := h.regs.Write(req.Addr, req.Data); err != nil {
			return Response{Status: StatusInvalidAddress}
		}
		return Response{Status: StatusOK}
	}

	data, err := h.regs.Read(req.Addr)
	if err != nil {
		return Response{Status: StatusInvalidAddress}
	}
	return Response{Status: StatusOK, Data: data}
}
