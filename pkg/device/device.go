package device

import (
	"context"
	"sync/atomic"
	"time"
)

// TickInterval is the hardware tick period. The 100 ms and 1 s cadences are
// derived from it with nested down-counters, so they land on exact tick
// multiples and cannot drift.
const TickInterval = 10 * time.Millisecond

// counterReload is the down-counter reload value: 10 ticks per 100 ms
// period, 10 of those per second.
const counterReload = 10

// Status is the result of one dispatched callback.
type Status int

const (
	// StatusNoop means the callback had nothing to do.
	StatusNoop Status = iota
	// StatusOK means the callback did its work.
	StatusOK
	// StatusAgain means the callback handled an event and the dispatch
	// scan must restart from the highest priority entry.
	StatusAgain
)

// Callback is a cooperative, run-to-completion dispatch entry.
type Callback func() Status

// Device is the cooperative scheduler core: a pending-tick flag set from the
// timer context, nested cadence counters, and a fixed-priority dispatch
// list. Everything except the flag is touched only from the dispatch
// context, so the flag is the only shared state needing atomicity.
type Device struct {
	tickFlag atomic.Bool

	count100ms int
	count1s    int

	on10ms  func()
	on100ms func()
	on1s    func()

	handlers []Callback // pre-tick handlers, highest priority first
}

// New creates a device with the cadence counters loaded.
func New() *Device {
	return &Device{
		count100ms: counterReload,
		count1s:    counterReload,
	}
}

// On10ms registers the handler run on every tick.
func (d *Device) On10ms(fn func()) { d.on10ms = fn }

// On100ms registers the 100 ms cadence handler.
func (d *Device) On100ms(fn func()) { d.on100ms = fn }

// On1s registers the 1 s housekeeping handler.
func (d *Device) On1s(fn func()) { d.on1s = fn }

// Register appends a handler to the dispatch list ahead of the tick
// handler. Handlers run in registration order.
func (d *Device) Register(cb Callback) {
	d.handlers = append(d.handlers, cb)
}

// Tick marks a tick pending. It is the whole of the "interrupt": safe to
// call from any goroutine, it mutates nothing but the flag.
func (d *Device) Tick() {
	d.tickFlag.Store(true)
}

// Poll drains a pending tick, if any: the 10 ms handler runs
// unconditionally, the 100 ms handler when its counter expires, the 1 s
// handler when the 100 ms expiry cascades into it. Idempotent when no tick
// is pending. Handlers run to completion inside the call.
func (d *Device) Poll() Status {
	if !d.tickFlag.Swap(false) {
		return StatusNoop
	}

	if d.on10ms != nil {
		d.on10ms()
	}

	d.count100ms--
	if d.count100ms != 0 {
		return StatusOK
	}
	d.count100ms = counterReload
	if d.on100ms != nil {
		d.on100ms()
	}

	d.count1s--
	if d.count1s != 0 {
		return StatusOK
	}
	d.count1s = counterReload
	if d.on1s != nil {
		d.on1s()
	}

	return StatusOK
}

// RunOnce performs one dispatch iteration: registered handlers in priority
// order, then the tick poll. A handler reporting StatusAgain ends the
// iteration so the next one restarts at the top of the list.
func (d *Device) RunOnce() {
	for _, h := range d.handlers {
		if h() == StatusAgain {
			return
		}
	}
	d.Poll()
}

// Run drives the dispatch loop until the context is cancelled. A ticker
// goroutine stands in for the hardware timer interrupt.
func (d *Device) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Tick()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		d.RunOnce()
		// Yield between iterations; the loop only needs to outpace the
		// 10 ms tick.
		time.Sleep(time.Millisecond)
	}
}
