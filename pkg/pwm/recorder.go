package pwm

import "sync"

// Recorder is a Driver that only records what was programmed. It backs the
// simulated plant and tests, standing in for the hardware timer registers.
type Recorder struct {
	mu      sync.RWMutex
	top     uint16
	compare uint16
}

var _ Driver = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetTop records the counter wrap value.
func (r *Recorder) SetTop(top uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.top = top
	return nil
}

// SetCompare records the switch-over point.
func (r *Recorder) SetCompare(compare uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compare = compare
	return nil
}

// Top returns the recorded top value.
func (r *Recorder) Top() uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.top
}

// Compare returns the recorded compare value.
func (r *Recorder) Compare() uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.compare
}

// Duty returns the effective duty cycle in percent, 0 when no frequency has
// been programmed yet.
func (r *Recorder) Duty() float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.top == 0 {
		return 0
	}
	return float32(r.compare) / float32(r.top) * 100
}
