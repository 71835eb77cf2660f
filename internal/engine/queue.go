package engine

import "github.com/roach88/pulsenet/internal/ir"

// pulseQueue is the FIFO of pending pulses for one press.
//
// Pulses are appended at the tail and removed from the head, so a pulse
// produced by a delivery is processed only after every pulse that was
// already pending. The queue is owned by the scheduler and is not safe for
// concurrent use.
type pulseQueue struct {
	pulses []ir.Pulse
	head   int
}

func newPulseQueue() *pulseQueue {
	return &pulseQueue{pulses: make([]ir.Pulse, 0, 64)}
}

// Push appends a pulse to the tail.
func (q *pulseQueue) Push(p ir.Pulse) {
	q.pulses = append(q.pulses, p)
}

// Pop removes and returns the oldest pulse.
// Returns (ir.Pulse{}, false) if the queue is empty.
func (q *pulseQueue) Pop() (ir.Pulse, bool) {
	if q.head >= len(q.pulses) {
		return ir.Pulse{}, false
	}
	p := q.pulses[q.head]
	q.pulses[q.head] = ir.Pulse{}
	q.head++

	// Reclaim the backing array once drained.
	if q.head == len(q.pulses) {
		q.pulses = q.pulses[:0]
		q.head = 0
	}
	return p, true
}

// Len returns the number of pending pulses.
func (q *pulseQueue) Len() int {
	return len(q.pulses) - q.head
}
