package engine

import "github.com/roach88/pulsenet/internal/ir"

// PulseEvent describes one delivered pulse.
type PulseEvent struct {
	Press int      // 1-based press index within the run
	Seq   int64    // run-wide logical delivery order
	Pulse ir.Pulse // the delivered pulse
}

// Observer is notified of every delivered pulse, in delivery order.
//
// OnPulse runs synchronously after the destination module has received the
// pulse and before the next pulse is dequeued, so the network state it can
// see is the state immediately after that delivery. Observers must not
// mutate the network.
type Observer interface {
	OnPulse(ev PulseEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev PulseEvent)

// OnPulse calls f(ev).
func (f ObserverFunc) OnPulse(ev PulseEvent) { f(ev) }

// TraceCollector is an Observer that keeps every delivered pulse.
type TraceCollector struct {
	Events []PulseEvent
}

// OnPulse appends the event.
func (c *TraceCollector) OnPulse(ev PulseEvent) {
	c.Events = append(c.Events, ev)
}

// Pulses returns the collected pulses without press or seq.
func (c *TraceCollector) Pulses() []ir.Pulse {
	out := make([]ir.Pulse, len(c.Events))
	for i, ev := range c.Events {
		out[i] = ev.Pulse
	}
	return out
}
