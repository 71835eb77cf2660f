package engine

import (
	"log/slog"

	"github.com/roach88/pulsenet/internal/ir"
)

// press runs the pulse scheduler for one button press.
//
// The queue starts with the button pulse. Each step delivers the oldest
// pending pulse and, if the destination broadcasts, appends one pulse per
// output at the tail in declared output order. The press ends when the
// queue is empty.
//
// The button pulse is counted as one low pulse. When trace is true the
// delivered pulses are returned as records for the recorder.
func (e *Engine) press(trace bool) (ir.PressStats, []ir.PulseRecord, error) {
	press := e.clock.StartPress()
	stats := ir.PressStats{Press: press}
	quota := NewPulseQuota(e.maxPulses)

	var records []ir.PulseRecord

	q := e.queue
	q.Push(ir.ButtonPulse())

	for {
		p, ok := q.Pop()
		if !ok {
			break
		}
		if err := quota.Spend(press); err != nil {
			// Drop the rest of the press; the network is no longer usable.
			for q.Len() > 0 {
				q.Pop()
			}
			return stats, records, err
		}

		if p.Level == ir.High {
			stats.High++
		} else {
			stats.Low++
		}

		dest := e.net.modules[p.Destination]
		level, broadcast := dest.Receive(p.Source, p.Level)

		seq := e.clock.Stamp()
		ev := PulseEvent{Press: press, Seq: seq, Pulse: p}
		for _, o := range e.observers {
			o.OnPulse(ev)
		}
		if trace {
			records = append(records, ir.PulseRecord{
				Press:       press,
				Seq:         seq,
				Source:      p.Source,
				Level:       p.Level,
				Destination: p.Destination,
			})
		}

		if broadcast {
			for _, out := range dest.outputs {
				q.Push(ir.Pulse{Source: dest.name, Level: level, Destination: out})
			}
		}
	}

	slog.Debug("press complete",
		"press", press,
		"low", stats.Low,
		"high", stats.High,
		"pulses", quota.Spent(),
		"limit", quota.Limit())

	return stats, records, nil
}
