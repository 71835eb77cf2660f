package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxPulsesPerPress bounds a single press. Well-formed networks
// deliver at most a few thousand pulses per press.
const DefaultMaxPulsesPerPress = 1_000_000

// PulseQuota counts the deliveries of one press. A limit of 0 means no
// limit.
type PulseQuota struct {
	limit int
	spent int
}

func NewPulseQuota(limit int) *PulseQuota {
	return &PulseQuota{limit: limit}
}

// Spend accounts for one delivery in press and fails once the count goes
// past the limit.
func (q *PulseQuota) Spend(press int) error {
	q.spent++
	if q.limit <= 0 || q.spent <= q.limit {
		return nil
	}
	return &QuotaExceededError{Press: press, Pulses: q.spent, Limit: q.limit}
}

// Spent is the number of deliveries so far, including a rejected one.
func (q *PulseQuota) Spent() int { return q.spent }

// Limit is the configured limit, 0 for none.
func (q *PulseQuota) Limit() int { return q.limit }

// QuotaExceededError reports a press that would not drain. The press is
// abandoned with pulses still queued, so the engine's module state is
// left mid-press and must not be reused.
type QuotaExceededError struct {
	Press  int
	Pulses int
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: press %d exceeded pulse quota: %d pulses > %d limit",
		ErrCodeRunawaySimulation, e.Press, e.Pulses, e.Limit)
}

// IsQuotaExceeded reports whether err wraps a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
