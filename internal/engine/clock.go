package engine

// Clock numbers presses and pulse deliveries within one run.
//
// Press numbers start at 1 and increase by one per button press. Seq starts
// at 1 for the button pulse of press 1 and increases by one per delivered
// pulse across every press of the run, so (press, seq) pairs are ordered
// exactly as deliveries happened. The zero value is a clock before the
// first press.
//
// Clock is not safe for concurrent use; the engine owning it is
// single-writer.
type Clock struct {
	press int
	seq   int64
}

// StartPress advances to the next press and returns its number.
func (c *Clock) StartPress() int {
	c.press++
	return c.press
}

// Stamp returns the seq for the next delivered pulse.
func (c *Clock) Stamp() int64 {
	c.seq++
	return c.seq
}

// Press returns the number of the current (or last finished) press.
func (c *Clock) Press() int {
	return c.press
}

// Seq returns the last stamped seq, 0 before the first delivery.
func (c *Clock) Seq() int64 {
	return c.seq
}

// Reset rewinds the clock to before the first press.
func (c *Clock) Reset() {
	*c = Clock{}
}
