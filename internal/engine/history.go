package engine

// StateHistory remembers the global-state fingerprint after every press.
//
// Lookup is by fingerprint, so repeat detection is O(1) per press instead
// of comparing against every earlier snapshot.
type StateHistory struct {
	seen map[string]int // fingerprint -> press that first produced it
}

// NewStateHistory creates an empty history.
func NewStateHistory() *StateHistory {
	return &StateHistory{seen: make(map[string]int)}
}

// Seen returns the press whose post-press state had this fingerprint.
// Returns (0, false) if the fingerprint has not been recorded.
func (h *StateHistory) Seen(fingerprint string) (int, bool) {
	press, ok := h.seen[fingerprint]
	return press, ok
}

// Record stores the fingerprint produced by press. The first press to
// produce a fingerprint wins.
func (h *StateHistory) Record(fingerprint string, press int) {
	if _, ok := h.seen[fingerprint]; ok {
		return
	}
	h.seen[fingerprint] = press
}

// Len returns the number of distinct fingerprints recorded.
func (h *StateHistory) Len() int {
	return len(h.seen)
}
