package domain

// LoginHistory is a fixed-capacity ring of login attempts. Appends past capacity
// overwrite the oldest record. Not safe for concurrent use; the store serializes access.
type LoginHistory struct {
	buf  []LoginRecord
	next int
	full bool
}

// NewLoginHistory returns an empty ring holding at most capacity records.
func NewLoginHistory(capacity int) *LoginHistory {
	if capacity <= 0 {
		capacity = LoginHistoryCap
	}
	return &LoginHistory{buf: make([]LoginRecord, capacity)}
}

// Append adds rec, evicting the oldest record when full.
func (h *LoginHistory) Append(rec LoginRecord) {
	h.buf[h.next] = rec
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of records held.
func (h *LoginHistory) Len() int {
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// Last returns the most recent record, or false if the ring is empty.
func (h *LoginHistory) Last() (LoginRecord, bool) {
	if h.Len() == 0 {
		return LoginRecord{}, false
	}
	i := h.next - 1
	if i < 0 {
		i = len(h.buf) - 1
	}
	return h.buf[i], true
}

// Records returns the held records oldest first.
func (h *LoginHistory) Records() []LoginRecord {
	if !h.full {
		out := make([]LoginRecord, h.next)
		copy(out, h.buf[:h.next])
		return out
	}
	out := make([]LoginRecord, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	out = append(out, h.buf[:h.next]...)
	return out
}
