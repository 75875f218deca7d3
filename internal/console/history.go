package console

import "sync"

// History is an in-memory navigation stack. It implements the session
// navigator.
type History struct {
	mu      sync.Mutex
	entries []string
	onMove  func(route string)
}

func NewHistory(start string) *History {
	return &History{entries: []string{start}}
}

// OnNavigate registers a callback run after every move.
func (h *History) OnNavigate(fn func(route string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMove = fn
}

// Navigate pushes route, or replaces the current entry when replace is set so
// going back cannot return to it.
func (h *History) Navigate(route string, replace bool) {
	if replace {
		h.Replace(route)
		return
	}
	h.Push(route)
}

func (h *History) Push(route string) {
	h.mu.Lock()
	h.entries = append(h.entries, route)
	fn := h.onMove
	h.mu.Unlock()
	if fn != nil {
		fn(route)
	}
}

func (h *History) Replace(route string) {
	h.mu.Lock()
	h.entries[len(h.entries)-1] = route
	fn := h.onMove
	h.mu.Unlock()
	if fn != nil {
		fn(route)
	}
}

// Back pops the current entry. It reports false at the first entry.
func (h *History) Back() (string, bool) {
	h.mu.Lock()
	if len(h.entries) == 1 {
		cur := h.entries[0]
		h.mu.Unlock()
		return cur, false
	}
	h.entries = h.entries[:len(h.entries)-1]
	cur := h.entries[len(h.entries)-1]
	fn := h.onMove
	h.mu.Unlock()
	if fn != nil {
		fn(cur)
	}
	return cur, true
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
