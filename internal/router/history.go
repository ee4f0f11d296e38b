package router

import "sync"

// requests a client-side navigation
type Navigator interface {
	Navigate(route string)
}

// reports the route currently shown
type Locator func() string

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

const maxHistory = 50

// History records navigations and notifies the shell.
// safe for concurrent use; listeners run on the navigating goroutine.
type History struct {
	mu        sync.Mutex
	stack     []string
	listeners map[int]func(string)
	nextID    int
}

// starts at the given route
func NewHistory(start string) *History {
	return &History{
		stack:     []string{clean(start)},
		listeners: make(map[int]func(string)),
	}
}

func (h *History) Navigate(route string) {
	route = clean(route)

	h.mu.Lock()
	if h.stack[len(h.stack)-1] == route {
		h.mu.Unlock()
		return
	}

	h.stack = append(h.stack, route)
	if len(h.stack) > maxHistory {
		h.stack = h.stack[len(h.stack)-maxHistory:]
	}
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(route)
	}
}

// returns to the previous route; false when there is none
func (h *History) Back() (string, bool) {
	h.mu.Lock()
	if len(h.stack) < 2 {
		current := h.stack[0]
		h.mu.Unlock()
		return current, false
	}

	h.stack = h.stack[:len(h.stack)-1]
	route := h.stack[len(h.stack)-1]
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(route)
	}

	return route, true
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stack[len(h.stack)-1]
}

// every route visited, oldest first
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.stack))
	copy(out, h.stack)
	return out
}

// registers fn for navigations and returns an unsubscribe func
func (h *History) Subscribe(fn func(route string)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *History) snapshotListeners() []func(string) {
	out := make([]func(string), 0, len(h.listeners))
	for _, fn := range h.listeners {
		out = append(out, fn)
	}
	return out
}
