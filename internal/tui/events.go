package tui

import (
	"sync"

	"codeberg.org/pyqpapers/portal/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

// latest-value mailbox between the history/session publishers and the
// program. publishers never block, and a burst collapses into the newest
// snapshot and route instead of being dropped.
type mailbox struct {
	mu       sync.Mutex
	route    *string
	snapshot *session.Snapshot
	wake     chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (b *mailbox) putRoute(route string) {
	b.mu.Lock()
	b.route = &route
	b.mu.Unlock()
	b.signal()
}

func (b *mailbox) putSnapshot(s session.Snapshot) {
	b.mu.Lock()
	b.snapshot = &s
	b.mu.Unlock()
	b.signal()
}

func (b *mailbox) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// blocks until something is pending. session changes go first so the
// route that follows them is resolved against the new session.
func (b *mailbox) next() tea.Msg {
	for {
		<-b.wake

		b.mu.Lock()
		var msg tea.Msg
		switch {
		case b.snapshot != nil:
			msg = sessionChangedMsg{snapshot: *b.snapshot}
			b.snapshot = nil
		case b.route != nil:
			msg = routeChangedMsg{route: *b.route}
			b.route = nil
		}
		more := b.snapshot != nil || b.route != nil
		b.mu.Unlock()

		if more {
			b.signal()
		}
		if msg != nil {
			return msg
		}
	}
}
