package tui

import (
	"context"

	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/internal/session"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"codeberg.org/pyqpapers/portal/pyq/papers"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	"codeberg.org/pyqpapers/portal/pyq/users"
	tea "github.com/charmbracelet/bubbletea"
)

// everything the screens talk to
type Deps struct {
	Session  *session.Store
	History  *router.History
	Papers   *papers.Client
	Subjects *subjects.Client
	Users    *users.Client
	Feedback *feedback.Client
}

// one full-window view bound to a route
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (screen, tea.Cmd)
	View() string
}

// screens that want the window size
type sizer interface {
	SetSize(width, height int)
}

// main TUI application model
type Model struct {
	ctx     context.Context
	deps    Deps
	width   int
	height  int
	route   string
	params  map[string]string
	current screen
	viewer  session.Snapshot
	events  *mailbox
	unsub   []func()

	// paper the feedback form refers to, set when a paper is opened
	paperID string
}

// the history moved to a new route
type routeChangedMsg struct {
	route string
}

// the session changed state or identity
type sessionChangedMsg struct {
	snapshot session.Snapshot
}

// a screen asks to go somewhere
type navigateMsg struct {
	route string
}

// a screen asks to go back
type backMsg struct{}

// a key hint in the footer
type Command struct {
	Name        string
	Description string
	Available   bool
}
