// Package tui is the terminal front end: one bubbletea program whose screens
// follow the router history and the session store.
package tui

import (
	"context"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// builds the root model. ctx bounds every request the screens make.
func NewApp(ctx context.Context, deps Deps) *Model {
	m := &Model{
		ctx:    ctx,
		deps:   deps,
		events: newMailbox(),
		viewer: deps.Session.Snapshot(),
	}

	m.unsub = append(m.unsub,
		deps.History.Subscribe(func(route string) {
			m.events.putRoute(route)
		}),
		deps.Session.Subscribe(func(s session.Snapshot) {
			m.events.putSnapshot(s)
		}),
	)

	return m
}

func (m *Model) waitForEvent() tea.Cmd {
	return m.events.next
}

// detaches from the history and the session
func (m *Model) Close() {
	for _, unsub := range m.unsub {
		unsub()
	}
	m.unsub = nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.show(m.deps.History.Current()))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, m.back()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if s, ok := m.current.(sizer); ok {
			s.SetSize(m.width, m.contentHeight())
		}
		return m, nil

	case routeChangedMsg:
		return m, tea.Batch(m.waitForEvent(), m.show(msg.route))

	case sessionChangedMsg:
		m.viewer = msg.snapshot
		cmds := []tea.Cmd{m.waitForEvent(), m.enforceGuard()}
		if m.current != nil {
			var cmd tea.Cmd
			m.current, cmd = m.current.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case navigateMsg:
		m.deps.History.Navigate(msg.route)
		return m, nil

	case backMsg:
		return m, m.back()
	}

	if m.current == nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.current, cmd = m.current.Update(msg)
	return m, cmd
}

func (m *Model) back() tea.Cmd {
	if _, ok := m.deps.History.Back(); !ok && m.route != router.RouteHome {
		m.deps.History.Navigate(router.RouteHome)
	}
	return nil
}

// re-checks the visible route after the session changed
func (m *Model) enforceGuard() tea.Cmd {
	if m.route == "" || m.viewer.State == session.StateRehydrating || m.viewer.State == session.StateUninitialized {
		return nil
	}

	if target := router.Resolve(m.route, m.viewer); target != m.route {
		m.deps.History.Navigate(target)
	}

	return nil
}

// swaps in the screen for route, or redirects when its guard refuses
func (m *Model) show(route string) tea.Cmd {
	// events can arrive out of order, the store is authoritative
	m.viewer = m.deps.Session.Snapshot()

	target := router.Resolve(route, m.viewer)
	if target != route && m.viewer.State != session.StateRehydrating {
		logger.Debug("route guarded", "from", route, "to", target)
		m.deps.History.Navigate(target)
		return nil
	}

	matched, params := router.Match(route)
	m.route = route
	m.params = params
	m.current = m.screenFor(matched.Pattern, params)

	if s, ok := m.current.(sizer); ok {
		s.SetSize(m.width, m.contentHeight())
	}

	return m.current.Init()
}

func (m *Model) screenFor(pattern string, params map[string]string) screen {
	ctx := m.ctx
	d := m.deps

	switch pattern {
	case router.RouteHome:
		return newWelcome(ctx, d.Session, m.viewer)
	case router.RouteLogin:
		return newLogin(ctx, d.Session)
	case router.RouteRegister:
		return newRegister(ctx, d.Session)
	case router.RouteSearch:
		return newPaperList(ctx, d.Papers, "", "")
	case router.RouteSubjects:
		return newSubjectBrowser(ctx, d.Subjects, "", "")
	case router.RouteSubjectsByTerm:
		return newSubjectBrowser(ctx, d.Subjects, params["year"], params["semester"])
	case router.RoutePapersBySubject:
		return newPaperList(ctx, d.Papers, params["subjectId"], params["year"])
	case router.RoutePaperDetails:
		m.paperID = params["id"]
		return newPaperDetails(ctx, d.Papers, d.Feedback, params["id"], m.viewer.IsAdmin())
	case router.RouteProfile:
		return newProfile(ctx, d.Session)
	case router.RouteFeedback:
		return newFeedbackForm(ctx, d.Feedback, m.paperID, m.viewer.IsAuthenticated())
	case router.RouteUpload:
		return newUpload(ctx, d.Papers, "")
	case router.RouteAdminPaperEdit:
		return newUpload(ctx, d.Papers, params["id"])
	case router.RouteAdmin:
		return newAdmin(ctx, d, tabOverview)
	case router.RouteAdminPapers:
		return newAdmin(ctx, d, tabPapers)
	case router.RouteAdminUsers:
		return newAdmin(ctx, d, tabUsers)
	case router.RouteAdminFeedback:
		return newAdmin(ctx, d, tabFeedback)
	case router.RouteAdminSubjects:
		return newAdmin(ctx, d, tabSubjects)
	default:
		return newNotFound(m.route)
	}
}

func (m *Model) contentHeight() int {
	// header and footer take a line each plus spacing
	return max(0, m.height-4)
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	if m.current != nil {
		b.WriteString(m.current.View())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc: back  ctrl+c: quit"))

	return b.String()
}

func (m *Model) header() string {
	who := "not signed in"
	switch {
	case m.viewer.State == session.StateRehydrating:
		who = "restoring session..."
	case m.viewer.IsAuthenticated():
		who = m.viewer.Identity.Name
		if m.viewer.IsAdmin() {
			who += " (admin)"
		}
	}

	left := headerStyle.Render("pyq papers")
	right := infoStyle.Render(who + "  " + m.route)

	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

// inline text for an error; network and auth failures get the standard wording
func userMessage(err error) string {
	if msg := apperrors.UserMessage(err, ""); msg != "" {
		return msg
	}
	return "Something went wrong. Please try again."
}

func navigate(route string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{route: route} }
}
