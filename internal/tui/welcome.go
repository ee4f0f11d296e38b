package tui

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Welcome struct {
	ctx      context.Context
	session  *session.Store
	viewer   session.Snapshot
	input    string
	commands []Command
	err      error
}

type loggedOutMsg struct{}

// returns a new welcome screen
func newWelcome(ctx context.Context, store *session.Store, viewer session.Snapshot) *Welcome {
	w := &Welcome{ctx: ctx, session: store}
	w.setViewer(viewer)
	return w
}

func (m *Welcome) setViewer(v session.Snapshot) {
	m.viewer = v
	signedIn := v.IsAuthenticated()

	m.commands = []Command{
		{Name: "login", Description: "sign in with email or google", Available: !signedIn},
		{Name: "register", Description: "create an account", Available: !signedIn},
		{Name: "search", Description: "search past papers", Available: signedIn},
		{Name: "subjects", Description: "browse papers by year and semester", Available: signedIn},
		{Name: "profile", Description: "your account", Available: signedIn},
		{Name: "feedback", Description: "tell us what to improve", Available: true},
		{Name: "upload", Description: "upload a paper", Available: v.IsAdmin()},
		{Name: "admin", Description: "admin dashboard", Available: v.IsAdmin()},
		{Name: "logout", Description: "sign out", Available: signedIn},
		{Name: "quit", Description: "exit", Available: true},
	}
}

func (m *Welcome) Init() tea.Cmd {
	return nil
}

func (m *Welcome) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			cmd := m.executeCommand()
			m.input = ""
			return m, cmd
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		}

	case sessionChangedMsg:
		m.setViewer(msg.snapshot)

	case loggedOutMsg:
		m.err = nil
	}

	return m, nil
}

func (m *Welcome) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(logo))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("previous year question papers, one search away"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Render("commands:"))
	b.WriteString("\n\n")

	for _, cmd := range m.commands {
		if !cmd.Available {
			continue
		}
		line := fmt.Sprintf("  %s %s",
			commandStyle.Render(cmd.Name),
			commandDescStyle.Render("- "+cmd.Description),
		)
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(promptStyle.Render("> ") + commandStyle.Render(m.input+"_"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(userMessage(m.err)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("type a command and press enter."))

	return b.String()
}

func (m *Welcome) available(name string) bool {
	for _, c := range m.commands {
		if c.Name == name {
			return c.Available
		}
	}
	return false
}

func (m *Welcome) executeCommand() tea.Cmd {
	name := strings.ToLower(strings.TrimSpace(m.input))
	if name == "" {
		return nil
	}

	if !m.available(name) {
		m.err = fmt.Errorf("unknown command: %s", name)
		return nil
	}
	m.err = nil

	switch name {
	case "quit":
		return tea.Quit
	case "logout":
		return func() tea.Msg {
			_ = m.session.Logout(m.ctx)
			return loggedOutMsg{}
		}
	case "admin":
		return navigate(router.RouteAdmin)
	default:
		return navigate("/" + name)
	}
}
