package tui

import (
	"context"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/internal/session"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	loginEmail = iota
	loginPassword
	loginGoogle
)

const (
	registerName = iota
	registerEmail
	registerPassword
	registerConfirm
)

type authDoneMsg struct {
	err error
}

// shared state of the credential screens
type credentials struct {
	ctx     context.Context
	session *session.Store
	form    form
	spinner spinner.Model
	busy    bool
	err     error
}

func newCredentials(ctx context.Context, store *session.Store, pairs ...string) credentials {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return credentials{ctx: ctx, session: store, form: newForm(pairs...), spinner: sp}
}

func (c *credentials) start(run func() error) tea.Cmd {
	c.busy = true
	c.err = nil

	return tea.Batch(c.spinner.Tick, func() tea.Msg {
		return authDoneMsg{err: run()}
	})
}

// handles the messages both screens share; reports whether msg was consumed
func (c *credentials) update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case authDoneMsg:
		c.busy = false
		c.err = msg.err
		return nil, true

	case spinner.TickMsg:
		if !c.busy {
			return nil, true
		}
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return cmd, true
	}

	return nil, false
}

type Login struct {
	credentials
}

func newLogin(ctx context.Context, store *session.Store) *Login {
	return &Login{credentials: newCredentials(ctx, store,
		"email", "you@example.com",
		"*password", "",
		"google token", "optional access token from google sign-in",
	)}
}

func (m *Login) Init() tea.Cmd {
	return nil
}

func (m *Login) Update(msg tea.Msg) (screen, tea.Cmd) {
	if cmd, ok := m.update(msg); ok {
		return m, cmd
	}

	if key, ok := msg.(tea.KeyMsg); ok && !m.busy {
		switch key.String() {
		case "enter":
			return m, m.submit()
		case "ctrl+r":
			return m, navigate(router.RouteRegister)
		}
	}

	return m, m.form.Update(msg)
}

func (m *Login) submit() tea.Cmd {
	if token := m.form.value(loginGoogle); token != "" {
		return m.start(func() error {
			_, err := m.session.GoogleLogin(m.ctx, token)
			return err
		})
	}

	email, password := m.form.value(loginEmail), m.form.raw(loginPassword)
	if email == "" || password == "" {
		m.err = &apperrors.ValidationError{Message: "Please enter your email and password"}
		return nil
	}

	return m.start(func() error {
		_, err := m.session.Login(m.ctx, email, password)
		return err
	})
}

func (m *Login) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sign in"))
	b.WriteString("\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	b.WriteString(statusLine(m.busy, m.spinner.View(), m.err, ""))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: next field  enter: sign in  ctrl+r: create an account"))

	return b.String()
}

type Register struct {
	credentials
}

func newRegister(ctx context.Context, store *session.Store) *Register {
	return &Register{credentials: newCredentials(ctx, store,
		"name", "your full name",
		"email", "you@example.com",
		"*password", "at least 6 characters",
		"*confirm", "repeat the password",
	)}
}

func (m *Register) Init() tea.Cmd {
	return nil
}

func (m *Register) Update(msg tea.Msg) (screen, tea.Cmd) {
	if cmd, ok := m.update(msg); ok {
		return m, cmd
	}

	if key, ok := msg.(tea.KeyMsg); ok && !m.busy {
		switch key.String() {
		case "enter":
			return m, m.submit()
		case "ctrl+l":
			return m, navigate(router.RouteLogin)
		}
	}

	return m, m.form.Update(msg)
}

func (m *Register) submit() tea.Cmd {
	name := m.form.value(registerName)
	email := m.form.value(registerEmail)
	password := m.form.raw(registerPassword)

	if password != m.form.raw(registerConfirm) {
		m.err = &apperrors.ValidationError{Field: "confirm", Message: "Passwords do not match"}
		return nil
	}

	return m.start(func() error {
		_, err := m.session.Register(m.ctx, name, email, password)
		return err
	})
}

func (m *Register) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Create an account"))
	b.WriteString("\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	b.WriteString(statusLine(m.busy, m.spinner.View(), m.err, ""))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: next field  enter: register  ctrl+l: sign in instead"))

	return b.String()
}
