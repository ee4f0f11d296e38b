package tui

import (
	"context"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	profileName = iota
	profileEmail
	profileCurrent
	profileNew
)

type profileSavedMsg struct {
	notice string
	err    error
}

// edits the signed-in user's name and email, and changes the password
type Profile struct {
	ctx     context.Context
	session *session.Store
	form    form
	busy    bool
	notice  string
	err     error
}

func newProfile(ctx context.Context, store *session.Store) *Profile {
	m := &Profile{
		ctx:     ctx,
		session: store,
		form: newForm(
			"name", "",
			"email", "",
			"*current", "current password",
			"*new", "new password",
		),
	}
	m.fill()
	return m
}

func (m *Profile) fill() {
	if id := m.session.Identity(); id != nil {
		m.form.set(profileName, id.Name)
		m.form.set(profileEmail, id.Email)
	}
}

func (m *Profile) Init() tea.Cmd {
	return nil
}

func (m *Profile) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case profileSavedMsg:
		m.busy = false
		m.err = msg.err
		m.notice = ""
		if msg.err == nil {
			m.notice = msg.notice
			m.form.set(profileCurrent, "")
			m.form.set(profileNew, "")
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if msg.String() == "enter" {
			if m.form.focus >= profileCurrent {
				return m, m.changePassword()
			}
			return m, m.saveProfile()
		}
	}

	return m, m.form.Update(msg)
}

func (m *Profile) saveProfile() tea.Cmd {
	id := m.session.Identity()
	if id == nil {
		m.err = session.ErrNotAuthenticated
		return nil
	}

	var update session.ProfileUpdate
	if name := m.form.value(profileName); name != id.Name {
		update.Name = &name
	}
	if email := m.form.value(profileEmail); email != id.Email {
		update.Email = &email
	}
	if update.Name == nil && update.Email == nil {
		m.notice = "nothing changed"
		return nil
	}

	m.busy = true
	return func() tea.Msg {
		_, err := m.session.UpdateProfile(m.ctx, update)
		return profileSavedMsg{notice: "profile updated", err: err}
	}
}

func (m *Profile) changePassword() tea.Cmd {
	current, next := m.form.raw(profileCurrent), m.form.raw(profileNew)
	if current == "" || next == "" {
		m.err = &apperrors.ValidationError{Message: "Enter your current and new password"}
		return nil
	}

	m.busy = true
	return func() tea.Msg {
		err := m.session.UpdatePassword(m.ctx, current, next)
		return profileSavedMsg{notice: "password changed", err: err}
	}
}

func (m *Profile) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Your profile"))
	b.WriteString("\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	b.WriteString(statusLine(m.busy, "·", m.err, m.notice))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter on name/email: save profile  enter on passwords: change password"))

	return b.String()
}
