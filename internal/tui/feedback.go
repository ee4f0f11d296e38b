package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	feedbackSubject = iota
	feedbackMessage
	feedbackRating
)

type feedbackSentMsg struct {
	err error
}

type myFeedbackMsg struct {
	items []feedback.Feedback
	err   error
}

// the feedback form plus the signed-in user's earlier submissions
type FeedbackForm struct {
	ctx      context.Context
	client   *feedback.Client
	paperID  string
	signedIn bool

	form   form
	mine   []feedback.Feedback
	busy   bool
	notice string
	err    error
}

func newFeedbackForm(ctx context.Context, client *feedback.Client, paperID string, signedIn bool) *FeedbackForm {
	return &FeedbackForm{
		ctx:      ctx,
		client:   client,
		paperID:  paperID,
		signedIn: signedIn,
		form: newForm(
			"subject", "what is this about",
			"message", "your feedback",
			"rating", fmt.Sprintf("%d-%d", feedback.MinRating, feedback.MaxRating),
		),
	}
}

func (m *FeedbackForm) Init() tea.Cmd {
	if !m.signedIn {
		return nil
	}
	return m.loadMine()
}

func (m *FeedbackForm) loadMine() tea.Cmd {
	return func() tea.Msg {
		items, err := m.client.Mine(m.ctx)
		return myFeedbackMsg{items: items, err: err}
	}
}

func (m *FeedbackForm) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case myFeedbackMsg:
		if msg.err == nil {
			m.mine = msg.items
		}
		return m, nil

	case feedbackSentMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.notice = "thanks for your feedback"
			m.form.reset()
			return m, m.loadMine()
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if msg.String() == "enter" {
			return m, m.submit()
		}
	}

	return m, m.form.Update(msg)
}

func (m *FeedbackForm) submit() tea.Cmd {
	if !m.signedIn {
		return navigate(router.RouteLogin)
	}

	rating, err := strconv.Atoi(m.form.value(feedbackRating))
	if err != nil {
		m.err = &apperrors.ValidationError{Field: "rating", Message: "Rating must be a number"}
		return nil
	}

	sub := feedback.Submission{
		Subject: m.form.value(feedbackSubject),
		Message: m.form.value(feedbackMessage),
		Rating:  rating,
		PaperID: m.paperID,
	}

	m.busy = true
	m.notice = ""
	return func() tea.Msg {
		_, err := m.client.Submit(m.ctx, sub)
		return feedbackSentMsg{err: err}
	}
}

func (m *FeedbackForm) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Feedback"))
	b.WriteString("\n")

	if !m.signedIn {
		b.WriteString(warnStyle.Render("sign in to send feedback. press enter to go to the login screen."))
		b.WriteString("\n\n")
	}

	if m.paperID != "" {
		b.WriteString(infoStyle.Render("about the paper you last opened"))
		b.WriteString("\n")
	}

	b.WriteString(m.form.View())
	b.WriteString("\n")
	b.WriteString(statusLine(m.busy, "·", m.err, m.notice))
	b.WriteString("\n")

	if len(m.mine) > 0 {
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render("your feedback"))
		b.WriteString("\n")
		for _, f := range m.mine {
			line := fmt.Sprintf("%s  [%s] %s", strings.Repeat("★", f.Rating), f.Status, f.Subject)
			if f.Response != "" {
				line += "  → " + f.Response
			}
			b.WriteString(menuItemStyle.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString(helpStyle.Render("tab: next field  enter: send"))

	return b.String()
}
