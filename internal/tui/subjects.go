package tui

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	tea "github.com/charmbracelet/bubbletea"
)

// one selectable line of the browser
type subjectRow struct {
	label string
	route string
}

type subjectsLoadedMsg struct {
	rows []subjectRow
	err  error
}

// year/semester overview, or the subjects of one term
type SubjectBrowser struct {
	ctx      context.Context
	subjects *subjects.Client
	year     string
	semester string

	rows     []subjectRow
	selected int
	busy     bool
	err      error
}

func newSubjectBrowser(ctx context.Context, client *subjects.Client, year, semester string) *SubjectBrowser {
	return &SubjectBrowser{ctx: ctx, subjects: client, year: year, semester: semester, busy: true}
}

func (m *SubjectBrowser) Init() tea.Cmd {
	if m.year == "" || m.semester == "" {
		return m.loadTerms()
	}
	return m.loadSubjects()
}

func (m *SubjectBrowser) loadTerms() tea.Cmd {
	return func() tea.Msg {
		groups, err := m.subjects.Grouped(m.ctx)
		if err != nil {
			return subjectsLoadedMsg{err: err}
		}

		var rows []subjectRow
		for _, g := range groups {
			for _, sem := range g.Semesters {
				rows = append(rows, subjectRow{
					label: fmt.Sprintf("%s · %s (%d subjects)", g.Year, sem.Semester, len(sem.Subjects)),
					route: router.SubjectsPath(g.Year, sem.Semester),
				})
			}
		}
		return subjectsLoadedMsg{rows: rows}
	}
}

func (m *SubjectBrowser) loadSubjects() tea.Cmd {
	year, semester := m.year, m.semester

	return func() tea.Msg {
		list, err := m.subjects.Filter(m.ctx, year, semester)
		if err != nil {
			return subjectsLoadedMsg{err: err}
		}

		rows := make([]subjectRow, 0, len(list))
		for _, s := range list {
			rows = append(rows, subjectRow{
				label: s.Name,
				route: router.PapersBySubjectPath(year, semester, s.ID),
			})
		}
		return subjectsLoadedMsg{rows: rows}
	}
}

func (m *SubjectBrowser) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case subjectsLoadedMsg:
		m.busy = false
		m.err = msg.err
		m.rows = msg.rows
		m.selected = 0

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			m.selected = max(0, m.selected-1)
		case "down", "j":
			if m.selected < len(m.rows)-1 {
				m.selected++
			}
		case "enter":
			if m.selected < len(m.rows) {
				return m, navigate(m.rows[m.selected].route)
			}
		}
	}

	return m, nil
}

func (m *SubjectBrowser) View() string {
	var b strings.Builder

	title := "Browse by year"
	if m.year != "" {
		title = m.year + " · " + m.semester
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(infoStyle.Render("loading subjects..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render(userMessage(m.err)))
	case len(m.rows) == 0:
		b.WriteString(infoStyle.Render("no subjects yet"))
	default:
		for i, r := range m.rows {
			if i == m.selected {
				b.WriteString(menuItemSelectedStyle.Render(r.label))
			} else {
				b.WriteString(menuItemStyle.Render(r.label))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑↓: select  enter: open"))

	return b.String()
}
