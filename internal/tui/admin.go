package tui

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"codeberg.org/pyqpapers/portal/pyq/papers"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	"codeberg.org/pyqpapers/portal/pyq/users"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

type adminTab int

const (
	tabOverview adminTab = iota
	tabPapers
	tabUsers
	tabFeedback
	tabSubjects
)

var adminTabs = []struct {
	name  string
	route string
}{
	{"overview", router.RouteAdmin},
	{"pending papers", router.RouteAdminPapers},
	{"users", router.RouteAdminUsers},
	{"feedback", router.RouteAdminFeedback},
	{"subjects", router.RouteAdminSubjects},
}

const (
	subjectFormName = iota
	subjectFormYear
	subjectFormSemester
)

// a listed record and the fields actions need
type adminRow struct {
	id      string
	label   string
	admin   bool
	blocked bool
	status  string
}

type adminLoadedMsg struct {
	rows     []adminRow
	overview string
	err      error
}

type adminActionMsg struct {
	notice string
	err    error
}

type Admin struct {
	ctx  context.Context
	deps Deps
	tab  adminTab

	rows     []adminRow
	overview string
	selected int

	// subject creation form, shown on the subjects tab after "n"
	creating bool
	form     form

	confirm string
	busy    bool
	notice  string
	err     error
}

func newAdmin(ctx context.Context, deps Deps, tab adminTab) *Admin {
	return &Admin{
		ctx:  ctx,
		deps: deps,
		tab:  tab,
		busy: true,
		form: newForm(
			"name", "subject name",
			"year", strings.Join(subjects.Years, ", "),
			"semester", "e.g. Semester 1",
		),
	}
}

func (m *Admin) Init() tea.Cmd {
	return m.load()
}

func (m *Admin) load() tea.Cmd {
	m.busy = true
	ctx, d, tab := m.ctx, m.deps, m.tab

	return func() tea.Msg {
		switch tab {
		case tabOverview:
			return loadOverview(ctx, d)
		case tabPapers:
			pending := false
			page, err := d.Papers.List(ctx, papers.ListOptions{Approved: &pending, Limit: 50})
			if err != nil {
				return adminLoadedMsg{err: err}
			}
			rows := make([]adminRow, 0, len(page.Papers))
			for _, p := range page.Papers {
				rows = append(rows, adminRow{id: p.ID, label: fmt.Sprintf("%s  (%s, %s)", p.Title, p.Year, p.Semester)})
			}
			return adminLoadedMsg{rows: rows}
		case tabUsers:
			list, err := d.Users.List(ctx)
			if err != nil {
				return adminLoadedMsg{err: err}
			}
			rows := make([]adminRow, 0, len(list))
			for _, u := range list {
				label := fmt.Sprintf("%s <%s>", u.Name, u.Email)
				if u.IsAdmin {
					label += " [admin]"
				}
				if u.Blocked() {
					label += " [blocked]"
				}
				rows = append(rows, adminRow{id: u.ID, label: label, admin: u.IsAdmin, blocked: u.Blocked()})
			}
			return adminLoadedMsg{rows: rows}
		case tabFeedback:
			list, err := d.Feedback.List(ctx)
			if err != nil {
				return adminLoadedMsg{err: err}
			}
			rows := make([]adminRow, 0, len(list))
			for _, f := range list {
				who := "anonymous"
				if f.User != nil {
					who = f.User.Name
				}
				rows = append(rows, adminRow{
					id:     f.ID,
					label:  fmt.Sprintf("[%s] %s: %s (%d★)", f.Status, who, f.Subject, f.Rating),
					status: f.Status,
				})
			}
			return adminLoadedMsg{rows: rows}
		default:
			list, err := d.Subjects.List(ctx)
			if err != nil {
				return adminLoadedMsg{err: err}
			}
			rows := make([]adminRow, 0, len(list))
			for _, s := range list {
				rows = append(rows, adminRow{id: s.ID, label: fmt.Sprintf("%s  (%s, %s)", s.Name, s.Year, s.Semester)})
			}
			return adminLoadedMsg{rows: rows}
		}
	}
}

func loadOverview(ctx context.Context, d Deps) adminLoadedMsg {
	var (
		paperStats *papers.Stats
		userStats  *users.Stats
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		paperStats, err = d.Papers.Stats(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		userStats, err = d.Users.Stats(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return adminLoadedMsg{err: err}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "papers      %d total · %d approved · %d pending\n",
		paperStats.TotalPapers, paperStats.ApprovedPapers, paperStats.PendingPapers)
	fmt.Fprintf(&b, "activity    %d downloads · %d views\n", paperStats.TotalDownloads, paperStats.TotalViews)
	fmt.Fprintf(&b, "users       %d total · %d admins\n", userStats.TotalUsers, userStats.AdminUsers)

	if len(paperStats.TopPapers) > 0 {
		b.WriteString("\ntop papers\n")
		for _, p := range paperStats.TopPapers {
			fmt.Fprintf(&b, "  %s (%d downloads)\n", p.Title, p.Downloads)
		}
	}

	if len(paperStats.DepartmentStats) > 0 {
		b.WriteString("\nby year\n")
		for _, dc := range paperStats.DepartmentStats {
			fmt.Fprintf(&b, "  %-14s %d\n", dc.Department, dc.Count)
		}
	}

	return adminLoadedMsg{overview: b.String()}
}

func (m *Admin) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case adminLoadedMsg:
		m.busy = false
		m.err = msg.err
		m.rows = msg.rows
		m.overview = msg.overview
		m.selected = min(m.selected, max(0, len(m.rows)-1))
		return m, nil

	case adminActionMsg:
		m.busy = false
		m.err = msg.err
		m.notice = msg.notice
		if msg.err == nil {
			return m, m.load()
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.creating {
			return m, m.updateCreate(msg)
		}
		return m, m.handleKey(msg.String())
	}

	if m.creating {
		return m, m.form.Update(msg)
	}
	return m, nil
}

func (m *Admin) updateCreate(msg tea.KeyMsg) tea.Cmd {
	if msg.String() != "ctrl+s" {
		return m.form.Update(msg)
	}

	req := subjects.CreateRequest{
		Name:     m.form.value(subjectFormName),
		Year:     m.form.value(subjectFormYear),
		Semester: m.form.value(subjectFormSemester),
	}

	m.busy = true
	return func() tea.Msg {
		s, err := m.deps.Subjects.Create(m.ctx, req)
		if err != nil {
			return adminActionMsg{err: err}
		}
		return adminActionMsg{notice: "created " + s.Name}
	}
}

func (m *Admin) handleKey(key string) tea.Cmd {
	if len(key) == 1 && key >= "1" && key <= "5" {
		return navigate(adminTabs[key[0]-'1'].route)
	}

	if key != "x" {
		m.confirm = ""
	}

	switch key {
	case "up", "k":
		m.selected = max(0, m.selected-1)
		return nil
	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
		return nil
	case "r":
		m.notice = ""
		return m.load()
	case "u":
		return navigate(router.RouteUpload)
	case "n":
		if m.tab == tabSubjects {
			m.creating = true
			m.form.reset()
		}
		return nil
	}

	if m.selected >= len(m.rows) {
		return nil
	}
	row := m.rows[m.selected]

	switch m.tab {
	case tabPapers:
		switch key {
		case "enter":
			return navigate(router.PaperPath(row.id))
		case "a":
			return m.act(func(ctx context.Context) (string, error) {
				_, err := m.deps.Papers.Approve(ctx, row.id)
				return "paper approved", err
			})
		case "x":
			return m.confirmed(row, func(ctx context.Context) (string, error) {
				return "paper deleted", m.deps.Papers.Delete(ctx, row.id)
			})
		}

	case tabUsers:
		switch key {
		case "a":
			return m.act(func(ctx context.Context) (string, error) {
				_, err := m.deps.Users.UpdateRole(ctx, row.id, !row.admin)
				return "role updated", err
			})
		case "b":
			status := users.StatusBlocked
			if row.blocked {
				status = users.StatusActive
			}
			return m.act(func(ctx context.Context) (string, error) {
				_, err := m.deps.Users.UpdateStatus(ctx, row.id, status)
				return "user " + status, err
			})
		case "x":
			return m.confirmed(row, func(ctx context.Context) (string, error) {
				return "user deleted", m.deps.Users.Delete(ctx, row.id)
			})
		}

	case tabFeedback:
		switch key {
		case "s":
			next := nextFeedbackStatus(row.status)
			return m.act(func(ctx context.Context) (string, error) {
				_, err := m.deps.Feedback.UpdateStatus(ctx, row.id, next, "")
				return "marked " + next, err
			})
		case "x":
			return m.confirmed(row, func(ctx context.Context) (string, error) {
				return "feedback deleted", m.deps.Feedback.Delete(ctx, row.id)
			})
		}

	case tabSubjects:
		if key == "x" {
			return m.confirmed(row, func(ctx context.Context) (string, error) {
				return "subject deleted", m.deps.Subjects.Delete(ctx, row.id)
			})
		}
	}

	return nil
}

// destructive actions need the key twice on the same row
func (m *Admin) confirmed(row adminRow, fn func(context.Context) (string, error)) tea.Cmd {
	if m.confirm != row.id {
		m.confirm = row.id
		m.notice = "press x again to delete"
		return nil
	}

	m.confirm = ""
	return m.act(fn)
}

func (m *Admin) act(fn func(context.Context) (string, error)) tea.Cmd {
	m.busy = true
	m.err = nil
	m.creating = false
	ctx := m.ctx

	return func() tea.Msg {
		notice, err := fn(ctx)
		return adminActionMsg{notice: notice, err: err}
	}
}

func nextFeedbackStatus(status string) string {
	switch status {
	case feedback.StatusPending:
		return feedback.StatusInProgress
	case feedback.StatusInProgress:
		return feedback.StatusResolved
	default:
		return feedback.StatusPending
	}
}

func (m *Admin) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Admin"))
	b.WriteString("\n")

	tabs := make([]string, len(adminTabs))
	for i, t := range adminTabs {
		label := fmt.Sprintf("%d %s", i+1, t.name)
		if adminTab(i) == m.tab {
			tabs[i] = commandStyle.Render("[" + label + "]")
		} else {
			tabs[i] = commandDescStyle.Render(label)
		}
	}
	b.WriteString(strings.Join(tabs, "  "))
	b.WriteString("\n\n")

	switch {
	case m.busy && m.rows == nil && m.overview == "":
		b.WriteString(infoStyle.Render("loading..."))
	case m.tab == tabOverview && m.err == nil:
		b.WriteString(borderStyle.Render(strings.TrimRight(m.overview, "\n")))
	case m.creating:
		b.WriteString(m.form.View())
	case len(m.rows) == 0 && m.err == nil:
		b.WriteString(infoStyle.Render("nothing here"))
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
	b.WriteString(statusLine(m.busy, "·", m.err, m.notice))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))

	return b.String()
}

func (m *Admin) help() string {
	base := "1-5: tabs  r: reload  u: upload"

	switch m.tab {
	case tabPapers:
		return base + "  enter: open  a: approve  x: delete"
	case tabUsers:
		return base + "  a: toggle admin  b: block/unblock  x: delete"
	case tabFeedback:
		return base + "  s: next status  x: delete"
	case tabSubjects:
		if m.creating {
			return "tab: next field  ctrl+s: create"
		}
		return base + "  n: new subject  x: delete"
	default:
		return base
	}
}
