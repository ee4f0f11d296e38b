package tui

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"codeberg.org/pyqpapers/portal/pyq/papers"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"golang.org/x/sync/errgroup"
)

const pageSize = 10

type pageLoadedMsg struct {
	page *papers.Page
	err  error
}

// search results, or the papers of one subject when subjectID is set
type PaperList struct {
	ctx       context.Context
	papers    *papers.Client
	subjectID string
	year      string

	query     textinput.Model
	lastQuery string
	page      int
	result    *papers.Page
	selected  int

	spinner spinner.Model
	busy    bool
	err     error
}

func newPaperList(ctx context.Context, client *papers.Client, subjectID, year string) *PaperList {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	q := newInput("title, subject or tag", false)
	q.Focus()

	return &PaperList{
		ctx:       ctx,
		papers:    client,
		subjectID: subjectID,
		year:      year,
		query:     q,
		page:      1,
		spinner:   sp,
	}
}

func (m *PaperList) Init() tea.Cmd {
	return m.load()
}

func (m *PaperList) load() tea.Cmd {
	m.busy = true
	m.err = nil

	opts := papers.ListOptions{Page: m.page, Limit: pageSize, Subject: m.subjectID, Year: m.year}
	q := m.lastQuery

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		var (
			page *papers.Page
			err  error
		)
		if q == "" {
			page, err = m.papers.List(m.ctx, opts)
		} else {
			page, err = m.papers.Search(m.ctx, q, opts)
		}
		return pageLoadedMsg{page: page, err: err}
	})
}

func (m *PaperList) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case pageLoadedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.result = msg.page
			m.selected = 0
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}

		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.query.Value())
			if q != m.lastQuery || m.result == nil {
				m.lastQuery = q
				m.page = 1
				return m, m.load()
			}
			if p, ok := m.current(); ok {
				return m, navigate(router.PaperPath(p.ID))
			}
			return m, nil
		case "up":
			m.selected = max(0, m.selected-1)
			return m, nil
		case "down":
			if m.result != nil && m.selected < len(m.result.Papers)-1 {
				m.selected++
			}
			return m, nil
		case "pgdown", "ctrl+n":
			if m.hasNext() {
				m.page++
				return m, m.load()
			}
			return m, nil
		case "pgup", "ctrl+p":
			if m.page > 1 {
				m.page--
				return m, m.load()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

func (m *PaperList) current() (papers.Paper, bool) {
	if m.result == nil || m.selected >= len(m.result.Papers) {
		return papers.Paper{}, false
	}
	return m.result.Papers[m.selected], true
}

func (m *PaperList) hasNext() bool {
	return m.result != nil && m.result.Pagination != nil && m.page < m.result.Pagination.Pages
}

func (m *PaperList) View() string {
	var b strings.Builder

	title := "Search papers"
	if m.subjectID != "" {
		title = "Papers"
		if m.year != "" {
			title += " · " + m.year
		}
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.query.View())
	b.WriteString("\n\n")

	switch {
	case m.busy:
		b.WriteString(infoStyle.Render(m.spinner.View() + " loading papers..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render(userMessage(m.err)))
	case m.result == nil || len(m.result.Papers) == 0:
		b.WriteString(infoStyle.Render("no papers found"))
	default:
		for i, p := range m.result.Papers {
			line := fmt.Sprintf("%s  %s · %s · %s", p.Title, p.Subject, p.Semester, p.ExamType)
			if i == m.selected {
				b.WriteString(menuItemSelectedStyle.Render(line))
			} else {
				b.WriteString(menuItemStyle.Render(line))
			}
			b.WriteString("\n")
		}
		if pg := m.result.Pagination; pg != nil {
			b.WriteString(infoStyle.Render(fmt.Sprintf("page %d of %d · %d papers", pg.Page, max(pg.Pages, 1), pg.Total)))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: search / open  ↑↓: select  pgup/pgdown: page"))

	return b.String()
}

type paperLoadedMsg struct {
	paper    *papers.Paper
	feedback []feedback.Feedback
	err      error
}

type paperActionMsg struct {
	notice string
	paper  *papers.Paper
	gone   bool
	err    error
}

type PaperDetails struct {
	ctx      context.Context
	papers   *papers.Client
	feedback *feedback.Client
	id       string
	admin    bool

	paper    *papers.Paper
	reviews  []feedback.Feedback
	viewport viewport.Model
	width    int

	confirmDelete bool
	notice        string
	busy          bool
	err           error
}

func newPaperDetails(ctx context.Context, pc *papers.Client, fc *feedback.Client, id string, admin bool) *PaperDetails {
	return &PaperDetails{
		ctx:      ctx,
		papers:   pc,
		feedback: fc,
		id:       id,
		admin:    admin,
		viewport: viewport.New(80, 20),
		width:    80,
		busy:     true,
	}
}

func (m *PaperDetails) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.viewport.Width = width
	m.viewport.Height = max(5, height-4)
	m.render()
}

func (m *PaperDetails) Init() tea.Cmd {
	return func() tea.Msg {
		var (
			paper   *papers.Paper
			reviews []feedback.Feedback
		)

		g, ctx := errgroup.WithContext(m.ctx)
		g.Go(func() error {
			var err error
			paper, err = m.papers.Get(ctx, m.id)
			return err
		})
		g.Go(func() error {
			// reviews are optional on this screen
			list, err := m.feedback.ForPaper(ctx, m.id)
			if err == nil {
				reviews = list
			}
			return nil
		})

		err := g.Wait()
		return paperLoadedMsg{paper: paper, feedback: reviews, err: err}
	}
}

func (m *PaperDetails) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case paperLoadedMsg:
		m.busy = false
		m.err = msg.err
		m.paper = msg.paper
		m.reviews = msg.feedback
		m.render()
		return m, nil

	case paperActionMsg:
		m.busy = false
		m.err = msg.err
		m.notice = msg.notice
		if msg.gone {
			return m, navigate(router.RouteSearch)
		}
		if msg.paper != nil {
			m.paper = msg.paper
			m.render()
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy || m.paper == nil {
			break
		}

		key := msg.String()
		if key != "x" {
			m.confirmDelete = false
		}

		switch key {
		case "d":
			return m, m.download()
		case "f":
			return m, navigate(router.RouteFeedback)
		case "a":
			if m.admin && !m.paper.Approved {
				return m, m.approve()
			}
		case "e":
			if m.admin {
				return m, navigate(router.AdminPaperEditPath(m.paper.ID))
			}
		case "x":
			if m.admin {
				if !m.confirmDelete {
					m.confirmDelete = true
					m.notice = "press x again to delete this paper"
					return m, nil
				}
				return m, m.remove()
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *PaperDetails) download() tea.Cmd {
	p := *m.paper
	viewer := m.papers.ViewerURL(p)
	file := m.papers.FileURL(p)

	return func() tea.Msg {
		m.papers.IncrementDownload(m.ctx, p.ID)
		if file == "" {
			return paperActionMsg{notice: "this paper has no file attached"}
		}
		return paperActionMsg{notice: "open " + viewer + "\nor download " + file}
	}
}

func (m *PaperDetails) approve() tea.Cmd {
	m.busy = true
	id := m.paper.ID

	return func() tea.Msg {
		p, err := m.papers.Approve(m.ctx, id)
		return paperActionMsg{paper: p, notice: "paper approved", err: err}
	}
}

func (m *PaperDetails) remove() tea.Cmd {
	m.busy = true
	id := m.paper.ID

	return func() tea.Msg {
		if err := m.papers.Delete(m.ctx, id); err != nil {
			return paperActionMsg{err: err}
		}
		return paperActionMsg{gone: true}
	}
}

func (m *PaperDetails) render() {
	if m.paper == nil {
		return
	}

	doc := paperMarkdown(*m.paper, m.reviews)

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(20, m.width-4)),
	)
	if err == nil {
		if out, rerr := r.Render(doc); rerr == nil {
			doc = out
		}
	}

	m.viewport.SetContent(doc)
}

func paperMarkdown(p papers.Paper, reviews []feedback.Feedback) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Subject | %s |\n", p.Subject)
	fmt.Fprintf(&b, "| Year | %s |\n", p.Year)
	fmt.Fprintf(&b, "| Semester | %s |\n", p.Semester)
	if p.ExamType != "" {
		fmt.Fprintf(&b, "| Exam | %s |\n", p.ExamType)
	}
	if p.Batch != "" {
		fmt.Fprintf(&b, "| Batch | %s |\n", p.Batch)
	}
	fmt.Fprintf(&b, "| Downloads | %d |\n", p.Downloads)
	fmt.Fprintf(&b, "| Views | %d |\n", p.Views)
	if !p.Approved {
		b.WriteString("\n> pending approval\n")
	}
	if p.Tags != "" {
		fmt.Fprintf(&b, "\n**Tags:** %s\n", p.Tags)
	}

	if len(reviews) > 0 {
		b.WriteString("\n## Feedback\n\n")
		for _, r := range reviews {
			fmt.Fprintf(&b, "- %s %s: %s\n", strings.Repeat("★", r.Rating), r.Subject, r.Message)
		}
	}

	return b.String()
}

func (m *PaperDetails) View() string {
	var b strings.Builder

	switch {
	case m.paper == nil && m.busy:
		b.WriteString(infoStyle.Render("loading paper..."))
	case m.paper == nil:
		b.WriteString(errorStyle.Render(userMessage(m.err)))
	default:
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		b.WriteString(statusLine(m.busy, "·", m.err, m.notice))
	}

	b.WriteString("\n")
	help := "d: download  f: feedback"
	if m.admin {
		help += "  a: approve  e: edit  x: delete"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

type NotFound struct {
	route string
}

func newNotFound(route string) *NotFound {
	return &NotFound{route: route}
}

func (m *NotFound) Init() tea.Cmd { return nil }

func (m *NotFound) Update(tea.Msg) (screen, tea.Cmd) { return m, nil }

func (m *NotFound) View() string {
	return titleStyle.Render("Page not found") + "\n" + infoStyle.Render(m.route+" does not exist")
}
