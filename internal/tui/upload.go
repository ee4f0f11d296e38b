package tui

import (
	"context"
	"strings"

	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/pyq/papers"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	uploadFile = iota
	uploadTitle
	uploadSubject
	uploadBatch
	uploadYear
	uploadSemester
	uploadExamType
	uploadTags
)

type uploadDoneMsg struct {
	paper *papers.Paper
	err   error
}

type editLoadedMsg struct {
	paper *papers.Paper
	err   error
}

// admin upload form; with an id it edits that paper instead
type Upload struct {
	ctx    context.Context
	papers *papers.Client
	id     string

	// kept from the loaded paper so edits keep the link
	subjectID string

	form form
	busy bool
	err  error
}

func newUpload(ctx context.Context, client *papers.Client, id string) *Upload {
	return &Upload{
		ctx:    ctx,
		papers: client,
		id:     id,
		busy:   id != "",
		form: newForm(
			"pdf file", "path to the PDF",
			"title", "defaults to subject - year - exam",
			"subject", "",
			"batch", "e.g. 2023",
			"year", "e.g. Second Year",
			"semester", "e.g. Semester 3",
			"exam type", strings.Join(papers.ExamTypes, ", "),
			"tags", "comma separated",
		),
	}
}

func (m *Upload) Init() tea.Cmd {
	if m.id == "" {
		return nil
	}

	id := m.id
	return func() tea.Msg {
		p, err := m.papers.Get(m.ctx, id)
		return editLoadedMsg{paper: p, err: err}
	}
}

func (m *Upload) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case editLoadedMsg:
		m.busy = false
		m.err = msg.err
		if p := msg.paper; p != nil {
			m.subjectID = p.SubjectID
			m.form.set(uploadTitle, p.Title)
			m.form.set(uploadSubject, p.Subject)
			m.form.set(uploadBatch, p.Batch)
			m.form.set(uploadYear, p.Year)
			m.form.set(uploadSemester, p.Semester)
			m.form.set(uploadExamType, p.ExamType)
			m.form.set(uploadTags, p.Tags)
		}
		return m, nil

	case uploadDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil && msg.paper != nil {
			return m, navigate(router.PaperPath(msg.paper.ID))
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if msg.String() == "ctrl+s" {
			return m, m.submit()
		}
	}

	return m, m.form.Update(msg)
}

func (m *Upload) input() papers.Input {
	return papers.Input{
		Title:     m.form.value(uploadTitle),
		Subject:   m.form.value(uploadSubject),
		SubjectID: m.subjectID,
		Batch:     m.form.value(uploadBatch),
		Year:      m.form.value(uploadYear),
		Semester:  m.form.value(uploadSemester),
		ExamType:  m.form.value(uploadExamType),
		Tags:      m.form.value(uploadTags),
	}
}

func (m *Upload) submit() tea.Cmd {
	var file *papers.File

	if path := m.form.value(uploadFile); path != "" {
		f, err := papers.OpenFile(path)
		if err != nil {
			m.err = err
			return nil
		}
		file = f
	}

	in := m.input()
	id := m.id
	m.busy = true
	m.err = nil

	return func() tea.Msg {
		var (
			p   *papers.Paper
			err error
		)
		if id == "" {
			p, err = m.papers.Create(m.ctx, in, file)
		} else {
			p, err = m.papers.Update(m.ctx, id, in, file)
		}
		return uploadDoneMsg{paper: p, err: err}
	}
}

func (m *Upload) View() string {
	var b strings.Builder

	title := "Upload a paper"
	if m.id != "" {
		title = "Edit paper"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	b.WriteString(statusLine(m.busy, "·", m.err, ""))
	b.WriteString("\n")

	help := "tab: next field  ctrl+s: upload"
	if m.id != "" {
		help = "tab: next field  ctrl+s: save (leave the file empty to keep the current PDF)"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}
