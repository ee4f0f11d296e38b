package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type field struct {
	label string
	input textinput.Model
}

// a column of labelled text inputs with tab focus cycling
type form struct {
	fields []field
	focus  int
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 48
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorWhite)

	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}

	return ti
}

// builds a form from label/placeholder pairs. labels starting with "*" are masked.
func newForm(pairs ...string) form {
	f := form{}

	for i := 0; i+1 < len(pairs); i += 2 {
		label, secret := strings.CutPrefix(pairs[i], "*")
		f.fields = append(f.fields, field{label: label, input: newInput(pairs[i+1], secret)})
	}

	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	if len(f.fields) == 0 {
		return
	}

	f.focus = (i + len(f.fields)) % len(f.fields)

	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
			f.fields[j].input.PromptStyle = focusedPromptStyle
		} else {
			f.fields[j].input.Blur()
			f.fields[j].input.PromptStyle = promptStyle
		}
	}
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

// raw value, untrimmed, for passwords
func (f *form) raw(i int) string {
	return f.fields[i].input.Value()
}

func (f *form) set(i int, v string) {
	f.fields[i].input.SetValue(v)
}

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].input.SetValue("")
	}
	f.setFocus(0)
}

// handles focus keys; anything else goes to the focused input
func (f *form) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return nil
		}
	}

	if len(f.fields) == 0 {
		return nil
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *form) View() string {
	var b strings.Builder

	for _, fl := range f.fields {
		b.WriteString(labelStyle.Render(fl.label))
		b.WriteString(fl.input.View())
		b.WriteString("\n")
	}

	return b.String()
}

// the status line under a form
func statusLine(busy bool, spin string, err error, notice string) string {
	switch {
	case busy:
		return infoStyle.Render(spin + " working...")
	case err != nil:
		return errorStyle.Render(userMessage(err))
	case notice != "":
		return successStyle.Render(notice)
	default:
		return ""
	}
}
