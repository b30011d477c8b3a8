package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taquilla-cli/wizard"
)

type field struct {
	key         string
	label       string
	placeholder string
	limit       int
}

// form is a vertical stack of text inputs keyed by wizard field names.
type form struct {
	fields []field
	inputs []textinput.Model
	focus  int
}

func newForm(fields ...field) form {
	f := form{fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, fd := range fields {
		in := textinput.New()
		in.Prompt = "› "
		in.Placeholder = fd.placeholder
		if fd.limit > 0 {
			in.CharLimit = fd.limit
		}
		f.inputs[i] = in
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f form) Update(msg tea.Msg) (form, tea.Cmd) {
	if len(f.inputs) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *form) move(delta int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// focusKey moves focus to the first input with key, if present.
func (f *form) focusKey(key string) tea.Cmd {
	for i, fd := range f.fields {
		if fd.key == key {
			return f.move(i - f.focus)
		}
	}
	return nil
}

func (f form) value(key string) string {
	for i, fd := range f.fields {
		if fd.key == key {
			return strings.TrimSpace(f.inputs[i].Value())
		}
	}
	return ""
}

func (f *form) set(key, value string) {
	for i, fd := range f.fields {
		if fd.key == key {
			f.inputs[i].SetValue(value)
			return
		}
	}
}

func (f form) focused() string {
	if len(f.fields) == 0 {
		return ""
	}
	return f.fields[f.focus].key
}

// firstError returns the first field, in display order, that has an error.
func (f form) firstError(errs wizard.FieldErrors) string {
	for _, fd := range f.fields {
		if errs.Has(fd.key) {
			return fd.key
		}
	}
	return ""
}

func (f form) View(errs wizard.FieldErrors, notes map[string]string) string {
	labelStyle := lipgloss.NewStyle().Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	var b strings.Builder
	for i, fd := range f.fields {
		b.WriteString(labelStyle.Render(fd.label))
		b.WriteString("\n")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
		if msg, ok := errs[fd.key]; ok {
			b.WriteString(errStyle.Render("  " + msg))
			b.WriteString("\n")
		} else if note := notes[fd.key]; note != "" {
			b.WriteString(hint("  " + note))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
