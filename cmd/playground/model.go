package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
)

const meterWidth = 20

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4361ee"))
	labelStyle   = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("#8d99ae"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef233c"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4cc9f0"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8d99ae"))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("#4361ee")).Foreground(lipgloss.Color("#ffffff"))
	disabledBtn  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("#2b2d42")).Foreground(lipgloss.Color("#8d99ae"))
	slideStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2).Width(40).Align(lipgloss.Center)
	toastPadding = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#ffffff"))
)

// changedMsg means the session state moved outside of Update, e.g. a timer.
type changedMsg struct{}

type model struct {
	session *application.Session
	changes <-chan struct{}

	inputs []textinput.Model
	focus  int
	snap   application.SessionSnapshot
	status string
}

func newModel(s *application.Session, changes <-chan struct{}) model {
	inputs := make([]textinput.Model, len(entity.Fields))
	for i, f := range entity.Fields {
		ti := textinput.New()
		ti.CharLimit = 128
		ti.Width = 32
		ti.Prompt = ""
		switch f {
		case entity.FieldName:
			ti.Placeholder = "Jane Doe"
		case entity.FieldEmail:
			ti.Placeholder = "jane@example.com"
		case entity.FieldPassword:
			ti.Placeholder = "at least 8 characters"
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}
	inputs[0].Focus()
	return model{session: s, changes: changes, inputs: inputs, snap: s.Snapshot()}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.changes))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		case "pgdown", "ctrl+right":
			m.session.Next()
			m.refresh()
			return m, nil
		case "pgup", "ctrl+left":
			m.session.Prev()
			m.refresh()
			return m, nil
		case "ctrl+d":
			m.session.Dismiss()
			m.refresh()
			return m, nil
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1)
			}
			m.submit()
			return m, nil
		}
	}
	return m, m.updateFocused(msg)
}

func (m *model) updateFocused(msg tea.Msg) tea.Cmd {
	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if v := m.inputs[m.focus].Value(); v != before {
		_ = m.session.Input(entity.Fields[m.focus], v)
		m.refresh()
	}
	return cmd
}

func (m *model) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	m.inputs[m.focus].Blur()
	m.focus = ((i % n) + n) % n
	return m.inputs[m.focus].Focus()
}

func (m *model) submit() {
	_, err := m.session.Submit(context.Background())
	var ve *form.ValidationError
	switch {
	case err == nil:
		m.status = "Submitted, the form resets shortly"
	case errors.Is(err, application.ErrSubmitInProgress):
		m.status = "Already submitted"
	case errors.As(err, &ve):
		m.status = fmt.Sprintf("%d field(s) need attention", len(ve.Failures))
	default:
		m.status = err.Error()
	}
	m.refresh()
}

// refresh pulls the latest snapshot and mirrors field values the session
// changed on its own, such as the reset after a submit.
func (m *model) refresh() {
	m.snap = m.session.Snapshot()
	for i, f := range entity.Fields {
		if v := m.snap.Form.Fields.Get(f).Value; m.inputs[i].Value() != v {
			m.inputs[i].SetValue(v)
		}
	}
	if !m.snap.Submitted && strings.HasPrefix(m.status, "Submitted") {
		m.status = ""
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Form Playground"))
	b.WriteString("\n\n")

	for i, f := range entity.Fields {
		fs := m.snap.Form.Fields.Get(f)
		b.WriteString(labelStyle.Render(fieldLabel(f)))
		b.WriteString(m.inputs[i].View())
		if f == entity.FieldEmail {
			b.WriteString(" " + availabilityBadge(m.snap.Form))
		}
		b.WriteString("\n")
		if fs.ErrorMessage != "" {
			msg := fs.ErrorMessage
			if fs.Shaking {
				msg = "» " + msg
			}
			b.WriteString(labelStyle.Render("") + errorStyle.Render(msg) + "\n")
		}
		if f == entity.FieldPassword {
			b.WriteString(labelStyle.Render("Strength") + strengthMeter(m.snap.Form.Strength) + "\n")
		}
	}

	b.WriteString("\n")
	if m.snap.Form.Submittable && !m.snap.Submitted {
		b.WriteString(buttonStyle.Render("Submit"))
	} else {
		b.WriteString(disabledBtn.Render("Submit"))
	}
	if m.status != "" {
		b.WriteString("  " + dimStyle.Render(m.status))
	}
	b.WriteString("\n\n")

	b.WriteString(carouselView(m.snap.Carousel))
	b.WriteString("\n")
	if n := m.snap.Notification; n != nil {
		b.WriteString(toastPadding.Background(lipgloss.Color(n.Color)).Render(n.Message))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab/shift+tab move  enter submit  pgup/pgdn slides  ctrl+d dismiss  esc quit"))
	return b.String()
}

func fieldLabel(f entity.Field) string {
	switch f {
	case entity.FieldName:
		return "Name"
	case entity.FieldEmail:
		return "Email"
	case entity.FieldPassword:
		return "Password"
	}
	return string(f)
}

func availabilityBadge(fs entity.FormSnapshot) string {
	if fs.Checking {
		return dimStyle.Render("checking…")
	}
	switch fs.Fields.Email.AsyncResult {
	case entity.AvailabilityAvailable:
		return okStyle.Render("✓ available")
	case entity.AvailabilityTaken:
		return errorStyle.Render("✗ taken")
	}
	return ""
}

func strengthMeter(p entity.PasswordStrength) string {
	filled := p.Percent() * meterWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", meterWidth-filled)
	return lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color())).
		Render(fmt.Sprintf("%s %3d%% %s", bar, p.Percent(), p.Label()))
}

func carouselView(c entity.CarouselState) string {
	active := c.ActiveSlide()
	title := active.Title
	if title == "" {
		title = active.ID
	}
	arrow := "▶"
	if c.Direction == entity.Backward {
		arrow = "◀"
	}
	dots := make([]string, len(c.Indicators))
	for i, on := range c.Indicators {
		if on {
			dots[i] = "●"
		} else {
			dots[i] = "○"
		}
	}
	return slideStyle.Render(arrow+" "+title) + "\n" + strings.Join(dots, " ")
}
