package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

var fieldLabels = map[field]string{
	fieldAPIID:   "API ID",
	fieldAPIHash: "API hash",
	fieldFolder:  "Folder",
	fieldChat:    "Channel",
	fieldCredit:  "Credit",
}

func renderView(m Model) string {
	s := m.styles
	lines := []string{s.title.Render("Localy")}

	if m.loggedIn {
		lines = append(lines, s.header.Render("upload"))
		lines = append(lines, s.section.Render(renderUpload(m)))
	} else {
		lines = append(lines, s.header.Render("login"))
		lines = append(lines, s.section.Render(renderLogin(m)))
	}

	if m.notice.Message != "" {
		style := s.message
		if m.notice.Level == domain.NoticeError {
			style = s.alert
		}
		lines = append(lines, s.section.Render(style.Render(m.notice.Message)))
	}

	lines = append(lines, s.section.Render(s.hint.Render(hint(m))))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderLogin(m Model) string {
	s := m.styles
	var parts []string

	switch m.step.Input {
	case domain.LoginInputPhone:
		parts = append(parts, renderField(m, fieldAnswer, "Phone (+country code)"))
	case domain.LoginInputCode:
		parts = append(parts, renderField(m, fieldAnswer, "Code"))
	case domain.LoginInputCredentials:
		for _, f := range m.fields() {
			parts = append(parts, renderField(m, f, fieldLabels[f]))
		}
	}

	if m.step.Message != "" {
		style := s.message
		switch {
		case m.step.Alert:
			style = s.alert
		case m.step.State == domain.LoginSucceeded:
			style = s.success
		}
		msg := style.Render(m.step.Message)
		if m.step.Locked {
			msg = m.spinner.View() + " " + msg
		}
		parts = append(parts, msg)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderUpload(m Model) string {
	s := m.styles
	parts := make([]string, 0, len(m.fields())+2)
	for _, f := range m.fields() {
		parts = append(parts, renderField(m, f, fieldLabels[f]))
	}

	if line := statusLine(m); line != "" {
		parts = append(parts, s.section.Render(line))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderField(m Model, f field, label string) string {
	s := m.styles
	labelStyle := s.label
	fields := m.fields()
	if len(fields) > 0 && fields[m.focus] == f {
		labelStyle = s.focused
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(fmt.Sprintf("%-22s", label+":")), m.inputs[f].View())
}

func statusLine(m Model) string {
	s := m.styles
	ev := m.status
	if ev.Kind == "" {
		return ""
	}

	style := s.message
	switch ev.Kind {
	case domain.EventError:
		style = s.alert
	case domain.EventSuccess:
		style = s.success
	}

	var parts []string
	if m.uploading {
		parts = append(parts, m.spinner.View())
	}
	if ev.Message != "" {
		parts = append(parts, style.Render(ev.Message))
	}
	if label := m.progress.PercentLabel(); label != "" {
		parts = append(parts, renderProgressBar(m.progress, barWidth, s), s.percent.Render(label))
	}

	return strings.Join(parts, " ")
}

// renderProgressBar fills the bar from the reported percentage; the printed label stays verbatim.
func renderProgressBar(ev domain.Event, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	percent, err := ev.Progress.Float64()
	if err != nil {
		percent = 0
	}
	percent = math.Max(0, math.Min(100, percent))

	filled := int(math.Round(float64(width) * percent / 100))
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func hint(m Model) string {
	switch {
	case m.loggedIn && m.uploading:
		return "esc cancel upload • ctrl+c quit"
	case m.loggedIn:
		return "enter select folder / start upload • tab next field • ctrl+o logout • ctrl+c quit"
	default:
		return "enter submit • tab next field • ctrl+c quit"
	}
}
