package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type uploadStatusMsg struct {
	ev domain.Event
}

type uploadDoneMsg struct{}

type uploadClosedMsg struct{}

type uploadProgressModel struct {
	spinner  spinner.Model
	bar      progress.Model
	messages <-chan domain.Outbound
	label    string
	percent  string
	ratio    float64
	outcome  uploadOutcome
	err      error
	done     bool
}

func newUploadProgressModel(messages <-chan domain.Outbound) uploadProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return uploadProgressModel{
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		messages: messages,
		label:    "Starting upload...",
	}
}

func (m uploadProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m uploadProgressModel) next() tea.Cmd {
	messages := m.messages
	return func() tea.Msg {
		for msg := range messages {
			switch msg.Kind {
			case domain.OutboundStatus:
				return uploadStatusMsg{ev: msg.Status}
			case domain.OutboundUploadDone:
				return uploadDoneMsg{}
			}
		}
		return uploadClosedMsg{}
	}
}

func (m uploadProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case uploadStatusMsg:
		ev := msg.ev
		m.outcome.record(ev)
		if ev.Message != "" {
			m.label = ev.Message
		}
		if label := ev.PercentLabel(); label != "" {
			m.percent = label
			if f, err := ev.Progress.Float64(); err == nil {
				m.ratio = min(max(f/100, 0), 1)
			}
		}
		return m, m.next()
	case uploadDoneMsg:
		m.done = true
		return m, tea.Quit
	case uploadClosedMsg:
		m.done = true
		m.err = domain.ErrSupervisorStopped
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m uploadProgressModel) View() string {
	if m.done {
		return ""
	}

	parts := []string{m.spinner.View(), m.label}
	if m.percent != "" {
		parts = append(parts, m.bar.ViewAs(m.ratio), m.percent)
	}
	return strings.Join(parts, " ")
}

func runUploadProgress(ctx context.Context, output io.Writer, messages <-chan domain.Outbound) (uploadOutcome, error) {
	p := tea.NewProgram(
		newUploadProgressModel(messages),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return uploadOutcome{}, err
	}

	result, ok := finalModel.(uploadProgressModel)
	if !ok {
		return uploadOutcome{}, fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return result.outcome, result.err
}
