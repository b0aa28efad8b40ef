package tui

import (
	"context"
	"errors"
	"io"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var ErrUnexpectedModel = errors.New("unexpected final bubbletea model type")

// Core is the part of the supervisor the terminal UI drives.
type Core interface {
	Dispatch(ctx context.Context, cmd domain.Command) error
	Messages() <-chan domain.Outbound
}

type Options struct {
	LoggedIn bool
	Profile  domain.UploadProfile
}

type outboundMsg struct {
	msg domain.Outbound
}

type coreClosedMsg struct{}

type dispatchedMsg struct {
	err error
}

type field int

const (
	fieldAPIID field = iota
	fieldAPIHash
	fieldAnswer
	fieldFolder
	fieldChat
	fieldCredit
)

type Model struct {
	ctx    context.Context
	core   Core
	styles styles

	spinner spinner.Model
	inputs  map[field]*textinput.Model
	focus   int

	loggedIn  bool
	step      domain.LoginStep
	path      string
	status    domain.Event
	progress  domain.Event
	uploading bool
	notice    domain.Notice
	quitting  bool
}

func New(ctx context.Context, core Core, opts Options) Model {
	newInput := func(placeholder string, mask bool) *textinput.Model {
		in := textinput.New()
		in.Placeholder = placeholder
		in.CharLimit = 256
		if mask {
			in.EchoMode = textinput.EchoPassword
		}
		return &in
	}

	m := Model{
		ctx:    ctx,
		core:   core,
		styles: newStyles(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		inputs: map[field]*textinput.Model{
			fieldAPIID:   newInput("API ID", false),
			fieldAPIHash: newInput("API hash", true),
			fieldAnswer:  newInput("", false),
			fieldFolder:  newInput("/path/to/course", false),
			fieldChat:    newInput("channel username or id", false),
			fieldCredit:  newInput(domain.DefaultCredit, false),
		},
		loggedIn: opts.LoggedIn,
		step: domain.LoginStep{
			State: domain.LoginAwaitingCredentials,
			Input: domain.LoginInputCredentials,
		},
	}
	m.inputs[fieldChat].SetValue(opts.Profile.ChatID)
	m.inputs[fieldCredit].SetValue(opts.Profile.Credit)
	m.focusField(0)

	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.waitForOutbound())
}

func (m Model) waitForOutbound() tea.Cmd {
	ch := m.core.Messages()
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return coreClosedMsg{}
		}
		return outboundMsg{msg: msg}
	}
}

func (m Model) dispatch(cmd domain.Command) tea.Cmd {
	return func() tea.Msg {
		return dispatchedMsg{err: m.core.Dispatch(m.ctx, cmd)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case outboundMsg:
		m.apply(msg.msg)
		return m, m.waitForOutbound()
	case coreClosedMsg:
		m.quitting = true
		return m, tea.Quit
	case dispatchedMsg:
		// failures arrive as notices
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) apply(msg domain.Outbound) {
	switch msg.Kind {
	case domain.OutboundLoginStep:
		prev := m.step.Input
		m.step = msg.Step
		if msg.Step.Input != prev {
			m.inputs[fieldAnswer].Reset()
			m.focusField(0)
		}
	case domain.OutboundView:
		m.loggedIn = msg.View.LoggedIn
		if !m.loggedIn && m.step.State == domain.LoginSucceeded {
			m.step = domain.LoginStep{State: domain.LoginAwaitingCredentials, Input: domain.LoginInputCredentials}
		}
		m.focusField(m.focus)
	case domain.OutboundSetPath:
		m.path = msg.Path
		m.inputs[fieldFolder].SetValue(msg.Path)
		m.focusField(m.focus + 1)
	case domain.OutboundStatus:
		m.status = msg.Status
		m.uploading = true
		if msg.Status.Kind == domain.EventProgress {
			m.progress = msg.Status
		}
	case domain.OutboundUploadDone:
		m.uploading = false
	case domain.OutboundNotice:
		m.notice = msg.Notice
	}
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyTab, tea.KeyDown:
		m.focusField(m.focus + 1)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.focusField(m.focus - 1)
		return m, nil
	case tea.KeyEnter:
		return m, m.submit()
	case tea.KeyEsc:
		if m.uploading {
			return m, m.dispatch(domain.Command{Kind: domain.CommandCancelUpload})
		}
		return m, nil
	case tea.KeyCtrlO:
		if m.loggedIn && !m.uploading {
			return m, m.dispatch(domain.Command{Kind: domain.CommandLogout})
		}
		return m, nil
	}

	fields := m.fields()
	if len(fields) == 0 || m.locked() {
		return m, nil
	}
	in := m.inputs[fields[m.focus]]
	updated, cmd := in.Update(key)
	*in = updated
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	m.notice = domain.Notice{}
	value := func(f field) string { return m.inputs[f].Value() }

	if !m.loggedIn {
		switch m.step.Input {
		case domain.LoginInputCredentials:
			if m.locked() {
				return nil
			}
			return m.dispatch(domain.Command{
				Kind:    domain.CommandStartLogin,
				APIID:   value(fieldAPIID),
				APIHash: value(fieldAPIHash),
			})
		case domain.LoginInputPhone, domain.LoginInputCode:
			answer := value(fieldAnswer)
			m.inputs[fieldAnswer].Reset()
			return m.dispatch(domain.Command{Kind: domain.CommandSendInput, Value: answer})
		default:
			return nil
		}
	}

	fields := m.fields()
	if len(fields) > 0 && fields[m.focus] == fieldFolder && value(fieldFolder) != m.path {
		return m.dispatch(domain.Command{Kind: domain.CommandSelectFolder, Path: value(fieldFolder)})
	}
	if m.uploading {
		return nil
	}

	m.status = domain.Event{}
	m.progress = domain.Event{}
	return m.dispatch(domain.Command{
		Kind: domain.CommandStartUpload,
		Path: m.path,
		Config: domain.UploadConfig{
			Credentials: domain.Credentials{APIID: value(fieldAPIID), APIHash: value(fieldAPIHash)},
			ChatID:      value(fieldChat),
			Credit:      value(fieldCredit),
		},
	})
}

// fields lists the editable inputs of the current screen in focus order.
func (m Model) fields() []field {
	if m.loggedIn {
		return []field{fieldFolder, fieldChat, fieldCredit, fieldAPIID, fieldAPIHash}
	}

	switch m.step.Input {
	case domain.LoginInputCredentials:
		return []field{fieldAPIID, fieldAPIHash}
	case domain.LoginInputPhone, domain.LoginInputCode:
		return []field{fieldAnswer}
	default:
		return nil
	}
}

func (m Model) locked() bool {
	return !m.loggedIn && m.step.Locked
}

func (m *Model) focusField(i int) {
	fields := m.fields()
	for _, in := range m.inputs {
		in.Blur()
	}
	if len(fields) == 0 {
		m.focus = 0
		return
	}

	m.focus = (i%len(fields) + len(fields)) % len(fields)
	m.inputs[fields[m.focus]].Focus()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return renderView(m)
}

// Run drives the terminal UI until the user quits or the core stops.
func Run(ctx context.Context, core Core, opts Options, input io.Reader, output io.Writer) error {
	p := tea.NewProgram(
		New(ctx, core, opts),
		tea.WithContext(ctx),
		tea.WithInput(input),
		tea.WithOutput(output),
	)

	finalModel, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	if _, ok := finalModel.(Model); !ok {
		return ErrUnexpectedModel
	}
	return nil
}
