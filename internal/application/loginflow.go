package application

import "github.com/Thnoxs/localy-v1/internal/domain"

const (
	ConnectingNotice  = "Connecting..."
	CodeSentNotice    = "OTP Sent!"
	LoginFailedNotice = "Login failed"
)

type loginEffect int

const (
	effectNone loginEffect = iota
	// effectSettle asks the supervisor to re-check the session after the settle delay.
	effectSettle
)

// LoginFlow is the state of one login attempt. It only moves forward; Failed is
// left only through Reset, which a new login attempt performs.
type LoginFlow struct {
	state   domain.LoginState
	message string
	alert   bool
	locked  bool
}

func NewLoginFlow() *LoginFlow {
	return &LoginFlow{state: domain.LoginAwaitingCredentials}
}

func (f *LoginFlow) State() domain.LoginState {
	return f.state
}

// Reset starts a new attempt: credentials were submitted and a login process is starting.
func (f *LoginFlow) Reset() domain.LoginStep {
	f.state = domain.LoginAwaitingCredentials
	f.message = ConnectingNotice
	f.alert = false
	f.locked = true
	return f.step(domain.Event{})
}

// Fail moves to Failed outside the event stream, e.g. when the process cannot be spawned.
func (f *LoginFlow) Fail(message string) domain.LoginStep {
	ev := domain.SyntheticError(message)
	step, _, _ := f.Apply(ev)
	return step
}

// Apply feeds one event into the flow. The boolean is false when the event was
// ignored and nothing needs to be rendered.
func (f *LoginFlow) Apply(ev domain.Event) (domain.LoginStep, loginEffect, bool) {
	if f.state == domain.LoginSucceeded {
		return domain.LoginStep{}, effectNone, false
	}

	effect := effectNone
	switch ev.Kind {
	case domain.EventError:
		f.state = domain.LoginFailed
		f.message = ev.Message
		if f.message == "" {
			f.message = LoginFailedNotice
		}
		f.alert = true
		f.locked = false
	case domain.EventNeedPhone:
		if !f.advance(domain.LoginAwaitingPhone) {
			return domain.LoginStep{}, effectNone, false
		}
		f.message = ""
	case domain.EventNeedCode:
		if !f.advance(domain.LoginAwaitingCode) {
			return domain.LoginStep{}, effectNone, false
		}
		f.message = CodeSentNotice
	case domain.EventSuccess:
		if !f.advance(domain.LoginSucceeded) {
			return domain.LoginStep{}, effectNone, false
		}
		f.message = ev.Message
		effect = effectSettle
	case domain.EventMessage, domain.EventLoading, domain.EventInfo, domain.EventProgress, domain.EventUnrecognized:
		if ev.Message == "" {
			return domain.LoginStep{}, effectNone, false
		}
		f.message = ev.Message
		f.alert = false
	default:
		return domain.LoginStep{}, effectNone, false
	}

	return f.step(ev), effect, true
}

func (f *LoginFlow) advance(next domain.LoginState) bool {
	if f.state == domain.LoginFailed || next < f.state {
		return false
	}
	f.state = next
	f.alert = false
	f.locked = false
	return true
}

func (f *LoginFlow) step(ev domain.Event) domain.LoginStep {
	return domain.LoginStep{
		State:   f.state,
		Input:   f.state.Input(),
		Message: f.message,
		Alert:   f.alert,
		Locked:  f.locked,
		Event:   ev,
	}
}
