package domain

type LoginState int

const (
	LoginAwaitingCredentials LoginState = iota
	LoginAwaitingPhone
	LoginAwaitingCode
	LoginSucceeded
	LoginFailed
)

func (s LoginState) String() string {
	switch s {
	case LoginAwaitingCredentials:
		return "awaiting_credentials"
	case LoginAwaitingPhone:
		return "awaiting_phone"
	case LoginAwaitingCode:
		return "awaiting_code"
	case LoginSucceeded:
		return "succeeded"
	case LoginFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s LoginState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LoginInput names the form step a host should show for a login state.
type LoginInput string

const (
	LoginInputCredentials LoginInput = "credentials"
	LoginInputPhone       LoginInput = "phone"
	LoginInputCode        LoginInput = "code"
	LoginInputNone        LoginInput = "none"
)

// Input returns the step that accepts user input in state s. Failed unlocks credentials again.
func (s LoginState) Input() LoginInput {
	switch s {
	case LoginAwaitingCredentials, LoginFailed:
		return LoginInputCredentials
	case LoginAwaitingPhone:
		return LoginInputPhone
	case LoginAwaitingCode:
		return LoginInputCode
	default:
		return LoginInputNone
	}
}

// LoginStep is what the host renders after each login event.
type LoginStep struct {
	State   LoginState `json:"state"`
	Input   LoginInput `json:"input"`
	Message string     `json:"message"`
	Alert   bool       `json:"alert"`
	// Locked is set while a login process runs and the credentials form must not be edited.
	Locked bool  `json:"locked"`
	Event  Event `json:"-"`
}
