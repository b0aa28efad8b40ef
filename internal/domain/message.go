package domain

import (
	"encoding/json"
	"fmt"
)

// CommandKind enumerates the commands a host sends to the core.
type CommandKind string

const (
	CommandStartLogin   CommandKind = "startLogin"
	CommandSendInput    CommandKind = "sendInput"
	CommandSelectFolder CommandKind = "selectFolder"
	CommandStartUpload  CommandKind = "startUpload"
	CommandCancelUpload CommandKind = "cancelUpload"
	CommandLogout       CommandKind = "logout"
	CommandLink         CommandKind = "link"
	CommandRefresh      CommandKind = "refresh"
)

// Command is an inbound host message. Only the fields relevant to Kind are set.
type Command struct {
	Kind    CommandKind  `json:"cmd"`
	APIID   string       `json:"apiId,omitempty"`
	APIHash string       `json:"apiHash,omitempty"`
	Value   string       `json:"value,omitempty"`
	Path    string       `json:"path,omitempty"`
	Config  UploadConfig `json:"config"`
	URL     string       `json:"url,omitempty"`
}

// OutboundKind enumerates the messages the core sends to a host.
type OutboundKind string

const (
	OutboundLoginStep OutboundKind = "loginStep"
	OutboundSetPath   OutboundKind = "setPath"
	OutboundStatus    OutboundKind = "status"
	OutboundView      OutboundKind = "view"
	OutboundNotice    OutboundKind = "notice"
	// OutboundUploadDone follows the last status of an upload run.
	OutboundUploadDone OutboundKind = "uploadDone"
)

type View struct {
	LoggedIn bool `json:"loggedIn"`
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Outbound is a tagged message from the core. Exactly one payload field matches Kind.
type Outbound struct {
	Kind   OutboundKind
	Step   LoginStep
	Path   string
	Status Event
	View   View
	Notice Notice
}

func LoginStepMessage(step LoginStep) Outbound {
	return Outbound{Kind: OutboundLoginStep, Step: step}
}

func SetPathMessage(path string) Outbound {
	return Outbound{Kind: OutboundSetPath, Path: path}
}

func StatusMessage(ev Event) Outbound {
	return Outbound{Kind: OutboundStatus, Status: ev}
}

func ViewMessage(loggedIn bool) Outbound {
	return Outbound{Kind: OutboundView, View: View{LoggedIn: loggedIn}}
}

func NoticeMessage(level NoticeLevel, message string) Outbound {
	return Outbound{Kind: OutboundNotice, Notice: Notice{Level: level, Message: message}}
}

func UploadDoneMessage() Outbound {
	return Outbound{Kind: OutboundUploadDone}
}

type outboundEnvelope struct {
	Kind OutboundKind `json:"cmd"`
	Data any          `json:"data,omitempty"`
	Path string       `json:"path,omitempty"`
}

type loginStepPayload struct {
	LoginStep
	Event json.RawMessage `json:"event,omitempty"`
}

// MarshalJSON encodes the message as {"cmd": kind, "data": payload}. Status events
// are written exactly as the child produced them.
func (o Outbound) MarshalJSON() ([]byte, error) {
	env := outboundEnvelope{Kind: o.Kind}
	switch o.Kind {
	case OutboundLoginStep:
		env.Data = loginStepPayload{LoginStep: o.Step, Event: o.Step.Event.Raw}
	case OutboundSetPath:
		env.Path = o.Path
	case OutboundStatus:
		env.Data = o.Status.Raw
	case OutboundView:
		env.Data = o.View
	case OutboundNotice:
		env.Data = o.Notice
	case OutboundUploadDone:
	default:
		return nil, fmt.Errorf("encode outbound message: unknown kind %q", o.Kind)
	}
	return json.Marshal(env)
}
