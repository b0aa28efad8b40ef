package domain

import (
	"encoding/json"
	"strings"
)

// EventKind is the closed set of event variants a child process can emit.
type EventKind string

const (
	EventNeedPhone    EventKind = "need_phone"
	EventNeedCode     EventKind = "need_otp"
	EventSuccess      EventKind = "success"
	EventError        EventKind = "error"
	EventLoading      EventKind = "loading"
	EventInfo         EventKind = "info"
	EventProgress     EventKind = "progress"
	EventMessage      EventKind = "message"
	EventUnrecognized EventKind = "unrecognized"
)

// Event is one decoded stdout record of a child process.
type Event struct {
	Kind EventKind
	// Tag is the raw status or type string as written by the child.
	Tag      string
	Message  string
	Error    bool
	Progress json.Number
	// Raw holds the original line so relays can forward it untouched.
	Raw json.RawMessage
}

// WireRecord is the JSON shape of a single line on a child's stdout.
type WireRecord struct {
	Status   string      `json:"status,omitempty" jsonschema:"enum=need_phone,enum=need_otp,enum=success,enum=error,enum=loading,description=Login status tag"`
	Type     string      `json:"type,omitempty" jsonschema:"description=Upload event kind such as info progress success or error"`
	Message  *string     `json:"message,omitempty" jsonschema:"description=Human readable status text"`
	Error    bool        `json:"error,omitempty" jsonschema:"description=Marks a failure record"`
	Progress json.Number `json:"progress,omitempty" jsonschema:"description=Upload percentage"`
}

// Terminal reports whether the event is a final outcome: success or error. A login
// ends on either; an upload reports per-file errors and only ends when its process exits.
func (e Event) Terminal() bool {
	return e.Kind == EventSuccess || e.Kind == EventError
}

// PercentLabel renders the progress payload of a progress event as written by the
// child, e.g. "42%". Other kinds carry a placeholder progress and yield "".
func (e Event) PercentLabel() string {
	if e.Kind != EventProgress || e.Progress == "" {
		return ""
	}
	return e.Progress.String() + "%"
}

func ClassifyEvent(rec WireRecord, raw []byte) Event {
	tag := strings.TrimSpace(rec.Status)
	if tag == "" {
		tag = strings.TrimSpace(rec.Type)
	}

	ev := Event{
		Tag:      tag,
		Error:    rec.Error,
		Progress: rec.Progress,
		Raw:      append(json.RawMessage(nil), raw...),
	}
	if rec.Message != nil {
		ev.Message = *rec.Message
	}

	switch {
	case rec.Error:
		ev.Kind = EventError
	case tag == "":
		ev.Kind = EventMessage
	default:
		switch kind := EventKind(tag); kind {
		case EventNeedPhone, EventNeedCode, EventSuccess, EventError, EventLoading, EventInfo, EventProgress:
			ev.Kind = kind
		default:
			ev.Kind = EventUnrecognized
		}
	}
	if ev.Kind == EventError {
		ev.Error = true
	}

	return ev
}

// SyntheticError builds the event used when a child fails outside its stdout protocol.
func SyntheticError(message string) Event {
	raw, _ := json.Marshal(WireRecord{Status: string(EventError), Type: string(EventError), Message: &message, Error: true})
	return Event{
		Kind:    EventError,
		Tag:     string(EventError),
		Message: message,
		Error:   true,
		Raw:     raw,
	}
}
