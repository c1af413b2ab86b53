package types

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

type EventKind string

const (
	EventStart    EventKind = "start"
	EventData     EventKind = "data"
	EventWarn     EventKind = "warn"
	EventError    EventKind = "error"
	EventAwait    EventKind = "await"
	EventSaved    EventKind = "saved"
	EventEnd      EventKind = "end"
	EventComplete EventKind = "complete"
)

// Event is one progress notification of a run. On the wire it is a flat JSON
// object: the fixed keys plus whatever the node put into Payload.
type Event struct {
	Kind     EventKind
	Node     string
	NodeType NodeType
	Message  string
	RunID    string
	Payload  Data
}

var reservedEventKeys = []string{"event", "node", "type", "message", "runId"}

func (e *Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Payload)+len(reservedEventKeys))
	for k, v := range e.Payload {
		m[k] = v
	}
	m["event"] = e.Kind
	if e.Node != "" {
		m["node"] = e.Node
	}
	if e.NodeType != "" {
		m["type"] = e.NodeType
	}
	if e.Message != "" {
		m["message"] = e.Message
	}
	if e.RunID != "" {
		m["runId"] = e.RunID
	}
	return json.Marshal(m)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	m := Data{}
	if err := json.Unmarshal(b, &m); err != nil {
		return errors.Trace(err)
	}
	e.Kind = EventKind(cast.ToString(m["event"]))
	e.Node = cast.ToString(m["node"])
	e.NodeType = NodeType(cast.ToString(m["type"]))
	e.Message = cast.ToString(m["message"])
	e.RunID = cast.ToString(m["runId"])
	for _, key := range reservedEventKeys {
		delete(m, key)
	}
	e.Payload = nil
	if len(m) > 0 {
		e.Payload = m
	}
	return nil
}

// Emitter receives the events of a run in order. Emit may block, which
// throttles the run.
type Emitter interface {
	Emit(ev *Event) error
}

type EmitterFunc func(ev *Event) error

func (f EmitterFunc) Emit(ev *Event) error {
	return f(ev)
}
