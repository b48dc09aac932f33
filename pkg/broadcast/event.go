package broadcast

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType tags a chat event pushed down a stream.
type EventType string

const (
	// EventConnected acknowledges that a stream session has started.
	EventConnected EventType = "connected"
	// EventHeartbeat is a liveness signal carrying the server time.
	EventHeartbeat EventType = "heartbeat"
	// EventMessage carries a full message record in Data.
	EventMessage EventType = "message"
	// EventDelete carries the id of a removed message in Data.
	EventDelete EventType = "delete"
)

// Valid reports whether t is one of the four known variants.
func (t EventType) Valid() bool {
	switch t {
	case EventConnected, EventHeartbeat, EventMessage, EventDelete:
		return true
	}
	return false
}

// Broadcastable reports whether clients may ask the dispatcher to fan out t.
// connected and heartbeat are generated by the stream session only.
func (t EventType) Broadcastable() bool {
	return t == EventMessage || t == EventDelete
}

// Event is the JSON envelope written to subscribers:
//
//	{"type":"message","data":{...}}
//	{"type":"heartbeat","timestamp":1718000000000}
//
// Data is relayed verbatim; the core never inspects message records.
// Timestamp is in Unix milliseconds.
type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// DeletePayload is the data of a delete event.
type DeletePayload struct {
	ID string `json:"id"`
}

// Connected returns the session-start acknowledgment.
func Connected() Event {
	return Event{Type: EventConnected, Message: "connected"}
}

// Heartbeat returns a keep-alive event stamped with t.
func Heartbeat(t time.Time) Event {
	return Event{Type: EventHeartbeat, Timestamp: t.UnixMilli()}
}

// NewEvent builds an event of type t around payload.
// json.RawMessage and []byte payloads are used as-is, anything else is marshalled.
func NewEvent(t EventType, payload any) (Event, error) {
	if !t.Valid() {
		return Event{}, ErrUnknownEventType
	}
	var data json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		data = p
	case []byte:
		data = json.RawMessage(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return Event{}, errors.Join(ErrInvalidPayload, err)
		}
		data = b
	}
	if len(data) > 0 && !json.Valid(data) {
		return Event{}, ErrInvalidPayload
	}
	return Event{Type: t, Data: data}, nil
}

// DeleteEvent returns the delete event for a message id.
func DeleteEvent(id string) Event {
	data, _ := json.Marshal(DeletePayload{ID: id})
	return Event{Type: EventDelete, Data: data}
}

// Encode serializes the envelope.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an envelope. Unknown types decode without error;
// receivers are expected to ignore them.
func DecodeEvent(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Join(ErrInvalidPayload, err)
	}
	return e, nil
}
