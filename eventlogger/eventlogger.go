// Package eventlogger keeps an audit trail of every mutation made to the
// shared trip documents.
package eventlogger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// WithActor records which member or surface made the change.
func WithActor(actor string) EventOption {
	return func(e *Event) {
		e.Metadata["actor"] = actor
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByType(ctx context.Context, eventType string) ([]Event, error)
}

// Recorder is what domain services log through. The Worker implements it.
type Recorder interface {
	Log(event Event)
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Log(Event) {}

// Tag returns a recorder that applies opts to every event before passing it
// to next, e.g. Tag(worker, WithActor("tripctl")).
func Tag(next Recorder, opts ...EventOption) Recorder {
	return tagged{next: next, opts: opts}
}

type tagged struct {
	next Recorder
	opts []EventOption
}

func (t tagged) Log(e Event) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	for _, opt := range t.opts {
		opt(&e)
	}
	t.next.Log(e)
}
