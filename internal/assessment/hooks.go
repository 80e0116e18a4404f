package assessment

import (
	"context"
	"time"
)

const (
	EventSessionStarted = "session.started"
	EventSessionLoaded  = "session.loaded"
	EventMessageSent    = "message.sent"
	EventProgressFused  = "progress.fused"
	EventSessionDeleted = "session.deleted"
)

// Event is a lifecycle notification emitted after a state change has been applied.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

type EventSink interface {
	Publish(ctx context.Context, e Event) error
}

// Mirror keeps a local copy of what the orchestrator has settled on.
type Mirror interface {
	SaveSession(ctx context.Context, s Session) error
	SaveMessages(ctx context.Context, sessionID string, msgs []Message) error
	AppendMessages(ctx context.Context, sessionID string, msgs ...Message) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Confirmer asks the user before a destructive operation.
type Confirmer interface {
	Confirm(ctx context.Context, s Session) bool
}

type ConfirmFunc func(ctx context.Context, s Session) bool

func (f ConfirmFunc) Confirm(ctx context.Context, s Session) bool { return f(ctx, s) }

type confirmKey struct{}

// WithConfirmation marks ctx as carrying the user's answer, for front-ends that ask
// before calling in (a web modal, a --yes flag).
func WithConfirmation(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmKey{}, confirmed)
}

// ConfirmFromContext reads the answer stored by WithConfirmation; absent means no.
var ConfirmFromContext = ConfirmFunc(func(ctx context.Context, _ Session) bool {
	v, _ := ctx.Value(confirmKey{}).(bool)
	return v
})

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) error { return nil }

type nopMirror struct{}

func (nopMirror) SaveSession(context.Context, Session) error { return nil }
func (nopMirror) SaveMessages(context.Context, string, []Message) error { return nil }
func (nopMirror) AppendMessages(context.Context, string, ...Message) error { return nil }
func (nopMirror) DeleteSession(context.Context, string) error { return nil }
