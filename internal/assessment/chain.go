package assessment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Action says what a chain step does with a failure of a given class.
type Action int

const (
	// Escalate returns the classified error to the caller.
	Escalate Action = iota
	// Absorb ends the chain with "nothing here" and no error.
	Absorb
	// FallThrough tries the next step; on the last step it escalates.
	FallThrough
)

// Step is one source in a fallback chain. Path holds a single %s for the session id.
type Step struct {
	Name       string
	Path       string
	OnNotFound Action
	OnError    Action
}

// Chain is an ordered list of sources. The policy lives in the data, not in nested calls.
type Chain []Step

// DefaultProgressChain: the enhanced source first; its 404 means "no progress yet" and is
// final, any other failure falls back to the legacy source once.
var DefaultProgressChain = Chain{
	{Name: "progress-enhanced", Path: "sessions/%s/progress-enhanced", OnNotFound: Absorb, OnError: FallThrough},
	{Name: "progress", Path: "sessions/%s/progress", OnNotFound: Absorb, OnError: Escalate},
}

// LoadProgressChain is used when opening a session that is already listed: an enhanced 404
// there still consults the legacy source, whose 404 then means "no progress yet".
var LoadProgressChain = Chain{
	{Name: "progress-enhanced", Path: "sessions/%s/progress-enhanced", OnNotFound: FallThrough, OnError: FallThrough},
	{Name: "progress", Path: "sessions/%s/progress", OnNotFound: Absorb, OnError: Escalate},
}

// DefaultHistoryChain: the primary history endpoint; an empty result falls through to the
// legacy endpoint, whose failures settle on an empty history.
var DefaultHistoryChain = Chain{
	{Name: "history", Path: "sessions/%s/history", OnNotFound: Escalate, OnError: Escalate},
	{Name: "history-legacy", Path: "sessions/%s/history-legacy", OnNotFound: Absorb, OnError: Absorb},
}

// Run walks the chain with GET requests, path-escaping sessionID. accept decides whether a
// successful payload settles the chain. A rejected payload moves on, but it is kept: when a
// later step is absorbed, fails or is rejected too, the first rejected payload is returned
// so whatever it did carry (progress, say) is not lost. An absorbed failure with nothing
// kept returns a nil payload and nil error.
func (c Chain) Run(ctx context.Context, t Transport, sessionID string, accept func(Payload) bool) (Payload, string, error) {
	id := url.PathEscape(sessionID)
	var (
		kept     Payload
		keptName string
	)
	for i, step := range c {
		last := i == len(c)-1
		raw, err := t.Do(ctx, http.MethodGet, fmt.Sprintf(step.Path, id), nil, nil)
		if err == nil {
			if accept == nil || accept(raw) {
				return raw, step.Name, nil
			}
			if kept == nil {
				kept, keptName = raw, step.Name
			}
			continue
		}

		action := step.OnError
		if Classify(err) == KindNotFound {
			action = step.OnNotFound
		}
		switch {
		case action == FallThrough && !last:
			continue
		case kept != nil:
			return kept, keptName, nil
		case action == Absorb:
			return nil, step.Name, nil
		default:
			return nil, step.Name, wrap(step.Name, err)
		}
	}
	return kept, keptName, nil
}
