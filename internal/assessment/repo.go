package assessment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/suPer8Hu/assessment-client/internal/logger"
)

// Transport is the authenticated JSON capability the repository runs on.
// Failures should expose StatusCode() int (and optionally Detail() string).
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error)
}

type SessionPage struct {
	Sessions   []Session
	Pagination Pagination
}

type StartResult struct {
	Session         Session
	InitialProgress *ProgressSnapshot
	SymptomSummary  any
	Greeting        Message
}

type ContinueResult struct {
	Assistant Message
	// Progress is an embedded snapshot. ProgressFields holds discrete progress fields
	// instead, to be overlaid on the session's current snapshot.
	Progress       *ProgressSnapshot
	ProgressFields Payload
	SymptomSummary any
	// Degraded responses completed with reduced functionality. They are not errors
	// and must not be retried as such.
	Degraded bool
}

type History struct {
	Messages       []Message
	Progress       *ProgressSnapshot
	SymptomSummary any
	Source         string
}

type Repo struct {
	t       Transport
	mapper  *MessageMapper
	history Chain
	log     *logger.Logger
}

func NewRepo(t Transport, mapper *MessageMapper, log *logger.Logger) *Repo {
	if mapper == nil {
		mapper = NewMessageMapper()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Repo{t: t, mapper: mapper, history: DefaultHistoryChain, log: log.With("service", "SessionRepo")}
}

func (r *Repo) List(ctx context.Context, page, pageSize int) (*SessionPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	raw, err := r.t.Do(ctx, http.MethodGet, "sessions", q, nil)
	if err != nil {
		return nil, wrap("list sessions", err)
	}
	sessions, pg := SessionPageFromPayload(raw, page, pageSize)
	return &SessionPage{Sessions: sessions, Pagination: pg}, nil
}

func (r *Repo) Start(ctx context.Context) (*StartResult, error) {
	raw, err := r.t.Do(ctx, http.MethodPost, "sessions/start", nil, map[string]any{})
	if err != nil {
		return nil, wrap("start session", err)
	}

	sessRaw := raw
	if nested, ok := raw["session"].(map[string]any); ok {
		sessRaw = nested
	}
	sess := SessionFromPayload(sessRaw)
	if sess.ID == "" {
		if id := firstString(raw, "session_id", "id"); id != nil {
			sess.ID = *id
		}
	}
	if sess.ID == "" {
		return nil, &Error{Op: "start session", Kind: KindUnknown, Detail: "backend returned no session id"}
	}

	res := &StartResult{
		Session:        sess,
		Greeting:       r.mapper.Greeting(raw),
		SymptomSummary: raw["symptom_summary"],
	}
	for _, src := range []Payload{raw, sessRaw} {
		for _, k := range []string{"progress_snapshot", "progress"} {
			if nested, ok := src[k].(map[string]any); ok && res.InitialProgress == nil {
				snap := NormalizeSnapshot(nested)
				res.InitialProgress = &snap
			}
		}
	}
	return res, nil
}

func (r *Repo) Continue(ctx context.Context, sessionID, text string) (*ContinueResult, error) {
	path := fmt.Sprintf("sessions/%s/message", url.PathEscape(sessionID))
	raw, err := r.t.Do(ctx, http.MethodPost, path, nil, map[string]string{"message": text})
	if err != nil {
		return nil, wrap("continue session", err)
	}

	if IsDegraded(raw) {
		r.log.Warn("degraded response", "session_id", sessionID)
		return &ContinueResult{Degraded: true}, nil
	}

	res := &ContinueResult{
		Assistant:      r.mapper.Reply(raw),
		SymptomSummary: raw["symptom_summary"],
	}
	res.Progress, res.ProgressFields = ContinuationProgress(raw)
	return res, nil
}

// LoadHistory reads the message history, falling back to the legacy history source when
// the primary one has no messages.
func (r *Repo) LoadHistory(ctx context.Context, sessionID string) (*History, error) {
	raw, source, err := r.history.Run(ctx, r.t, sessionID, func(p Payload) bool {
		return len(historyMessages(p)) > 0
	})
	if err != nil {
		return nil, err
	}

	h := &History{Messages: []Message{}, Source: source}
	if raw == nil {
		return h, nil
	}
	h.Messages = r.mapper.MapAll(historyMessages(raw))
	h.SymptomSummary = raw["symptom_summary"]

	if nested, ok := raw["progress"].(map[string]any); ok {
		snap := snapshotFromEnvelope(nested)
		h.Progress = &snap
	} else if nested, ok := raw["progress_snapshot"].(map[string]any); ok {
		snap := NormalizeSnapshot(nested)
		h.Progress = &snap
	} else if state, ok := raw["session_state"].(map[string]any); ok {
		if nested, ok := state["progress_snapshot"].(map[string]any); ok {
			snap := NormalizeSnapshot(nested)
			h.Progress = &snap
		}
	}
	if h.Progress != nil && h.Progress.ModuleTimeline == nil {
		if list, ok := raw["module_timeline"].([]any); ok {
			h.Progress.ModuleTimeline = list
		}
	}
	return h, nil
}

// Delete is idempotent: a session the backend no longer knows counts as deleted.
func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.t.Do(ctx, http.MethodDelete, "sessions/"+url.PathEscape(sessionID), nil, nil)
	if err == nil {
		return nil
	}
	if Classify(err) == KindNotFound {
		r.log.Debug("delete of absent session treated as success", "session_id", sessionID)
		return nil
	}
	return wrap("delete session", err)
}

func historyMessages(raw Payload) []any {
	for _, k := range []string{"messages", "history", "data"} {
		if list, ok := raw[k].([]any); ok {
			return list
		}
	}
	return nil
}
