package assessment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/suPer8Hu/assessment-client/internal/common"
	"github.com/suPer8Hu/assessment-client/internal/logger"
)

const (
	msgAccessDenied    = "Access denied. You do not have permission to access this session."
	msgListFailed      = "Failed to load sessions. Please try again."
	msgStartFailed     = "Failed to start a new assessment. Please try again."
	msgLoadNotFound    = "Session not found. It may have been deleted."
	msgLoadFailed      = "Failed to load session. Please try again."
	msgProgressFailed  = "Progress could not be loaded for this session."
	msgDeleteFailed    = "Failed to delete session. Please try again."
	msgSessionNotFound = "Session not found."
)

type Options struct {
	PageSize int
	// Confirm is asked before every delete. Nil denies.
	Confirm Confirmer
	Events  EventSink
	Mirror  Mirror
	Mapper  *MessageMapper
	Log     *logger.Logger
}

// Orchestrator drives the session lifecycle and exposes the view-model:
//
//	NoSession -> Starting -> Active -> Viewing (once complete)
//	NoSession/Active/Viewing -> Loading -> Active | Viewing
//
// Every operation records user-facing failures in the view-model's error and
// returns the underlying error as well.
type Orchestrator struct {
	state   *State
	sync    *Synchronizer
	repo    *Repo
	fetcher *ProgressFetcher
	loader  *ProgressFetcher
	list    *ListController
	conv    *Conversation
	confirm Confirmer
	events  EventSink
	mirror  Mirror
	log     *logger.Logger

	mu      sync.Mutex
	pending *pendingOp
}

type pendingOp struct {
	name string
	run  func(ctx context.Context) error
}

func NewOrchestrator(t Transport, opts Options) *Orchestrator {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	mapper := opts.Mapper
	if mapper == nil {
		mapper = NewMessageMapper()
	}
	confirm := opts.Confirm
	if confirm == nil {
		confirm = ConfirmFunc(func(context.Context, Session) bool { return false })
	}
	events := opts.Events
	if events == nil {
		events = nopSink{}
	}
	mirror := opts.Mirror
	if mirror == nil {
		mirror = nopMirror{}
	}

	state := NewState(opts.PageSize)
	syn := NewSynchronizer(state)
	repo := NewRepo(t, mapper, log)
	return &Orchestrator{
		state:   state,
		sync:    syn,
		repo:    repo,
		fetcher: NewProgressFetcher(t, log),
		loader:  NewProgressFetcher(t, log).WithChain(LoadProgressChain),
		list:    NewListController(repo, syn, state, log),
		conv:    NewConversation(repo, mapper, syn, state, log),
		confirm: confirm,
		events:  events,
		mirror:  mirror,
		log:     log.With("service", "Orchestrator"),
	}
}

func (o *Orchestrator) View() ViewModel {
	return o.state.View()
}

// Refresh reloads the current list page.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	pg := o.state.Pagination()
	return o.refreshPage(ctx, pg.Page, pg.PageSize)
}

func (o *Orchestrator) refreshPage(ctx context.Context, page, pageSize int) error {
	o.state.setError("")
	if err := o.list.Refresh(ctx, page, pageSize); err != nil {
		o.listFailed(err, page, pageSize)
		return err
	}
	o.listLoaded(ctx)
	return nil
}

// Paginate is a no-op when target resolves to the current page.
func (o *Orchestrator) Paginate(ctx context.Context, target PageTarget) error {
	pg := o.state.Pagination()
	changed, err := o.list.Paginate(ctx, target)
	if err != nil {
		o.listFailed(err, target.resolve(pg.Page, pg.TotalPages), pg.PageSize)
		return err
	}
	if changed {
		o.state.setError("")
		o.listLoaded(ctx)
	}
	return nil
}

func (o *Orchestrator) ChangePageSize(ctx context.Context, n int) error {
	err := o.list.ChangePageSize(ctx, n)
	switch {
	case errors.Is(err, ErrInvalidPageSize):
		return err
	case err != nil:
		o.listFailed(err, 1, n)
		return err
	}
	o.state.setError("")
	o.listLoaded(ctx)
	return nil
}

func (o *Orchestrator) listFailed(err error, page, pageSize int) {
	o.state.setError(describe(err, "", msgListFailed))
	o.failed("refresh", func(ctx context.Context) error { return o.refreshPage(ctx, page, pageSize) })
}

func (o *Orchestrator) listLoaded(ctx context.Context) {
	o.succeeded()
	o.mirrorList(ctx)
}

// StartNew creates a session, makes it active with its greeting and puts it at the head
// of the list. Off page 1 the list is then reloaded from page 1 to fix the counters.
func (o *Orchestrator) StartNew(ctx context.Context) (*Session, error) {
	o.state.setError("")
	prev := o.state.Phase()
	o.state.setPhase(PhaseStarting)

	res, err := o.repo.Start(ctx)
	if err != nil {
		o.state.restorePhase(PhaseStarting, prev)
		o.state.setError(describe(err, "", msgStartFailed))
		o.failed("start", func(ctx context.Context) error {
			_, err := o.StartNew(ctx)
			return err
		})
		return nil, err
	}
	o.succeeded()

	sess := res.Session
	sess.ProgressPercentage = 0
	sess.ProgressSnapshot = nil
	sess.Status = StatusInProgress

	o.state.insertHead(sess)
	o.state.beginLoad(sess, PhaseStarting)
	o.state.replaceMessages(sess.ID, []Message{res.Greeting})
	initial := NormalizeSnapshot(nil)
	if res.InitialProgress != nil {
		initial = *res.InitialProgress
	}
	o.sync.Fuse(sess, initial, res.SymptomSummary)
	o.emit(ctx, EventProgressFused, sess.ID, map[string]any{"source": "start"})
	o.state.settlePhase(sess.ID)

	o.log.Info("session started", "session_id", sess.ID)
	o.emit(ctx, EventSessionStarted, sess.ID, nil)

	if o.state.Pagination().Page != 1 {
		if err := o.list.Refresh(ctx, 1, o.state.Pagination().PageSize); err != nil {
			o.log.Warn("list reconcile after start failed", "session_id", sess.ID, "error", err)
		}
	}

	out, ok := o.state.current(sess.ID)
	if !ok {
		out = sess
	}
	o.mirrorSession(ctx, out, []Message{res.Greeting})
	return &out, nil
}

// Load opens a session already present in the list: history first, then progress from
// the history payload or, failing that, the progress fallback chain.
func (o *Orchestrator) Load(ctx context.Context, id string) error {
	o.state.setError("")
	sess, ok := o.state.lookup(id)
	if !ok {
		o.state.setError(msgSessionNotFound)
		return &Error{Op: "load session", Kind: KindNotFound, Detail: "session is not in the loaded list"}
	}

	token := o.state.beginLoad(sess, PhaseLoading)
	h, err := o.repo.LoadHistory(ctx, id)
	if !o.state.isCurrentLoad(id, token) {
		o.log.Debug("history for superseded load dropped", "session_id", id)
		return nil
	}
	if err != nil {
		o.state.settlePhase(id)
		o.state.setError(describe(err, msgLoadNotFound, msgLoadFailed))
		o.failed("load", func(ctx context.Context) error { return o.Load(ctx, id) })
		return err
	}
	o.state.replaceMessages(id, h.Messages)
	o.succeeded()

	source := h.Source
	if h.Progress != nil {
		o.sync.FuseByID(id, *h.Progress, h.SymptomSummary)
		o.emit(ctx, EventProgressFused, id, map[string]any{"source": h.Source})
	} else {
		pr, err := o.loader.Fetch(ctx, id)
		switch {
		case !o.state.isCurrentLoad(id, token):
			return nil
		case err != nil:
			o.state.setError(describe(err, "", msgProgressFailed))
			o.failed("load", func(ctx context.Context) error { return o.Load(ctx, id) })
		case pr != nil:
			o.sync.FuseByID(id, pr.Snapshot, pr.SymptomSummary)
			o.emit(ctx, EventProgressFused, id, map[string]any{"source": pr.Source})
			source = pr.Source
		}
	}
	o.state.settlePhase(id)

	o.log.Info("session loaded", "session_id", id, "messages", len(h.Messages), "source", source)
	o.emit(ctx, EventSessionLoaded, id, map[string]any{"messages": len(h.Messages)})
	if cur, ok := o.state.current(id); ok {
		o.mirrorSession(ctx, cur, nil)
	}
	if err := o.mirror.SaveMessages(ctx, id, h.Messages); err != nil {
		o.log.Warn("mirror save messages failed", "session_id", id, "error", err)
	}
	return nil
}

// RefreshProgress re-reads progress for the active session. No progress yet is not an error.
func (o *Orchestrator) RefreshProgress(ctx context.Context) (*FuseResult, error) {
	id := o.state.ActiveID()
	if id == "" {
		return nil, ErrNoActiveSession
	}
	pr, err := o.fetcher.Fetch(ctx, id)
	if err != nil {
		o.state.setError(describe(err, "", msgProgressFailed))
		return nil, err
	}
	if pr == nil {
		return nil, nil
	}
	fr, ok := o.sync.FuseByID(id, pr.Snapshot, pr.SymptomSummary)
	if !ok {
		return nil, nil
	}
	o.emit(ctx, EventProgressFused, id, map[string]any{"source": pr.Source, "percentage": fr.UIProgress})
	o.mirrorSession(ctx, fr.Session, nil)
	return &fr, nil
}

// Delete asks the Confirmer, deletes on the backend (absent counts as deleted) and drops
// the session locally. Deleting the active session clears the whole active slot.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	sess, ok := o.state.current(id)
	if !ok {
		sess = Session{ID: id}
	}
	if !o.confirm.Confirm(ctx, sess) {
		return ErrDeleteCancelled
	}

	return o.deleteConfirmed(ctx, id)
}

func (o *Orchestrator) deleteConfirmed(ctx context.Context, id string) error {
	o.state.setError("")
	if err := o.repo.Delete(ctx, id); err != nil {
		o.state.setError(describe(err, "", msgDeleteFailed))
		o.failed("delete", func(ctx context.Context) error { return o.deleteConfirmed(ctx, id) })
		return err
	}
	o.succeeded()
	o.afterDelete(ctx, id)
	return nil
}

func (o *Orchestrator) afterDelete(ctx context.Context, id string) {
	wasActive := o.state.removeSession(id)
	o.log.Info("session deleted", "session_id", id, "was_active", wasActive)
	o.emit(ctx, EventSessionDeleted, id, map[string]any{"was_active": wasActive})
	if err := o.mirror.DeleteSession(ctx, id); err != nil {
		o.log.Warn("mirror delete failed", "session_id", id, "error", err)
	}
}

// Send posts text on the active session.
func (o *Orchestrator) Send(ctx context.Context, text string) (*SendResult, error) {
	id := o.state.ActiveID()
	if id == "" {
		return nil, ErrNoActiveSession
	}
	res, err := o.conv.Send(ctx, id, text)
	return o.afterSend(ctx, id, text, res, err)
}

func (o *Orchestrator) resend(ctx context.Context, id, text string) error {
	res, err := o.conv.resend(ctx, id, text)
	_, err = o.afterSend(ctx, id, text, res, err)
	return err
}

func (o *Orchestrator) afterSend(ctx context.Context, id, text string, res *SendResult, err error) (*SendResult, error) {
	if errors.Is(err, ErrSendInFlight) || (res == nil && err == nil) {
		return res, err
	}

	msgs := []Message{res.User}
	if res.Assistant != nil {
		msgs = append(msgs, *res.Assistant)
	}
	if merr := o.mirror.AppendMessages(ctx, id, msgs...); merr != nil {
		o.log.Warn("mirror append failed", "session_id", id, "error", merr)
	}

	if err != nil {
		if retryableSend(err) {
			o.failed("send", func(ctx context.Context) error { return o.resend(ctx, id, text) })
		}
		return res, err
	}
	o.succeeded()

	o.emit(ctx, EventMessageSent, id, map[string]any{"degraded": res.Degraded})
	if res.Fused != nil {
		o.emit(ctx, EventProgressFused, id, map[string]any{
			"source":     "continue",
			"percentage": res.Fused.UIProgress,
			"complete":   res.Fused.Session.Status == StatusCompleted,
		})
		o.mirrorSession(ctx, res.Fused.Session, nil)
	}
	return res, nil
}

// Retry re-runs the last failed operation, or refreshes the list when nothing failed.
// A failed send is sent again without a second copy of the user's message.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	op := o.pending
	o.pending = nil
	o.mu.Unlock()

	o.state.setError("")
	if op == nil {
		return o.Refresh(ctx)
	}
	o.log.Info("retrying", "op", op.name)
	return op.run(ctx)
}

func (o *Orchestrator) failed(name string, run func(ctx context.Context) error) {
	o.mu.Lock()
	o.pending = &pendingOp{name: name, run: run}
	o.mu.Unlock()
}

func (o *Orchestrator) succeeded() {
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
}

func (o *Orchestrator) emit(ctx context.Context, typ, sessionID string, data map[string]any) {
	e := Event{ID: common.NewULID(), Type: typ, SessionID: sessionID, At: time.Now().UTC(), Data: data}
	if err := o.events.Publish(ctx, e); err != nil {
		o.log.Warn("event publish failed", "type", typ, "session_id", sessionID, "error", err)
	}
}

func (o *Orchestrator) mirrorSession(ctx context.Context, s Session, msgs []Message) {
	if err := o.mirror.SaveSession(ctx, s); err != nil {
		o.log.Warn("mirror save session failed", "session_id", s.ID, "error", err)
		return
	}
	if msgs == nil {
		return
	}
	if err := o.mirror.SaveMessages(ctx, s.ID, msgs); err != nil {
		o.log.Warn("mirror save messages failed", "session_id", s.ID, "error", err)
	}
}

func (o *Orchestrator) mirrorList(ctx context.Context) {
	for _, s := range o.state.View().Sessions {
		if err := o.mirror.SaveSession(ctx, s); err != nil {
			o.log.Warn("mirror save session failed", "session_id", s.ID, "error", err)
			return
		}
	}
}

// describe picks the user-facing text for a failed operation.
func describe(err error, notFound, fallback string) string {
	switch Classify(err) {
	case KindAccessDenied:
		return msgAccessDenied
	case KindUnavailable:
		return msgUnavailable
	case KindNotFound:
		if notFound != "" {
			return notFound
		}
	}
	if d := DetailOf(err); d != "" {
		return d
	}
	return fallback
}
