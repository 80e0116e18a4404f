package assessment

import (
	"math"
	"sync"
)

type ListStatus string

const (
	ListIdle    ListStatus = "idle"
	ListLoading ListStatus = "loading"
	ListLoaded  ListStatus = "loaded"
	ListErrored ListStatus = "errored"
)

// Phase is the lifecycle of the active-session slot.
type Phase string

const (
	PhaseNoSession Phase = "no_session"
	PhaseStarting  Phase = "starting"
	PhaseLoading   Phase = "loading"
	PhaseActive    Phase = "active"
	PhaseViewing   Phase = "viewing"
)

// ViewModel is the read-only picture handed to the presentation layer.
type ViewModel struct {
	Sessions        []Session         `json:"sessions"`
	CurrentSession  *Session          `json:"current_session"`
	Messages        []Message         `json:"messages"`
	Progress        int               `json:"progress"`
	ProgressDetails *ProgressSnapshot `json:"progress_details"`
	Pagination      Pagination        `json:"pagination"`
	Error           *string           `json:"error"`
	Phase           Phase             `json:"phase"`
	ListStatus      ListStatus        `json:"list_status"`
	Sending         bool              `json:"sending"`
}

// State is the single owned aggregate behind every controller. The session list and the
// active session are only changed through the Synchronizer or the explicit replace
// operations below, all under mu.
type State struct {
	mu sync.Mutex

	sessions   []Session
	pagination Pagination
	listStatus ListStatus
	listSeq    uint64

	active   *Session
	phase    Phase
	loadSeq  uint64
	messages []Message
	progress float64
	details  *ProgressSnapshot
	err      string
	sending  map[string]bool
}

func NewState(pageSize int) *State {
	if !IsAllowedPageSize(pageSize) {
		pageSize = DefaultPageSize
	}
	return &State{
		sessions:   []Session{},
		pagination: NewPagination(1, pageSize, 0, 0),
		listStatus: ListIdle,
		phase:      PhaseNoSession,
		messages:   []Message{},
		sending:    map[string]bool{},
	}
}

func (st *State) View() ViewModel {
	st.mu.Lock()
	defer st.mu.Unlock()

	vm := ViewModel{
		Sessions:   make([]Session, 0, len(st.sessions)),
		Messages:   append([]Message{}, st.messages...),
		Progress:   int(math.Round(st.progress)),
		Pagination: st.pagination,
		Phase:      st.phase,
		ListStatus: st.listStatus,
	}
	for _, s := range st.sessions {
		vm.Sessions = append(vm.Sessions, s.clone())
	}
	if st.active != nil {
		c := st.active.clone()
		vm.CurrentSession = &c
		vm.Sending = st.sending[c.ID]
	}
	if st.details != nil {
		d := st.details.clone()
		vm.ProgressDetails = &d
	}
	if st.err != "" {
		e := st.err
		vm.Error = &e
	}
	return vm
}

func (st *State) Pagination() Pagination {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pagination
}

func (st *State) ActiveID() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active == nil {
		return ""
	}
	return st.active.ID
}

func (st *State) Phase() Phase {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.phase
}

// current returns the freshest local copy of id.
func (st *State) current(id string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.currentLocked(id)
}

func (st *State) lookup(id string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.sessions {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Session{}, false
}

func (st *State) setError(msg string) {
	st.mu.Lock()
	st.err = msg
	st.mu.Unlock()
}

// list operations

func (st *State) beginListLoad() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listSeq++
	st.listStatus = ListLoading
	return st.listSeq
}

// finishListLoad replaces the list unless a newer refresh has been issued since seq.
// When the active session is on the page and the server sent a snapshot for it, the
// (already fused) server entry replaces the active copy in the same critical section.
func (st *State) finishListLoad(seq uint64, sessions []Session, pg Pagination) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if seq != st.listSeq {
		return false
	}
	st.sessions = make([]Session, 0, len(sessions))
	for _, s := range sessions {
		st.sessions = append(st.sessions, s.clone())
	}
	st.pagination = pg
	st.listStatus = ListLoaded

	if st.active != nil {
		for _, s := range sessions {
			if s.ID == st.active.ID && s.ProgressSnapshot != nil {
				st.applyFusedLocked(s)
				break
			}
		}
	}
	return true
}

// failListLoad drops the list to an empty, recoverable state.
func (st *State) failListLoad(seq uint64, pageSize int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if seq != st.listSeq {
		return false
	}
	st.sessions = []Session{}
	st.pagination = NewPagination(1, pageSize, 0, 0)
	st.listStatus = ListErrored
	return true
}

// insertHead puts s first in the list, dropping any stale entry with the same id.
func (st *State) insertHead(s Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Session, 0, len(st.sessions)+1)
	out = append(out, s.clone())
	dup := false
	for _, existing := range st.sessions {
		if existing.ID == s.ID {
			dup = true
			continue
		}
		out = append(out, existing)
	}
	st.sessions = out

	total := st.pagination.TotalSessions
	if !dup {
		total++
	}
	pg := st.pagination
	st.pagination = NewPagination(pg.Page, pg.PageSize, pagesFor(total, pg.PageSize), total)
}

// removeSession drops id from the list, recomputes the counters locally and clears the
// active slot when it held id. It reports whether the active session was cleared.
func (st *State) removeSession(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	found := false
	out := make([]Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		if s.ID == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	st.sessions = out

	wasActive := st.active != nil && st.active.ID == id
	if found || wasActive {
		pg := st.pagination
		total := pg.TotalSessions - 1
		if total < 0 {
			total = 0
		}
		st.pagination = NewPagination(pg.Page, pg.PageSize, pagesFor(total, pg.PageSize), total)
	}
	if wasActive {
		st.clearActiveLocked()
	}
	return wasActive
}

// active-session operations

// beginLoad makes s the active session with no messages yet and returns a token
// that later writes must present.
func (st *State) beginLoad(s Session, phase Phase) uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.loadSeq++
	c := s.clone()
	st.active = &c
	st.phase = phase
	st.messages = []Message{}
	st.progress = s.ProgressPercentage
	st.details = nil
	if s.ProgressSnapshot != nil {
		d := s.ProgressSnapshot.clone()
		st.details = &d
	}
	return st.loadSeq
}

// isCurrentLoad reports whether the slot still belongs to the load identified by token.
func (st *State) isCurrentLoad(id string, token uint64) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.active != nil && st.active.ID == id && st.loadSeq == token
}

func (st *State) setPhase(p Phase) {
	st.mu.Lock()
	st.phase = p
	st.mu.Unlock()
}

// restorePhase moves the slot back to p if nothing else has claimed it since from was set.
func (st *State) restorePhase(from, p Phase) {
	st.mu.Lock()
	if st.phase == from {
		st.phase = p
	}
	st.mu.Unlock()
}

func (st *State) settlePhase(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active == nil || st.active.ID != id {
		return
	}
	st.phase = phaseFor(*st.active)
}

func (st *State) clearActive() {
	st.mu.Lock()
	st.clearActiveLocked()
	st.mu.Unlock()
}

func (st *State) clearActiveLocked() {
	st.active = nil
	st.phase = PhaseNoSession
	st.messages = []Message{}
	st.progress = 0
	st.details = nil
}

// replaceMessages swaps the whole history, only if id is still the active session.
func (st *State) replaceMessages(id string, msgs []Message) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active == nil || st.active.ID != id {
		return false
	}
	st.messages = append([]Message{}, msgs...)
	return true
}

// appendMessage adds m to the visible history, only if id is still the active session.
func (st *State) appendMessage(id string, m Message) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active == nil || st.active.ID != id {
		return false
	}
	st.messages = append(st.messages, m)
	return true
}

func (st *State) beginSend(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sending[id] {
		return false
	}
	st.sending[id] = true
	return true
}

func (st *State) endSend(id string) {
	st.mu.Lock()
	delete(st.sending, id)
	st.mu.Unlock()
}

// fusion

// currentLocked returns the freshest copy of id: the active slot first, then the list.
func (st *State) currentLocked(id string) (Session, bool) {
	if st.active != nil && st.active.ID == id {
		return st.active.clone(), true
	}
	for _, s := range st.sessions {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Session{}, false
}

// applyFusedLocked writes a fused session to the list entry and the active slot alike.
func (st *State) applyFusedLocked(s Session) {
	for i := range st.sessions {
		if st.sessions[i].ID == s.ID {
			st.sessions[i] = s.clone()
		}
	}
	if st.active != nil && st.active.ID == s.ID {
		c := s.clone()
		st.active = &c
		st.progress = s.ProgressPercentage
		st.details = nil
		if s.ProgressSnapshot != nil {
			d := s.ProgressSnapshot.clone()
			st.details = &d
		}
		if st.phase == PhaseActive || st.phase == PhaseViewing {
			st.phase = phaseFor(s)
		}
	}
}

func phaseFor(s Session) Phase {
	if s.Status == StatusCompleted {
		return PhaseViewing
	}
	return PhaseActive
}
