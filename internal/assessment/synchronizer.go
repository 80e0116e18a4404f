package assessment

type FuseResult struct {
	UIProgress float64
	Session    Session
}

// Synchronizer is the one path through which progress reaches the session list and the
// active session.
type Synchronizer struct {
	state *State
}

func NewSynchronizer(state *State) *Synchronizer {
	return &Synchronizer{state: state}
}

// Fuse merges snap into sess and writes the result to every view of that session.
// The server copy passed in wins over anything cached locally.
func (s *Synchronizer) Fuse(sess Session, snap ProgressSnapshot, summary any) FuseResult {
	res := fuse(sess, snap, summary)
	s.state.mu.Lock()
	s.state.applyFusedLocked(res.Session)
	s.state.mu.Unlock()
	return res
}

// FuseByID fuses onto the freshest local copy of the session in one critical section.
// ok is false when the session is no longer known locally.
func (s *Synchronizer) FuseByID(id string, snap ProgressSnapshot, summary any) (FuseResult, bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	base, ok := s.state.currentLocked(id)
	if !ok {
		return FuseResult{}, false
	}
	res := fuse(base, snap, summary)
	s.state.applyFusedLocked(res.Session)
	return res, true
}

// FuseFieldsByID lays discrete progress fields over the session's current snapshot and
// fuses the result. Fields the reply leaves out keep their known values.
func (s *Synchronizer) FuseFieldsByID(id string, fields Payload, summary any) (FuseResult, bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	base, ok := s.state.currentLocked(id)
	if !ok {
		return FuseResult{}, false
	}
	res := fuse(base, OverlaySnapshot(snapshotOf(base), fields), summary)
	s.state.applyFusedLocked(res.Session)
	return res, true
}

// ReplaceList fuses every server entry that carries a snapshot and installs the page,
// reconciling the active session against it. It reports false when a newer refresh
// superseded this one.
func (s *Synchronizer) ReplaceList(seq uint64, sessions []Session, pg Pagination) bool {
	fused := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.ProgressSnapshot != nil {
			sess = fuse(sess, *sess.ProgressSnapshot, sess.SymptomSummary).Session
		}
		fused = append(fused, sess)
	}
	return s.state.finishListLoad(seq, fused, pg)
}

// fuse is the merge policy. Empty module lists in snap keep the structure the session
// already knows, a nil timeline keeps the existing audit list, and a nil summary keeps
// the previous summary. Status follows IsComplete.
func fuse(sess Session, snap ProgressSnapshot, summary any) FuseResult {
	out := sess.clone()
	merged := snap.clone()

	if len(merged.ModuleSequence) == 0 && len(out.ModuleSequence) > 0 {
		merged.ModuleSequence = append([]string{}, out.ModuleSequence...)
	}
	if len(merged.ModuleStatus) == 0 && len(out.ModuleStatus) > 0 {
		merged.ModuleStatus = append([]ModuleStatus{}, out.ModuleStatus...)
	}
	if merged.ModuleTimeline == nil && out.ModuleTimeline != nil {
		merged.ModuleTimeline = append([]any{}, out.ModuleTimeline...)
	}

	out.ProgressSnapshot = &merged
	out.ProgressPercentage = merged.OverallPercentage
	out.ModuleSequence = append([]string{}, merged.ModuleSequence...)
	out.ModuleStatus = append([]ModuleStatus{}, merged.ModuleStatus...)
	out.ModuleTimeline = nil
	if merged.ModuleTimeline != nil {
		out.ModuleTimeline = append([]any{}, merged.ModuleTimeline...)
	}
	out.CurrentModule = merged.CurrentModule
	out.NextModule = merged.NextModule
	if summary != nil {
		out.SymptomSummary = summary
	}
	out.Status = StatusInProgress
	if merged.IsComplete {
		out.Status = StatusCompleted
	}

	return FuseResult{UIProgress: merged.OverallPercentage, Session: out}
}

// snapshotOf is the session's progress as a snapshot, rebuilt from its flat fields when no
// snapshot has been fused yet.
func snapshotOf(sess Session) ProgressSnapshot {
	if sess.ProgressSnapshot != nil {
		return sess.ProgressSnapshot.clone()
	}
	snap := ProgressSnapshot{
		OverallPercentage: sess.ProgressPercentage,
		CurrentModule:     sess.CurrentModule,
		NextModule:        sess.NextModule,
		ModuleSequence:    append([]string{}, sess.ModuleSequence...),
		ModuleStatus:      append([]ModuleStatus{}, sess.ModuleStatus...),
		IsComplete:        sess.Status == StatusCompleted,
	}
	if sess.ModuleTimeline != nil {
		snap.ModuleTimeline = append([]any{}, sess.ModuleTimeline...)
	}
	return snap
}
