package assessment

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Field priority chains. The first key holding a usable value wins.
var (
	percentageKeys     = []string{"overall_percentage", "progress_percentage", "overall"}
	currentModuleKeys  = []string{"current_module", "currentModule", "module"}
	nextModuleKeys     = []string{"next_module", "nextModule"}
	moduleSequenceKeys = []string{"module_sequence", "moduleSequence", "modules"}
	moduleStatusKeys   = []string{"module_status", "moduleStatus", "module_statuses"}
	moduleTimelineKeys = []string{"module_timeline", "moduleTimeline", "timeline"}
	isCompleteKeys     = []string{"is_complete", "isComplete", "completed", "assessment_complete"}
)

// progressKeys are the discrete continuation fields that can stand in for an embedded snapshot.
var progressKeys = []string{
	"overall_percentage", "progress_percentage", "current_module", "next_module",
	"module_sequence", "module_status", "is_complete", "assessment_complete",
}

// NormalizeSnapshot turns any progress payload (or nil) into a fully populated snapshot.
// It never panics; malformed fields fall back to their defaults.
func NormalizeSnapshot(raw Payload) ProgressSnapshot {
	snap := ProgressSnapshot{
		ModuleSequence: []string{},
		ModuleStatus:   []ModuleStatus{},
	}
	if raw == nil {
		return snap
	}

	for _, k := range percentageKeys {
		if f, ok := toFloat(raw[k]); ok {
			snap.OverallPercentage = clampPercentage(f)
			break
		}
	}
	snap.CurrentModule = firstString(raw, currentModuleKeys...)
	snap.NextModule = firstString(raw, nextModuleKeys...)

	for _, k := range moduleSequenceKeys {
		if seq, ok := toStringSlice(raw[k]); ok {
			snap.ModuleSequence = seq
			break
		}
	}
	for _, k := range moduleStatusKeys {
		if st, ok := toModuleStatus(raw[k], snap.ModuleSequence); ok {
			snap.ModuleStatus = st
			break
		}
	}
	for _, k := range moduleTimelineKeys {
		if list, ok := raw[k].([]any); ok {
			snap.ModuleTimeline = list
			break
		}
	}

	complete, found := false, false
	for _, k := range isCompleteKeys {
		if b, ok := toBool(raw[k]); ok {
			complete, found = b, true
			break
		}
	}
	if !found {
		if st, ok := raw["status"].(string); ok {
			complete = isCompletedStatus(st)
		}
	}
	snap.IsComplete = complete

	return snap
}

// snapshotFromEnvelope reads a snapshot nested under progress_snapshot, or at the top level.
func snapshotFromEnvelope(raw Payload) ProgressSnapshot {
	if nested, ok := raw["progress_snapshot"].(map[string]any); ok {
		return NormalizeSnapshot(nested)
	}
	return NormalizeSnapshot(raw)
}

// ContinuationProgress splits the progress information of a message-continuation payload.
// An embedded snapshot is returned whole. Without one, fields is the payload itself when it
// carries any discrete progress field, to be laid over the session's snapshot with
// OverlaySnapshot. Both are nil when the reply says nothing about progress.
func ContinuationProgress(raw Payload) (embedded *ProgressSnapshot, fields Payload) {
	for _, k := range []string{"progress_snapshot", "progress"} {
		if nested, isMap := raw[k].(map[string]any); isMap {
			snap := NormalizeSnapshot(nested)
			return &snap, nil
		}
	}
	for _, k := range progressKeys {
		if v, present := raw[k]; present && v != nil {
			return nil, raw
		}
	}
	return nil, nil
}

// OverlaySnapshot copies base and replaces only the fields fields actually carries, so a
// reply naming just the current module keeps the known percentage and completion.
func OverlaySnapshot(base ProgressSnapshot, fields Payload) ProgressSnapshot {
	out := base.clone()
	if f, ok := firstFloat(fields, percentageKeys...); ok {
		out.OverallPercentage = clampPercentage(f)
	}
	if m := firstString(fields, currentModuleKeys...); m != nil {
		out.CurrentModule = m
	}
	if m := firstString(fields, nextModuleKeys...); m != nil {
		out.NextModule = m
	}
	for _, k := range moduleSequenceKeys {
		if seq, ok := toStringSlice(fields[k]); ok && len(seq) > 0 {
			out.ModuleSequence = seq
			break
		}
	}
	for _, k := range moduleStatusKeys {
		if st, ok := toModuleStatus(fields[k], out.ModuleSequence); ok && len(st) > 0 {
			out.ModuleStatus = st
			break
		}
	}
	for _, k := range moduleTimelineKeys {
		if list, ok := fields[k].([]any); ok {
			out.ModuleTimeline = list
			break
		}
	}
	if b, ok := firstBool(fields, isCompleteKeys...); ok {
		out.IsComplete = b
	}
	return out
}

// SessionFromPayload maps one session record. The embedded snapshot, if any, is normalized
// but not yet fused; callers route it through the Synchronizer.
func SessionFromPayload(raw Payload) Session {
	s := Session{
		Status:         StatusInProgress,
		ModuleSequence: []string{},
		ModuleStatus:   []ModuleStatus{},
	}
	if raw == nil {
		return s
	}

	if id := firstString(raw, "id", "session_id", "sessionId"); id != nil {
		s.ID = *id
	}
	if title := firstString(raw, "title", "name"); title != nil {
		s.Title = *title
	} else {
		s.Title = "Assessment Session"
	}
	if st, ok := raw["status"].(string); ok && isCompletedStatus(st) {
		s.Status = StatusCompleted
	}

	if nested, ok := raw["progress_snapshot"].(map[string]any); ok {
		snap := NormalizeSnapshot(nested)
		s.ProgressSnapshot = &snap
	}

	if f, ok := firstFloat(raw, percentageKeys...); ok {
		s.ProgressPercentage = clampPercentage(f)
	}
	if seq, ok := toStringSlice(raw["module_sequence"]); ok {
		s.ModuleSequence = seq
	}
	if st, ok := toModuleStatus(raw["module_status"], s.ModuleSequence); ok {
		s.ModuleStatus = st
	}
	if list, ok := raw["module_timeline"].([]any); ok {
		s.ModuleTimeline = list
	}
	s.CurrentModule = firstString(raw, "current_module", "currentModule")
	s.NextModule = firstString(raw, "next_module", "nextModule")
	s.SymptomSummary = raw["symptom_summary"]

	s.CreatedAt = firstTime(raw, "created_at", "createdAt", "started_at")
	s.UpdatedAt = firstTime(raw, "updated_at", "updatedAt", "last_updated", "last_activity")

	return s
}

// SessionPageFromPayload reads a list response. The pagination block is optional; missing
// values are derived from the flat total_pages/total_sessions/has_next fields, then from
// the page contents. HasNext/HasPrevious are always recomputed from Page/TotalPages.
func SessionPageFromPayload(raw Payload, page, pageSize int) ([]Session, Pagination) {
	var records []any
	for _, k := range []string{"sessions", "items", "results", "data"} {
		if list, ok := raw[k].([]any); ok {
			records = list
			break
		}
	}

	sessions := make([]Session, 0, len(records))
	for _, r := range records {
		p, ok := r.(map[string]any)
		if !ok {
			continue
		}
		s := SessionFromPayload(p)
		if s.ID == "" {
			continue
		}
		sessions = append(sessions, s)
	}

	src := raw
	if block, ok := raw["pagination"].(map[string]any); ok {
		src = block
	}

	if n, ok := firstInt(src, "page", "current_page"); ok {
		page = n
	}
	if n, ok := firstInt(src, "pageSize", "page_size", "per_page"); ok && n > 0 {
		pageSize = n
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalSessions, haveTotal := firstInt(src, "totalSessions", "total_sessions", "total")
	totalPages, havePages := firstInt(src, "totalPages", "total_pages")
	hasNext, _ := firstBool(src, "hasNext", "has_next")

	if !havePages {
		switch {
		case haveTotal:
			totalPages = pagesFor(totalSessions, pageSize)
		case hasNext:
			totalPages = page + 1
		case len(sessions) > 0 || page > 1:
			totalPages = page
		}
	}
	if !haveTotal {
		totalSessions = (page-1)*pageSize + len(sessions)
		if totalSessions < 0 {
			totalSessions = len(sessions)
		}
	}

	return sessions, NewPagination(page, pageSize, totalPages, totalSessions)
}

func isCompletedStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "complete", "finished":
		return true
	}
	return false
}

func clampPercentage(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Max(0, math.Min(100, f))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(n, "%")), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}
	return false, false
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case json.Number:
		return s.String(), true
	}
	return "", false
}

// toStringSlice accepts a list of names or a list of objects carrying module|name|id.
func toStringSlice(v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := toString(item); ok {
			out = append(out, s)
			continue
		}
		if obj, ok := item.(map[string]any); ok {
			if s := firstString(obj, "module", "name", "id"); s != nil {
				out = append(out, *s)
			}
		}
	}
	return out, true
}

// toModuleStatus accepts [{module,status}] or {module: status}. Map entries follow the
// module sequence order, then name order.
func toModuleStatus(v any, order []string) ([]ModuleStatus, bool) {
	switch st := v.(type) {
	case []any:
		out := make([]ModuleStatus, 0, len(st))
		for _, item := range st {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := firstString(obj, "module", "name", "id")
			if name == nil {
				continue
			}
			status := "pending"
			if s := firstString(obj, "status", "state"); s != nil {
				status = *s
			}
			out = append(out, ModuleStatus{Module: *name, Status: status})
		}
		return out, true
	case map[string]any:
		rank := make(map[string]int, len(order))
		for i, m := range order {
			rank[m] = i
		}
		names := make([]string, 0, len(st))
		for k := range st {
			names = append(names, k)
		}
		sort.Slice(names, func(i, j int) bool {
			ri, iok := rank[names[i]]
			rj, jok := rank[names[j]]
			switch {
			case iok && jok:
				return ri < rj
			case iok != jok:
				return iok
			}
			return names[i] < names[j]
		})
		out := make([]ModuleStatus, 0, len(names))
		for _, name := range names {
			status, ok := toString(st[name])
			if !ok {
				if obj, isObj := st[name].(map[string]any); isObj {
					if s := firstString(obj, "status", "state"); s != nil {
						status = *s
					}
				}
			}
			if status == "" {
				status = "pending"
			}
			out = append(out, ModuleStatus{Module: name, Status: status})
		}
		return out, true
	}
	return nil, false
}

func firstString(raw Payload, keys ...string) *string {
	for _, k := range keys {
		if s, ok := toString(raw[k]); ok {
			return &s
		}
	}
	return nil
}

func firstFloat(raw Payload, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(raw[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func firstInt(raw Payload, keys ...string) (int, bool) {
	f, ok := firstFloat(raw, keys...)
	return int(f), ok
}

func firstBool(raw Payload, keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := toBool(raw[k]); ok {
			return b, true
		}
	}
	return false, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	case float64:
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC(), true
		}
		return time.Unix(int64(t), 0).UTC(), true
	}
	return time.Time{}, false
}

func firstTime(raw Payload, keys ...string) time.Time {
	for _, k := range keys {
		if t, ok := parseTime(raw[k]); ok {
			return t
		}
	}
	return time.Time{}
}
