package assessment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeSnapshot_EmptyInputsGetDefaults(t *testing.T) {
	want := ProgressSnapshot{ModuleSequence: []string{}, ModuleStatus: []ModuleStatus{}}
	for name, raw := range map[string]Payload{
		"nil":        nil,
		"empty":      {},
		"unknown":    {"foo": "bar", "count": 3.0},
		"wrong type": {"overall_percentage": []any{1.0}, "module_sequence": "intake"},
	} {
		got := NormalizeSnapshot(raw)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: snapshot mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestNormalizeSnapshot_ClampsPercentage(t *testing.T) {
	cases := []struct {
		raw  Payload
		want float64
	}{
		{Payload{"overall_percentage": -5.0}, 0},
		{Payload{"overall_percentage": 150.0}, 100},
		{Payload{"progress_percentage": 42.5}, 42.5},
		{Payload{"overall": "73%"}, 73},
		{Payload{"overall_percentage": 10.0, "progress_percentage": 90.0}, 10},
	}
	for _, c := range cases {
		if got := NormalizeSnapshot(c.raw).OverallPercentage; got != c.want {
			t.Errorf("NormalizeSnapshot(%v).OverallPercentage = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestNormalizeSnapshot_AlternateNames(t *testing.T) {
	got := NormalizeSnapshot(Payload{
		"currentModule": "sleep",
		"nextModule":    "mood",
		"modules":       []any{"intake", map[string]any{"name": "sleep"}, "mood"},
		"module_status": map[string]any{"mood": "pending", "intake": "completed", "sleep": "in_progress"},
		"timeline":      []any{map[string]any{"module": "intake"}},
		"status":        "completed",
	})

	cur, next := "sleep", "mood"
	want := ProgressSnapshot{
		CurrentModule:  &cur,
		NextModule:     &next,
		ModuleSequence: []string{"intake", "sleep", "mood"},
		ModuleStatus: []ModuleStatus{
			{Module: "intake", Status: "completed"},
			{Module: "sleep", Status: "in_progress"},
			{Module: "mood", Status: "pending"},
		},
		ModuleTimeline: []any{map[string]any{"module": "intake"}},
		IsComplete:     true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestContinuationProgress(t *testing.T) {
	if embedded, fields := ContinuationProgress(Payload{"response": "hi"}); embedded != nil || fields != nil {
		t.Fatalf("expected no progress without progress fields, got %+v %v", embedded, fields)
	}

	raw := Payload{"response": "hi", "current_module": "sleep", "progress_percentage": 30.0}
	embedded, fields := ContinuationProgress(raw)
	if embedded != nil || fields == nil {
		t.Fatalf("expected discrete fields, got %+v %v", embedded, fields)
	}

	embedded, fields = ContinuationProgress(Payload{
		"progress_percentage": 10.0,
		"progress_snapshot":   map[string]any{"overall_percentage": 55.0},
	})
	if embedded == nil || fields != nil || embedded.OverallPercentage != 55 {
		t.Fatalf("embedded snapshot should win, got %+v %v", embedded, fields)
	}
}

func TestOverlaySnapshot_KeepsFieldsTheReplyOmits(t *testing.T) {
	intake := "intake"
	base := ProgressSnapshot{
		OverallPercentage: 40,
		CurrentModule:     &intake,
		NextModule:        &intake,
		ModuleSequence:    []string{"intake", "mood"},
		ModuleStatus:      []ModuleStatus{{Module: "intake", Status: "active"}, {Module: "mood", Status: "pending"}},
		IsComplete:        true,
	}

	got := OverlaySnapshot(base, Payload{"response": "ok", "current_module": "mood"})

	mood := "mood"
	want := base.clone()
	want.CurrentModule = &mood
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("overlay mismatch (-want +got):\n%s", diff)
	}

	got = OverlaySnapshot(base, Payload{"progress_percentage": 130.0, "is_complete": false})
	if got.OverallPercentage != 100 || got.IsComplete || *got.CurrentModule != "intake" {
		t.Fatalf("expected percentage and completion replaced, got %+v", got)
	}
	if base.OverallPercentage != 40 || !base.IsComplete {
		t.Fatalf("base must not be modified: %+v", base)
	}
}

func TestSessionPageFromPayload_PaginationBlock(t *testing.T) {
	sessions, pg := SessionPageFromPayload(Payload{
		"sessions": []any{
			map[string]any{"id": "s1", "title": "First"},
			map[string]any{"title": "no id"},
			"garbage",
		},
		"pagination": map[string]any{"page": 2.0, "pageSize": 5.0, "totalPages": 3.0, "totalSessions": 12.0},
	}, 1, 10)

	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	want := Pagination{Page: 2, PageSize: 5, TotalPages: 3, TotalSessions: 12, HasNext: true, HasPrevious: true}
	if diff := cmp.Diff(want, pg); diff != "" {
		t.Fatalf("pagination mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionPageFromPayload_DerivedPagination(t *testing.T) {
	_, pg := SessionPageFromPayload(Payload{
		"sessions":       []any{map[string]any{"id": "s1"}},
		"total_sessions": 21.0,
	}, 1, 10)
	if pg.TotalPages != 3 || !pg.HasNext || pg.HasPrevious {
		t.Fatalf("unexpected derived pagination: %+v", pg)
	}

	// has_next is recomputed from page/totalPages, never trusted on its own
	_, pg = SessionPageFromPayload(Payload{
		"sessions":    []any{},
		"total_pages": 1.0,
		"has_next":    true,
	}, 1, 10)
	if pg.HasNext {
		t.Fatalf("has_next must agree with total_pages: %+v", pg)
	}
}

func TestNewPagination_ClampsPage(t *testing.T) {
	for _, c := range []struct{ page, pages, want int }{
		{0, 3, 1}, {-5, 3, 1}, {9, 3, 3}, {2, 0, 1},
	} {
		if got := NewPagination(c.page, 10, c.pages, 0).Page; got != c.want {
			t.Errorf("NewPagination(page=%d, pages=%d).Page = %d, want %d", c.page, c.pages, got, c.want)
		}
	}
}
