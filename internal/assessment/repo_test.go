package assessment

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestRepoList_SendsPagingQuery(t *testing.T) {
	ft := newFakeTransport().on(http.MethodGet, "sessions", Payload{
		"sessions":    []any{map[string]any{"id": "s1"}, map[string]any{"id": "s2"}},
		"total_pages": 1.0,
	})
	page, err := NewRepo(ft, nil, nil).List(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(page.Sessions))
	}
	q := ft.lastCall().query
	if q.Get("page") != "1" || q.Get("page_size") != "20" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestRepoStart_FlexibleShapes(t *testing.T) {
	ft := newFakeTransport().on(http.MethodPost, "sessions/start", Payload{
		"session_id": "s9",
		"greeting":   "Hi, I'm here to help.",
		"progress":   map[string]any{"overall_percentage": 0.0, "module_sequence": []any{"intake", "mood"}},
	})
	res, err := NewRepo(ft, nil, nil).Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Session.ID != "s9" || res.Greeting.Content != "Hi, I'm here to help." || res.Greeting.Role != RoleAssistant {
		t.Fatalf("unexpected start result: %+v", res)
	}
	if res.InitialProgress == nil || len(res.InitialProgress.ModuleSequence) != 2 {
		t.Fatalf("expected initial progress, got %+v", res.InitialProgress)
	}

	ft = newFakeTransport().on(http.MethodPost, "sessions/start", Payload{
		"session": map[string]any{"id": "s10", "title": "Check-in"},
		"message": "Welcome back.",
	})
	res, err = NewRepo(ft, nil, nil).Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Session.ID != "s10" || res.Session.Title != "Check-in" || res.Greeting.Content != "Welcome back." {
		t.Fatalf("unexpected nested start result: %+v", res)
	}

	ft = newFakeTransport().on(http.MethodPost, "sessions/start", Payload{"greeting": "hi"})
	if _, err := NewRepo(ft, nil, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected an error without a session id")
	}
}

func TestRepoContinue_DegradedIsNotAnError(t *testing.T) {
	ft := newFakeTransport().on(http.MethodPost, "sessions/s1/message", Payload{
		"response": "partial",
		"metadata": map[string]any{"degraded_mode": true},
	})
	res, err := NewRepo(ft, nil, nil).Continue(context.Background(), "s1", "hello")
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if !res.Degraded {
		t.Fatalf("expected degraded flag")
	}
	body, _ := ft.lastCall().body.(map[string]string)
	if body["message"] != "hello" {
		t.Fatalf("unexpected request body %v", ft.lastCall().body)
	}
}

func TestRepoContinue_ClassifiesFailures(t *testing.T) {
	for code, want := range map[int]error{
		http.StatusForbidden:          ErrAccessDenied,
		http.StatusNotFound:           ErrNotFound,
		http.StatusServiceUnavailable: ErrUnavailable,
	} {
		ft := newFakeTransport().fail(http.MethodPost, "sessions/s1/message", code, "")
		_, err := NewRepo(ft, nil, nil).Continue(context.Background(), "s1", "hello")
		if !errors.Is(err, want) {
			t.Errorf("status %d: expected %v, got %v", code, want, err)
		}
	}
}

func TestRepoLoadHistory_FallsBackToLegacyWhenEmpty(t *testing.T) {
	ft := newFakeTransport().
		on(http.MethodGet, "sessions/s1/history", Payload{"messages": []any{}}).
		on(http.MethodGet, "sessions/s1/history-legacy", Payload{
			"messages":        []any{map[string]any{"role": "user", "content": "hi"}},
			"session_state":   map[string]any{"progress_snapshot": map[string]any{"overall_percentage": 20.0}},
			"module_timeline": []any{"intake"},
		})

	h, err := NewRepo(ft, nil, nil).LoadHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if h.Source != "history-legacy" || len(h.Messages) != 1 {
		t.Fatalf("unexpected history: %+v", h)
	}
	if h.Progress == nil || h.Progress.OverallPercentage != 20 || len(h.Progress.ModuleTimeline) != 1 {
		t.Fatalf("unexpected progress: %+v", h.Progress)
	}
}

func TestRepoLoadHistory_LegacyFailureSettlesEmpty(t *testing.T) {
	ft := newFakeTransport().
		on(http.MethodGet, "sessions/s1/history", Payload{"messages": []any{}}).
		fail(http.MethodGet, "sessions/s1/history-legacy", http.StatusInternalServerError, "")

	h, err := NewRepo(ft, nil, nil).LoadHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(h.Messages) != 0 || h.Progress != nil {
		t.Fatalf("expected empty history, got %+v", h)
	}
}

func TestRepoLoadHistory_KeepsPrimaryProgressWhenLegacyFails(t *testing.T) {
	ft := newFakeTransport().
		on(http.MethodGet, "sessions/s1/history", Payload{
			"messages": []any{},
			"progress": map[string]any{"overall_percentage": 55.0},
		}).
		fail(http.MethodGet, "sessions/s1/history-legacy", http.StatusInternalServerError, "")

	h, err := NewRepo(ft, nil, nil).LoadHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if h.Source != "history" || len(h.Messages) != 0 {
		t.Fatalf("expected the primary payload, got %+v", h)
	}
	if h.Progress == nil || h.Progress.OverallPercentage != 55 {
		t.Fatalf("embedded progress lost: %+v", h.Progress)
	}
}

func TestRepoLoadHistory_EscapesSessionID(t *testing.T) {
	ft := newFakeTransport().on(http.MethodGet, "sessions/a%2Fb/history", Payload{
		"messages": []any{map[string]any{"role": "user", "content": "hi"}},
	})

	h, err := NewRepo(ft, nil, nil).LoadHistory(context.Background(), "a/b")
	if err != nil || len(h.Messages) != 1 {
		t.Fatalf("expected escaped history path, got %+v, %v", h, err)
	}
}

func TestRepoDelete_Idempotent(t *testing.T) {
	ft := newFakeTransport().
		on(http.MethodDelete, "sessions/s1", Payload{}).
		fail(http.MethodDelete, "sessions/s1", http.StatusNotFound, "gone")
	repo := NewRepo(ft, nil, nil)

	for i := 0; i < 2; i++ {
		if err := repo.Delete(context.Background(), "s1"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}

	ft = newFakeTransport().fail(http.MethodDelete, "sessions/s1", http.StatusForbidden, "")
	if err := NewRepo(ft, nil, nil).Delete(context.Background(), "s1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}
