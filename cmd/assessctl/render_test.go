package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/suPer8Hu/assessment-client/internal/assessment"
)

func TestProgressBar(t *testing.T) {
	cases := map[int]string{
		0:   "....................",
		50:  "##########..........",
		100: "####################",
		140: "####################",
		-5:  "....................",
	}
	for pct, want := range cases {
		if got := progressBar(pct, 20); got != want {
			t.Fatalf("progressBar(%d) = %q, want %q", pct, got, want)
		}
	}
}

func TestPrintSessions_MarksActive(t *testing.T) {
	a := assessment.Session{ID: "a", Title: "First", Status: assessment.StatusInProgress, ProgressPercentage: 40}
	b := assessment.Session{ID: "b", Status: assessment.StatusCompleted, ProgressPercentage: 100}
	vm := assessment.ViewModel{
		Sessions:       []assessment.Session{a, b},
		CurrentSession: &b,
		Pagination:     assessment.NewPagination(1, 10, 1, 2),
	}

	var buf bytes.Buffer
	printSessions(&buf, vm)
	out := buf.String()

	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "  a") || !strings.HasPrefix(lines[1], "* b") {
		t.Fatalf("expected b marked active, got:\n%s", out)
	}
	if !strings.Contains(out, "(untitled)") || !strings.Contains(out, "page 1/1  (2 sessions, 10 per page)") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
}

func TestPrintProgress_ModuleStatus(t *testing.T) {
	s := assessment.Session{ID: "s1"}
	vm := assessment.ViewModel{
		CurrentSession: &s,
		Progress:       30,
		ProgressDetails: &assessment.ProgressSnapshot{
			ModuleStatus: []assessment.ModuleStatus{{Module: "intake", Status: "completed"}, {Module: "mood", Status: "active"}},
		},
	}
	var buf bytes.Buffer
	printProgress(&buf, vm)
	if !strings.Contains(buf.String(), "30%") || !strings.Contains(buf.String(), "intake:completed  mood:active") {
		t.Fatalf("unexpected progress output %q", buf.String())
	}
}

func TestPromptConfirmer(t *testing.T) {
	var out bytes.Buffer
	confirm := promptConfirmer(strings.NewReader("yes\nn\n"), &out)
	sess := assessment.Session{ID: "s1", Title: "Check-in"}

	if !confirm(context.Background(), sess) {
		t.Fatalf("expected yes to confirm")
	}
	if confirm(context.Background(), sess) {
		t.Fatalf("expected n to decline")
	}
	if confirm(context.Background(), sess) {
		t.Fatalf("expected EOF to decline")
	}
	if !strings.Contains(out.String(), `Delete session "Check-in"?`) {
		t.Fatalf("unexpected prompt %q", out.String())
	}
}

func TestViewErrorPrefersUserMessage(t *testing.T) {
	msg := "Session not found."
	err := viewError(assessment.ViewModel{Error: &msg}, errors.New("raw"))
	if err == nil || err.Error() != msg {
		t.Fatalf("expected %q, got %v", msg, err)
	}
	if err := viewError(assessment.ViewModel{}, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
