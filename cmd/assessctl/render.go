package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/suPer8Hu/assessment-client/internal/assessment"
)

func printSessions(w io.Writer, vm assessment.ViewModel) {
	pg := vm.Pagination
	if len(vm.Sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
	}
	active := ""
	if vm.CurrentSession != nil {
		active = vm.CurrentSession.ID
	}
	for _, s := range vm.Sessions {
		printSessionLine(w, s, s.ID == active)
	}
	fmt.Fprintf(w, "\npage %d/%d  (%d sessions, %d per page)\n", pg.Page, max(pg.TotalPages, 1), pg.TotalSessions, pg.PageSize)
}

func printSessionLine(w io.Writer, s assessment.Session, active bool) {
	mark := " "
	if active {
		mark = "*"
	}
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "%s %-28s %-12s %4.0f%%  %s\n", mark, s.ID, s.Status, s.ProgressPercentage, title)
}

func printMessage(w io.Writer, m assessment.Message) {
	who := "assessor"
	if m.Role == assessment.RoleUser {
		who = "you"
	}
	fmt.Fprintf(w, "%s> %s\n", who, m.Content)
}

func printConversation(w io.Writer, vm assessment.ViewModel) {
	for _, m := range vm.Messages {
		printMessage(w, m)
	}
	printProgress(w, vm)
}

// printProgress renders a bar plus the per-module status when details are known.
func printProgress(w io.Writer, vm assessment.ViewModel) {
	if vm.CurrentSession == nil {
		return
	}
	fmt.Fprintf(w, "\n[%s] %d%%", progressBar(vm.Progress, 20), vm.Progress)
	if vm.Phase == assessment.PhaseViewing {
		fmt.Fprint(w, "  complete")
	}
	fmt.Fprintln(w)

	d := vm.ProgressDetails
	if d == nil || len(d.ModuleStatus) == 0 {
		return
	}
	parts := make([]string, 0, len(d.ModuleStatus))
	for _, ms := range d.ModuleStatus {
		parts = append(parts, ms.Module+":"+ms.Status)
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}
