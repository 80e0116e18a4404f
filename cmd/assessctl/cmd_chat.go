package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Interactive assessment conversation",
	Long: `Resume the given session, or start a new one, and chat line by line.

Commands:
  /sessions          list the current page
  /next, /prev       page through sessions
  /load <id>         switch to another session on the current page
  /new               start a new session
  /progress          re-read progress from the backend
  /retry             repeat the last failed operation
  /delete <id>       delete a session (asks first)
  /quit              leave`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		a, err := openApp(cmd.Context(), promptConfirmer(in, out))
		if err != nil {
			return err
		}
		defer closeApp(a)

		r := &repl{o: a.Orch, out: out}
		ctx := cmd.Context()
		if err := openPage(ctx, a.Orch); err != nil {
			r.report(err)
		}
		if len(args) == 1 {
			r.report(a.Orch.Load(ctx, args[0]))
		} else {
			_, err := a.Orch.StartNew(ctx)
			r.report(err)
		}
		printConversation(out, a.Orch.View())

		for {
			fmt.Fprint(out, "> ")
			line, err := in.ReadString('\n')
			if quit := r.handle(cmd, strings.TrimSpace(line)); quit {
				return nil
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	},
}

type repl struct {
	o   *assessment.Orchestrator
	out io.Writer
}

// handle runs one input line and reports whether the loop should stop.
func (r *repl) handle(cmd *cobra.Command, line string) bool {
	ctx := cmd.Context()
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		res, err := r.o.Send(ctx, line)
		if err == nil && res != nil && res.Assistant != nil {
			printMessage(r.out, *res.Assistant)
		}
		r.report(err)
		printProgress(r.out, r.o.View())
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true
	case "/sessions":
		printSessions(r.out, r.o.View())
	case "/next", "/prev":
		target := assessment.NextPage()
		if name == "/prev" {
			target = assessment.PreviousPage()
		}
		r.report(r.o.Paginate(ctx, target))
		printSessions(r.out, r.o.View())
	case "/load":
		if err := r.o.Load(ctx, arg); err != nil {
			r.report(err)
			return false
		}
		printConversation(r.out, r.o.View())
	case "/new":
		if _, err := r.o.StartNew(ctx); err != nil {
			r.report(err)
			return false
		}
		printConversation(r.out, r.o.View())
	case "/progress":
		_, err := r.o.RefreshProgress(ctx)
		r.report(err)
		printProgress(r.out, r.o.View())
	case "/retry":
		r.report(r.o.Retry(ctx))
		printConversation(r.out, r.o.View())
	case "/delete":
		r.report(r.o.Delete(ctx, arg))
	default:
		fmt.Fprintf(r.out, "unknown command %s\n", name)
	}
	return false
}

func (r *repl) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, assessment.ErrDeleteCancelled) {
		fmt.Fprintln(r.out, "cancelled")
		return
	}
	if e := viewError(r.o.View(), err); e != nil {
		fmt.Fprintf(r.out, "! %v\n", e)
	}
}
