package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
)

var assumeYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session after confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var confirm assessment.Confirmer = promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
		if assumeYes {
			confirm = assessment.ConfirmFunc(func(context.Context, assessment.Session) bool { return true })
		}

		a, err := openApp(cmd.Context(), confirm)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := openPage(cmd.Context(), a.Orch); err != nil {
			return viewError(a.Orch.View(), err)
		}
		err = a.Orch.Delete(cmd.Context(), args[0])
		if errors.Is(err, assessment.ErrDeleteCancelled) {
			fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
			return nil
		}
		if err != nil {
			return viewError(a.Orch.View(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session %s deleted\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}

// promptConfirmer asks on out and accepts "y" or "yes" from in.
func promptConfirmer(in io.Reader, out io.Writer) assessment.ConfirmFunc {
	r := bufio.NewReader(in)
	return func(_ context.Context, s assessment.Session) bool {
		title := s.Title
		if title == "" {
			title = s.ID
		}
		fmt.Fprintf(out, "Delete session %q? This cannot be undone. [y/N] ", title)
		line, _ := r.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
