package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List assessment sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeApp(a)

		err = openPage(cmd.Context(), a.Orch)
		vm := a.Orch.View()
		printSessions(cmd.OutOrStdout(), vm)
		return viewError(vm, err)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new assessment session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeApp(a)

		sess, err := a.Orch.StartNew(cmd.Context())
		if err != nil {
			return viewError(a.Orch.View(), err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session %s started\n\n", sess.ID)
		printConversation(out, a.Orch.View())
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's history and progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := openPage(cmd.Context(), a.Orch); err != nil {
			return viewError(a.Orch.View(), err)
		}
		if err := a.Orch.Load(cmd.Context(), args[0]); err != nil {
			return viewError(a.Orch.View(), err)
		}
		vm := a.Orch.View()
		printConversation(cmd.OutOrStdout(), vm)
		return viewError(vm, nil)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <session-id> <message...>",
	Short: "Send one message to a session and print the reply",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeApp(a)

		ctx := cmd.Context()
		if err := openPage(ctx, a.Orch); err != nil {
			return viewError(a.Orch.View(), err)
		}
		if err := a.Orch.Load(ctx, args[0]); err != nil {
			return viewError(a.Orch.View(), err)
		}

		res, err := a.Orch.Send(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return viewError(a.Orch.View(), err)
		}
		vm := a.Orch.View()
		out := cmd.OutOrStdout()
		if res != nil && res.Assistant != nil {
			printMessage(out, *res.Assistant)
		}
		printProgress(out, vm)
		return viewError(vm, nil)
	},
}

// viewError prefers the user-facing message recorded in the view-model.
func viewError(vm assessment.ViewModel, err error) error {
	if vm.Error != nil && *vm.Error != "" {
		return fmt.Errorf("%s", *vm.Error)
	}
	return err
}
