package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cachedLimit int

var cachedCmd = &cobra.Command{
	Use:   "cached [session-id]",
	Short: "Read sessions from the local mirror without calling the backend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if a.Mirror == nil {
			return errors.New("no local mirror configured (set MIRROR_BACKEND)")
		}
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			sess, err := a.Mirror.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			msgs, err := a.Mirror.Messages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %s  %.0f%%\n\n", sess.ID, sess.Status, sess.ProgressPercentage)
			for _, m := range msgs {
				printMessage(out, m)
			}
			return nil
		}

		sessions, err := a.Mirror.ListSessions(cmd.Context(), cachedLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "no mirrored sessions")
			return nil
		}
		for _, s := range sessions {
			printSessionLine(out, s, false)
		}
		return nil
	},
}

func init() {
	cachedCmd.Flags().IntVar(&cachedLimit, "limit", 20, "maximum sessions to list")
}
