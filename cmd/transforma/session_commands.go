package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Session utilities",
	}

	sessionCmd.AddCommand(newSessionStatusCommand(ctx))
	sessionCmd.AddCommand(newSessionClearCommand(ctx))

	return sessionCmd
}

func newSessionStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := ctx.sessions()
			if err != nil {
				return err
			}

			info := sessions.Load()
			out := cmd.OutOrStdout()
			if !info.Valid {
				fmt.Fprintf(out, "No valid session: %s\n", info.Error)
				return nil
			}

			rows := [][]string{
				{"Username", info.Username},
				{"User ID", info.UserID},
				{"Expires", info.ExpiresAt},
				{"Valid", yesNo(info.Valid)},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func newSessionClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := ctx.sessions()
			if err != nil {
				return err
			}

			if err := sessions.ClearSession(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
			return nil
		},
	}
}
