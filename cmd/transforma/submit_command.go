package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"transforma/internal/config"
	"transforma/internal/submit"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit an invoice PDF to the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, err := ctx.cache()
			if err != nil {
				return err
			}
			sessions, err := ctx.sessions()
			if err != nil {
				return err
			}
			transport, err := ctx.relayClient()
			if err != nil {
				return err
			}

			orch := submit.NewOrchestrator(cfg, cache, sessions, transport, nil)
			defer orch.Close()

			out := cmd.OutOrStdout()
			state := orch.OnDocumentOpened(cmd.Context(), path)
			printState(out, state)
			if state.Phase != submit.PhaseReady {
				if state.Phase == submit.PhaseAlreadySubmitted {
					return nil
				}
				return fmt.Errorf("cannot submit: %s", state.Label)
			}

			orch.OnSubmitClicked(cmd.Context())
			deadline := time.After(time.Duration(cfg.Relay.RequestTimeout)*time.Second + 10*time.Second)
			for {
				select {
				case state = <-orch.States():
					printState(out, state)
					switch state.Phase {
					case submit.PhaseSuccess, submit.PhaseAlreadySubmitted:
						return nil
					case submit.PhaseError, submit.PhaseNoSession:
						return fmt.Errorf("submission failed: %s", state.Detail)
					}
				case <-deadline:
					return fmt.Errorf("timed out waiting for submission result")
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
		},
	}
}

func printState(out io.Writer, state submit.ButtonState) {
	if state.Detail != "" {
		fmt.Fprintf(out, "[%s] %s: %s\n", state.Phase, state.Label, state.Detail)
	} else {
		fmt.Fprintf(out, "[%s] %s\n", state.Phase, state.Label)
	}
}
