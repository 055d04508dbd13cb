package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"transforma/internal/config"
	"transforma/internal/routing"
)

func newRouteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "route <file>",
		Short: "Classify a document as invoice or regular PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			router, err := ctx.router()
			if err != nil {
				return err
			}
			result := router.Route(path)

			rows := [][]string{
				{"Decision", result.Decision.String()},
				{"Confidence", fmt.Sprintf("%.2f", result.Confidence)},
			}
			if result.MatchedPattern != "" {
				rows = append(rows, []string{"Matched", result.MatchedPattern})
			}
			if result.ClientHint != "" {
				rows = append(rows, []string{"Client", result.ClientHint})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))

			if result.Decision == routing.DecisionInvoice {
				fmt.Fprintln(cmd.OutOrStdout(), "Document would open in invoice mode with the submit button enabled.")
			}
			return nil
		},
	}
}
