package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"transforma/internal/dupcache"
	"transforma/internal/fileutil"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Check whether a document was already submitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.cache()
			if err != nil {
				return err
			}

			filename := fileutil.BaseName(strings.TrimSpace(args[0]))
			result := cache.Check(filename)
			out := cmd.OutOrStdout()

			switch result.Status {
			case dupcache.StatusAlreadySubmitted:
				fmt.Fprintf(out, "%s was already submitted\n", filename)
				rows := [][]string{
					{"FIRS Reference", result.FIRSReference},
					{"Submitted By", result.SubmittedBy},
					{"Submit Time", formatSubmitTime(result.SubmitTime)},
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
			case dupcache.StatusUnavailable:
				fmt.Fprintf(out, "%s: duplicate protection unavailable (cache not loaded)\n", filename)
			default:
				fmt.Fprintf(out, "%s has no submission record\n", filename)
			}
			return nil
		},
	}
}

func formatSubmitTime(unix uint64) string {
	if unix == 0 {
		return "unknown"
	}
	return time.Unix(int64(unix), 0).UTC().Format(time.RFC3339)
}
