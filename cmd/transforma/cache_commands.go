package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"transforma/internal/dupcache"
	"transforma/internal/fileutil"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Duplicate cache utilities",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheCheckCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.cache()
			if err != nil {
				return err
			}

			records := cache.Records()
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No submissions recorded")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.Filename,
					rec.FIRSReference,
					rec.SubmittedBy,
					formatSubmitTime(rec.SubmitTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Filename", "FIRS Ref", "Submitted By", "Submit Time"},
				rows))
			fmt.Fprintf(out, "%d record(s)", len(records))
			if last := cache.LastSync(); !last.IsZero() {
				fmt.Fprintf(out, ", last sync %s", last.UTC().Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newCacheCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <filename>",
		Short: "Check one filename against the cache",
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
				fmt.Fprintf(out, "%s: already submitted by %s (Ref: %s)\n",
					filename, result.SubmittedBy, result.FIRSReference)
			case dupcache.StatusUnavailable:
				fmt.Fprintf(out, "%s: cache unavailable\n", filename)
			default:
				fmt.Fprintf(out, "%s: not submitted\n", filename)
			}
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.cache()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			count := cache.Count()
			if count == 0 {
				fmt.Fprintln(out, "Cache is already empty")
				return nil
			}
			if !force {
				return fmt.Errorf("refusing to remove %d record(s) without --force", count)
			}
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(out, "Removed %d record(s)\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Remove records without confirmation")
	return cmd
}
