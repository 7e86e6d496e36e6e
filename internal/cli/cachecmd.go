package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/umq7573/streaky-shooter/internal/cache"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local response cache",
	}
	cmd.AddCommand(newCacheInfoCmd(a), newCacheClearCmd(a), newCacheClearOldCmd(a))
	return cmd
}

func newCacheInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location, size, and entry counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.manager.GetInfo()
			if errors.Is(err, cache.ErrCacheDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled by configuration.")
				return nil
			}
			if err != nil {
				return err
			}

			renderTable(cmd, []string{"FIELD", "VALUE"}, [][]string{
				{"Directory", info.Directory},
				{"Entries", strconv.Itoa(info.Entries)},
				{"Total size", cache.FormatBytes(info.TotalSize)},
				{"Expired", strconv.Itoa(info.Expired)},
				{"Oldest entry", cache.FormatDuration(info.OldestAge)},
				{"Newest entry", cache.FormatDuration(info.NewestAge)},
			})
			return nil
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [pattern]",
		Short: "Remove cached records, all of them or those matching a pattern",
		Long: "Remove cached records. With no argument every record is removed;\n" +
			"a pattern like 'shot_charts/player_203897/*' limits the scope.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			removed, err := a.manager.Invalidate(pattern)
			if errors.Is(err, cache.ErrCacheDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled by configuration.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached record(s).\n", removed)
			return nil
		},
	}
}

func newCacheClearOldCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-old",
		Short: "Remove only the cached records whose TTL has lapsed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := a.manager.ClearExpired()
			if errors.Is(err, cache.ErrCacheDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled by configuration.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired record(s).\n", removed)
			return nil
		},
	}
}
