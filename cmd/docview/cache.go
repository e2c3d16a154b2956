package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune the local content cache",
}

var cacheSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the cache size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		u, err := state.cache.Usage()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\t%s\n", humanize.Bytes(uint64(u.Total())), state.cache.Dir())
		fmt.Fprintf(out, "  entries\t%d\t%s\n", u.Entries, humanize.Bytes(uint64(u.EntryBytes)))
		fmt.Fprintf(out, "  downloads\t%d\t%s\n", u.Downloads, humanize.Bytes(uint64(u.DownloadBytes)))
		if u.TempBytes > 0 {
			fmt.Fprintf(out, "  in flight\t\t%s\n", humanize.Bytes(uint64(u.TempBytes)))
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove least recently used files beyond the size budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit := state.cfg.Cache.MaxBytes
		if s, _ := cmd.Flags().GetString("max"); s != "" {
			n, err := humanize.ParseBytes(s)
			if err != nil {
				return err
			}
			limit = int64(min(n, uint64(1<<63-1)))
		}
		freed, remaining, err := state.cache.Prune(limit)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "freed %s, %s remaining\n", humanize.Bytes(uint64(freed)), humanize.Bytes(uint64(remaining)))
		return nil
	},
}

func init() {
	cachePruneCmd.Flags().String("max", "", "Size budget such as 500MB; defaults to cache.max_bytes")
	cacheCmd.AddCommand(cacheSizeCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
