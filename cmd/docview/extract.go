package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract ARCHIVE DEST",
	Short: "Extract a local zip, rar or 7z archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := state.client.Extract(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d directories, %s\n", stats.Files, stats.Dirs, humanize.Bytes(uint64(stats.Bytes)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
