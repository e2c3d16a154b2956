package main

import (
	"fmt"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/docview/remotezip"
)

var entriesCmd = &cobra.Command{
	Use:   "entries ARCHIVE",
	Short: "List the entries of a ZIP container",
	Long:  "List the entries of a ZIP container. With --server the container is read remotely using range requests.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		entries, err := state.client.Entries(cmd.Context(), server, args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				humanize.Bytes(e.UncompressedSize), humanize.Bytes(e.CompressedSize), e.Method, e.Name)
		}
		return tw.Flush()
	},
}

var catEntryCmd = &cobra.Command{
	Use:   "cat-entry ARCHIVE ENTRY",
	Short: "Write one decoded entry to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		data, err := state.client.ReadEntry(cmd.Context(), server, args[0], args[1])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var firstCmd = &cobra.Command{
	Use:   "first ARCHIVE",
	Short: "Print the first file entry, optionally filtered by extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		exts, _ := cmd.Flags().GetStringSlice("ext")
		e, data, err := state.client.FirstEntry(cmd.Context(), server, args[0], extensionFilter(exts))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Name, humanize.Bytes(uint64(len(data))))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{entriesCmd, catEntryCmd, firstCmd} {
		c.Flags().String("server", "", "Server ID holding the container; empty reads a local file")
	}
	firstCmd.Flags().StringSlice("ext", nil, "Accepted file extensions, such as .jpg,.png")

	rootCmd.AddCommand(entriesCmd, catEntryCmd, firstCmd)
}

// extensionFilter matches entries by case-insensitive extension. No
// extensions accept every entry.
func extensionFilter(exts []string) func(remotezip.Entry) bool {
	if len(exts) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		want[ext] = struct{}{}
	}
	return func(e remotezip.Entry) bool {
		_, ok := want[strings.ToLower(path.Ext(e.Name))]
		return ok
	}
}
