package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/docview/webdav"
)

var lsCmd = &cobra.Command{
	Use:   "ls SERVER [PATH]",
	Short: "List a remote directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := "/"
		if len(args) == 2 {
			p = args[1]
		}
		entries, err := state.client.List(cmd.Context(), args[0], p)
		if err != nil {
			return err
		}
		sortEntries(entries)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintln(tw, formatEntry(e))
		}
		return tw.Flush()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download SERVER PATH DEST",
	Short: "Download a remote file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		n, err := state.client.Download(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s in %s\n", args[2], humanize.Bytes(uint64(n)), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [SERVER...]",
	Short: "Probe configured servers",
	Long:  "Probe every configured server, or only the named ones, concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := args
		if len(ids) == 0 {
			ids = state.client.Servers()
		}
		slices.Sort(ids)

		results := make([]bool, len(ids))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(4)
		for i, id := range ids {
			g.Go(func() error {
				results[i] = state.client.CheckConnection(ctx, id)
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // probes never fail, they report

		var down []string
		for i, id := range ids {
			status := "ok"
			if !results[i] {
				status = "unreachable"
				down = append(down, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, status)
		}
		if len(down) > 0 {
			return fmt.Errorf("unreachable: %s", strings.Join(down, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd, downloadCmd, checkCmd)
}

// sortEntries puts directories first, then orders by name.
func sortEntries(entries []webdav.Entry) {
	slices.SortFunc(entries, func(a, b webdav.Entry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}

func formatEntry(e webdav.Entry) string {
	size := humanize.Bytes(uint64(max(e.Size, 0)))
	name := e.Name
	if e.IsDir {
		size = "-"
		name += "/"
	}
	mod := "-"
	if !e.ModTime.IsZero() {
		mod = e.ModTime.Local().Format(time.DateTime)
	}
	return fmt.Sprintf("%s\t%s\t%s", size, mod, name)
}
