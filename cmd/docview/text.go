package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/docview/charset"
	"github.com/meigma/docview/textindex"
)

var linesCmd = &cobra.Command{
	Use:   "lines FILE START COUNT",
	Short: "Index a text file and print a range of lines",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var start, count int
		if _, err := fmt.Sscan(args[1], &start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if _, err := fmt.Sscan(args[2], &count); err != nil {
			return fmt.Errorf("count: %w", err)
		}

		opts := []textindex.Option{
			textindex.WithProgress(func(f float64) {
				state.logger.Debug("indexing", "file", args[0], "progress", fmt.Sprintf("%.0f%%", f*100))
			}),
		}
		if name, _ := cmd.Flags().GetString("charset"); name != "" {
			cs, ok := charset.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown charset %q", name)
			}
			opts = append(opts, textindex.WithCharset(cs))
		}

		ix, err := state.client.IndexFile(cmd.Context(), args[0], opts...)
		if err != nil {
			return err
		}
		state.logger.Info("indexed", "file", args[0], "lines", ix.Lines(), "charset", ix.Charset())

		text, err := state.client.ReadLines(args[0], start, count)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), text)
		return err
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect FILE",
	Short: "Guess the charset of a file from its first bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		buf := make([]byte, textindex.DefaultSampleSize)
		n, err := io.ReadFull(f, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), state.client.DetectCharset(buf[:n]))
		return nil
	},
}

func init() {
	linesCmd.Flags().String("charset", "", "Decode with this charset instead of detecting one")
	rootCmd.AddCommand(linesCmd, detectCmd)
}
