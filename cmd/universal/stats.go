package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var clearKeys []string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show what the persistent mirror holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliLogging()
			m, err := openMirror()
			if err != nil {
				return err
			}
			defer m.Close()

			for _, key := range clearKeys {
				if err := m.Clear(key); err != nil {
					return fmt.Errorf("clear %s: %w", key, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", key)
			}
			return printMirrorStats(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().StringSliceVar(&clearKeys, "clear", nil, "mirror keys to delete before reporting")
	return cmd
}

// printMirrorStats lists every mirror key with the number of entries its
// value decodes to. Undecodable values are reported, not healed.
func printMirrorStats(w io.Writer, m mirror) error {
	keys, err := m.Keys()
	if err != nil {
		return fmt.Errorf("list mirror keys: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Key", "Entries", "Bytes"})
	for _, key := range keys {
		raw, _, err := m.Get(key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		tw.AppendRow(table.Row{key, entryCount(raw), len(raw)})
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d keys", len(keys))})
	tw.Render()
	return nil
}

func entryCount(raw string) string {
	var entries []json.RawMessage
	if json.Unmarshal([]byte(raw), &entries) != nil {
		return "malformed"
	}
	return fmt.Sprint(len(entries))
}
