package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abelbrown/universal/internal/paging"
	"github.com/abelbrown/universal/internal/project"
	"github.com/abelbrown/universal/internal/record"
)

func listCmd() *cobra.Command {
	var (
		pages      uint
		all        bool
		showImages bool
	)
	cmd := &cobra.Command{
		Use:   "list <source>",
		Short: "Page through a data source and print the projected rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliLogging()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ds, ok := cfg.DataSource(args[0])
			if !ok {
				return fmt.Errorf("unknown data source %q", args[0])
			}

			m, err := openMirror()
			if err != nil {
				return err
			}
			defer m.Close()

			client := newClient(cfg)
			var recs []record.Record
			footer := ""
			if all {
				var fromCache bool
				recs, fromCache, err = paging.LoadRendered(cmd.Context(), client, m, ds.Name)
				if err != nil {
					return err
				}
				if fromCache {
					footer = "from mirror"
				}
			} else {
				engine := paging.New(client, m, nil)
				req := engine.OnSourceChange(ds.Name)
				for i := uint(0); i < pages && req != nil; i++ {
					res := engine.Step(cmd.Context(), req)
					if res.Err != nil {
						return fmt.Errorf("page %d: %w", res.Page, res.Err)
					}
					req = engine.OnProximityReached()
				}
				st := engine.State()
				recs = st.Items
				footer = fmt.Sprintf("%d pages", st.PageNumber)
				if st.Exhausted {
					footer += ", end"
				}
			}

			renderTable(cmd.OutOrStdout(), newProjector(cfg), ds.Fields, recs, showImages, footer)
			return nil
		},
	}
	cmd.Flags().UintVar(&pages, "pages", 1, "number of pages to fetch")
	cmd.Flags().BoolVar(&all, "all", false, "fetch the whole collection in one request")
	cmd.Flags().BoolVar(&showImages, "images", false, "include the resolved image URL")
	return cmd
}

// renderTable writes one row per record.
func renderTable(w io.Writer, p *project.Projector, fm record.FieldMap, recs []record.Record, showImages bool, footer string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.Style().Format.Footer = text.FormatDefault
	header := table.Row{"ID", "Heading", "Details", "Map"}
	if showImages {
		header = append(header, "Image")
	}
	tw.AppendHeader(header)

	for _, rec := range recs {
		row := p.Project(rec, fm)
		mapURL := ""
		if row.Map != nil {
			mapURL = row.Map.URL
		}
		r := table.Row{record.Format(row.ID), row.Heading, strings.Join(row.SubHeadings, " · "), mapURL}
		if showImages {
			r = append(r, row.Image)
		}
		tw.AppendRow(r)
	}

	summary := fmt.Sprintf("%d records", len(recs))
	if footer != "" {
		summary += " (" + footer + ")"
	}
	tw.AppendFooter(table.Row{summary})
	tw.Render()
}
