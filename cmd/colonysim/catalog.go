package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/mini-colony/internal/buildings"
)

func newCatalogCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the building table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := buildings.Load(path)
			if err != nil {
				return fmt.Errorf("load building catalog: %w", err)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tNAME\tSIZE\tBUILD\tCATEGORY\tFLAGS")
			for _, d := range cat.All() {
				flags := ""
				if d.Solid {
					flags += "solid "
				}
				if d.Source {
					flags += "source"
				}
				fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%s\t%s\t%s\n",
					d.Type, d.Name, d.Width, d.Depth,
					humanize.FormatFloat("#,###.#", d.BuildTime), d.Category, flags)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "Building table to read (default: embedded)")
	return cmd
}
