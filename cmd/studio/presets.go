package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPresetsCmd(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List environment presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := loadCatalog(a.cfg.Catalog)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(map[string]any{"presets": catalog.Presets()})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tENCODING\tEXPOSURE\tTONE\tSOURCE")
			for _, p := range catalog.Presets() {
				exposure, tone := "-", "-"
				if p.Mood != nil {
					exposure = fmt.Sprintf("%.2f", p.Mood.Exposure)
					tone = string(p.Mood.ToneMapping)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Encoding, exposure, tone, p.SourceURL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the catalog as YAML")
	return cmd
}
