package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

func (a *app) writeItems(cmd *cobra.Command, items []mitem.Item) error {
	return WriteItems(cmd.OutOrStdout(), a.v.GetString("output"), items)
}

// WriteReport renders a group report in the given format.
func WriteReport(w io.Writer, format string, report weight.Report) error {
	switch format {
	case OutputTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "size\t%d\n", report.Size)
		fmt.Fprintf(tw, "max\t%d\n", report.Max)
		fmt.Fprintf(tw, "dense\t%t\n", report.Dense())
		fmt.Fprintf(tw, "duplicates\t%v\n", report.Duplicates)
		fmt.Fprintf(tw, "gaps\t%v\n", report.Gaps)
		for _, warning := range report.Warnings {
			fmt.Fprintf(tw, "warning\t%s\n", warning)
		}
		return tw.Flush()
	case OutputJSON, OutputYAML:
		return encode(w, format, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteItems renders items in the given format.
func WriteItems(w io.Writer, format string, items []mitem.Item) error {
	if items == nil {
		items = []mitem.Item{}
	}
	switch format {
	case OutputTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tGROUP\tNAME\tWEIGHT")
		for _, item := range items {
			group := item.Group()
			if item.GroupKey == nil {
				group = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", item.ID, group, item.Name, item.Weight)
		}
		return tw.Flush()
	case OutputJSON, OutputYAML:
		return encode(w, format, items)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func encode(w io.Writer, format string, v any) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
