package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"posecompare/internal/presenter"
)

func newHistoryCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the last 10 comparisons, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.presenter.ViewHistory(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if table.Empty() {
				fmt.Fprintln(out, table.Message)
				return nil
			}

			switch strings.ToLower(output) {
			case "table":
				return printTable(out, table)
			case "yaml":
				rows, schema := presenter.RowsForTable(table)
				data, err := presenter.EncodeYAML(rows, schema)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			default:
				return fmt.Errorf("unsupported output %q (want table or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "table or yaml")

	return cmd
}

func printTable(w io.Writer, t presenter.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if t.Footer != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, t.Footer)
	}
	return nil
}
