package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"posecompare/internal/presenter"
)

func newExportCmd(a *app) *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the full comparison history",
		Long: `export writes every stored comparison to a file as CSV, Parquet or YAML.

No file is written, and the command fails, when the history is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := presenter.ParseFormat(format)
			if err != nil {
				return err
			}

			art, err := a.presenter.ExportHistory(cmd.Context(), f)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = filepath.Join(a.cfg.ExportDir, art.Name)
			}

			if err := os.WriteFile(outPath, art.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s (%d bytes)\n", outPath, len(art.Data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(presenter.FormatCSV), "csv, parquet or yaml")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default <export dir>/pose_comparison_data.<ext>)")

	return cmd
}
