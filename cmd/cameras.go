package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"posecompare/processing/capture"
)

func newCamerasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cameras",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cameras, err := capture.ListCameras()
			if err != nil {
				return err
			}

			if len(cameras) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cameras found")
				return nil
			}

			for _, c := range cameras {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
