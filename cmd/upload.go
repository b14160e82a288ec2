package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"posecompare/processing/pose"
)

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <image>",
		Short: "Upload a reference pose image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.uploader.Upload(cmd.Context(), pose.ImageFileFromPath(args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ "+out.Message)
			return nil
		},
	}
}
