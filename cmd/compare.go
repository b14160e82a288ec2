package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"posecompare/internal/presenter"
	"posecompare/processing/pose"
)

type compareOptions struct {
	reference string
	warmup    time.Duration
}

func newCompareCmd(a *app) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Capture one frame and compare it with the reference pose",
		Long: `compare starts the configured camera, captures a single frame and prints how
far the detected pose is from the reference.

The camera only starts once a reference has been accepted. Pass --reference to
upload one first in the same run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if opts.reference != "" {
				res, err := a.uploader.Upload(ctx, pose.ImageFileFromPath(opts.reference))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "✓ "+res.Message)
			}

			if err := a.session.Start(ctx); err != nil {
				return fmt.Errorf("camera: %w", err)
			}
			defer a.session.Stop()

			state := a.session.State()
			fmt.Fprintf(out, "Camera %s started at %dx%d\n", state.Device, state.Width, state.Height)

			if opts.warmup > 0 {
				select {
				case <-time.After(opts.warmup):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			result, err := a.comparator.CaptureAndCompare(ctx)
			if err != nil {
				return err
			}
			if result == nil {
				return errors.New("camera stopped before a frame could be captured")
			}

			printMetrics(out, presenter.Render(*result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.reference, "reference", "r", "", "reference image to upload before comparing")
	cmd.Flags().DurationVar(&opts.warmup, "warmup", time.Second, "time to let the camera settle before capturing")

	return cmd
}

func printMetrics(w io.Writer, m presenter.Metrics) {
	fmt.Fprintf(w, "Distance:      %s\n", m.Distance)
	fmt.Fprintf(w, "Pose detected: %s\n", m.PoseDetected)
	fmt.Fprintf(w, "Accuracy:      %s\n", m.Accuracy)
	fmt.Fprintf(w, "Quality:       %s\n", m.Quality)
	fmt.Fprintln(w)
	fmt.Fprintln(w, m.Message)
}
