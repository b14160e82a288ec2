package cmd

import (
	"github.com/spf13/cobra"

	"posecompare/internal/ui"
)

func newGUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(a)
		},
	}
}

func runGUI(a *app) error {
	ui.CreateApp(ui.Deps{
		Config:     a.cfg,
		Session:    a.session,
		Uploader:   a.uploader,
		Comparator: a.comparator,
		Presenter:  a.presenter,
		Log:        a.log.Named("ui"),
	}).Run()

	return nil
}
