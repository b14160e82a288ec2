package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"posecompare/internal/config"
	"posecompare/internal/logging"
	"posecompare/internal/presenter"
	"posecompare/processing/capture"
	"posecompare/processing/pose"
)

type rootOptions struct {
	configPath string
	backend    string
	logLevel   string
	logDir     string
}

// app holds the wired pipeline. It is filled in by the root pre-run, so
// subcommands only touch it inside their RunE.
type app struct {
	cfg *config.Config
	log *zap.Logger

	client     *pose.Client
	gate       *capture.ReferenceGate
	session    *capture.Session
	uploader   *pose.ReferenceUploader
	comparator *pose.CaptureComparator
	presenter  *presenter.Presenter
}

func (a *app) init(opts *rootOptions) error {
	cfg, err := config.LoadConfigFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyEnv()

	for key, v := range map[string]string{
		config.KeyBackendURL: opts.backend,
		config.KeyLogLevel:   opts.logLevel,
		config.KeyLogDir:     opts.logDir,
	} {
		if v != "" {
			cfg.Override(key, v)
		}
	}

	log, err := logging.Init(cfg.Logging.Directory, cfg.Logging.Level)
	if err != nil {
		return err
	}

	a.wire(cfg, log)
	return nil
}

func (a *app) wire(cfg *config.Config, log *zap.Logger) {
	a.cfg = cfg
	a.log = log

	a.client = pose.NewClient(cfg.GetBackendURL(), cfg.RequestTimeout())
	a.gate = &capture.ReferenceGate{}
	a.session = capture.NewSession(
		capture.NewOpener(cfg),
		a.gate,
		capture.WithAcquireTimeout(cfg.AcquireTimeout()),
		capture.WithLogger(log.Named("camera")),
	)
	a.uploader = pose.NewReferenceUploader(a.client, a.gate, log.Named("reference"))
	a.comparator = pose.NewCaptureComparator(a.session, a.client, cfg.GetJPEGQuality(), log.Named("compare"))
	a.presenter = presenter.New(a.client, log.Named("history"))
}

func (a *app) close() {
	if a.session != nil {
		a.session.Stop()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "posecompare",
		Short: "Compare live camera poses against a reference pose",
		Long: `posecompare captures a frame from your camera, sends it to a pose-estimation
backend and shows how closely it matches a previously uploaded reference pose.

Run without a subcommand to open the desktop app.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.init(opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(a)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath, "path to the JSON config file")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "pose backend base URL (overrides config and "+config.EnvBackendURL+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "directory for rotated log files")

	cmd.AddCommand(
		newGUICmd(a),
		newUploadCmd(a),
		newCompareCmd(a),
		newHistoryCmd(a),
		newExportCmd(a),
		newCamerasCmd(),
	)

	return cmd
}
