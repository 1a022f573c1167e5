package main

import (
	"context"
	"fmt"
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"thera/internal/config"
	"thera/internal/engine"
	"thera/internal/gui"
	"thera/internal/imageio"
	"thera/internal/session"
	"thera/internal/watch"
)

var (
	debugMode  bool
	configPath string

	cfg       *config.Config
	logger    *logrus.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "thera [image]",
	Short: "View the images of a folder and enlarge them",
	Long: "Thera shows the images of one folder at a time. Use the arrow keys to move\n" +
		"between them, rename or copy the current image, and enlarge it with\n" +
		"bilinear, cubic or Lanczos interpolation or with a LapSRN super resolution model.",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: initialize,
	RunE:              runGUI,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Read configuration from this file")

	rootCmd.AddCommand(enlargeCmd)
	rootCmd.AddCommand(versionCmd)
}

func initialize(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger, logCloser = initLogger(debugMode, level, cfg.LogFile)
	return nil
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	defer func() {
		if logCloser != nil {
			logCloser.Close()
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

func runGUI(cmd *cobra.Command, args []string) error {
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": debugMode,
		"workers":    cfg.Workers,
		"models_dir": cfg.Models.Dir,
	}).Info("Starting Thera")

	loader := imageio.NewImageLoader(logger)
	eng := engine.New(loader, cfg.Models.Binding(), logger)
	defer eng.Close()

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetIcon(theme.FileImageIcon())
	fyneApp.Settings().SetTheme(theme.DefaultTheme())

	ui := gui.NewApplication(fyneApp, logger, fyne.NewSize(float32(cfg.Window.Width), float32(cfg.Window.Height)))

	opts := []session.Option{session.WithSlots(cfg.Workers)}
	var ctrl *session.Controller

	if cfg.Watch {
		watcher, err := watch.New(func() { ctrl.Refresh() }, logger)
		if err != nil {
			logger.WithError(err).Warn("Directory watching disabled")
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()
			opts = append(opts, session.WithWatcher(watcher))
		}
	}

	ctrl = session.New(ui, loader, eng, logger, opts...)
	ui.Attach(ctrl)

	if len(args) == 1 {
		path := args[0]
		fyneApp.Lifecycle().SetOnStarted(func() {
			ui.OpenPath(path)
		})
	}

	ui.ShowAndRun()

	logger.Info("Waiting for running enlargements")
	ctrl.Shutdown()
	logger.Info("Application shutting down gracefully")
	return nil
}
