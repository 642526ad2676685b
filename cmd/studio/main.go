// studio - Terminal Asset Studio
// Look at a glTF model lit by image-based environments, with a film-style
// post-processing chain, in the terminal or rendered to a PNG.
//
// Controls (view):
//
//	Mouse drag / arrows / WASD - Orbit
//	Scroll, +/-                - Zoom
//	N / P, 1-9                 - Next, previous or numbered environment
//	[ / ]                      - Rotate the environment
//	, / .                      - Background blur
//	B                          - Toggle background
//	E                          - Toggle environment lighting
//	G                          - Toggle color grade
//	F / X                      - Toggle floor grid / bounding box
//	Space                      - Random spin
//	R                          - Reset view
//	?                          - Toggle HUD
//	Esc, Q                     - Quit
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/studio/internal/logger"
)

var version = "dev"

// app carries what every subcommand shares.
type app struct {
	configPath string
	cfg        Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "studio",
		Short: "Terminal asset studio",
		Long: `studio shows a 3D model lit by image-based environments and a
post-processing chain, right in the terminal.

Configuration is read from --config, ./studio.yaml or the user config
directory, then STUDIO_* variables (STUDIO_POST_EXPOSURE=1.5), then flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file")
	pf.String("preset", "", "environment preset id")
	pf.String("catalog", "", "preset catalog YAML (default built-in)")
	pf.String("shape", "", "shape to show without a model file: sphere, cube")
	pf.Float32("exposure", 1, "exposure multiplier")
	pf.String("tone", "", "tone mapping: none, linear, reinhard, aces-filmic")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-file", "", "write logs to this file")

	root.AddCommand(newViewCmd(a), newRenderCmd(a), newPresetsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := logger.Options{Level: cfg.Log.Level, Dev: cfg.Log.Dev, Path: cfg.Log.File}
	if opts.Path == "" && cmd.Name() == "view" {
		// The viewer owns the terminal; only a log file makes sense.
		return nil
	}
	log, err := logger.New(opts)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(version))
	stop()
	if err != nil {
		os.Exit(1)
	}
}
