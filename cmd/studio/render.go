package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/studio"
)

type renderOptions struct {
	output        string
	width, height int
	timeout       time.Duration
	view          studio.View
}

func newRenderCmd(a *app) *cobra.Command {
	o := renderOptions{view: studio.DefaultView()}
	cmd := &cobra.Command{
		Use:   "render [model.glb]",
		Short: "Render one frame to a PNG",
		Long: `render loads the environment, waits for it to settle and writes a
single frame. Without a model file the configured shape is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var model string
			if len(args) > 0 {
				model = args[0]
			}
			return a.render(cmd.Context(), model, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "studio.png", "output PNG")
	f.IntVar(&o.width, "width", 640, "image width")
	f.IntVar(&o.height, "height", 360, "image height")
	f.DurationVar(&o.timeout, "timeout", 30*time.Second, "how long to wait for the environment")
	f.Float64Var(&o.view.Yaw, "yaw", o.view.Yaw, "camera azimuth in radians")
	f.Float64Var(&o.view.Pitch, "pitch", o.view.Pitch, "camera elevation in radians")
	f.Float64Var(&o.view.Distance, "distance", o.view.Distance, "camera distance")
	return cmd
}

func (a *app) render(ctx context.Context, model string, o renderOptions) error {
	if o.width <= 0 || o.height <= 0 {
		return fmt.Errorf("invalid size %dx%d", o.width, o.height)
	}
	s, err := newStage(a.cfg, a.log, model, o.width, o.height)
	if err != nil {
		return err
	}
	defer s.Close()
	s.SetView(o.view)

	wait, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	// The fade runs on simulated time; only the download is waited for.
	if err := s.Settle(wait, 0.25); err != nil {
		return fmt.Errorf("waiting for environment: %w", err)
	}
	if want := a.cfg.Preset; want != "" && s.Fader().CurrentPreset() != want {
		a.log.Warn("environment unavailable, rendering with the fallback color", zap.String("preset", want))
	}

	img := s.Tick(0)
	if img == nil {
		return fmt.Errorf("no frame rendered")
	}
	if err := render.SavePNG(o.output, img); err != nil {
		return err
	}
	a.log.Info("frame written",
		zap.String("path", o.output),
		zap.String("preset", s.Fader().CurrentPreset()))
	return nil
}
