package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/studio"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view [model.glb]",
		Short: "Interactive terminal viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var model string
			if len(args) > 0 {
				model = args[0]
			}
			return a.view(cmd.Context(), model)
		},
	}
}

// viewer is the interactive session state. Everything runs on the frame
// loop goroutine; terminal events are drained once per frame.
type viewer struct {
	log    *zap.Logger
	stage  *studio.Studio
	orbit  *orbit
	hud    *hud
	quit   context.CancelFunc
	width  int
	height int

	presets []string
	preset  int

	dragging    bool
	lastX       int
	lastY       int
	torqueYaw   float64
	torquePitch float64
}

const torque = 3.0

func (a *app) view(ctx context.Context, model string) error {
	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	stage, err := newStage(a.cfg, a.log, model, width, height*2)
	if err != nil {
		return err
	}
	defer stage.Close()

	title := a.cfg.Model.Shape
	if model != "" {
		title = filepath.Base(model)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v := &viewer{
		log:    a.log,
		stage:  stage,
		orbit:  newOrbit(a.cfg.FPS, studio.DefaultView()),
		hud:    newHUD(title, stage.Mesh().TriangleCount()),
		quit:   cancel,
		width:  width,
		height: height,
	}
	for _, p := range stage.Fader().Presets() {
		v.presets = append(v.presets, p.ID)
		if p.ID == a.cfg.Preset {
			v.preset = len(v.presets) - 1
		}
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)
	fmt.Fprint(os.Stdout, "\x1b[?1003h\x1b[?1006h") // any-event mouse, SGR encoding
	defer func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		_ = term.Shutdown(context.Background())
	}()

	events := term.Events()
	frameTime := time.Second / time.Duration(max(a.cfg.FPS, 1))
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	drain:
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				v.handle(term, ev)
			default:
				break drain
			}
		}

		now := time.Now()
		dt := min(now.Sub(last).Seconds(), 0.1)
		last = now

		v.orbit.impulse(v.torqueYaw*dt, v.torquePitch*dt)
		v.torqueYaw *= 0.9
		v.torquePitch *= 0.9
		v.orbit.update()
		stage.SetView(v.orbit.view())

		img := stage.Tick(float32(dt))
		area := uv.Rect(0, 0, v.width, v.height)
		render.HalfBlock{Image: img}.Draw(term, area)
		v.hud.frame(now)
		v.hud.cull(stage.Stats())
		v.hud.draw(term, area, statusLine(stage.Fader().State(), stage.Pipeline().Settings()))
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}

		if elapsed := time.Since(now); elapsed < frameTime {
			time.Sleep(frameTime - elapsed)
		}
	}
}

func (v *viewer) handle(term *uv.Terminal, ev uv.Event) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		v.width, v.height = ev.Width, ev.Height
		term.Erase()
		term.Resize(v.width, v.height)
		v.stage.Resize(v.width, v.height*2)

	case uv.KeyPressEvent:
		v.key(ev)

	case uv.KeyReleaseEvent:
		switch {
		case ev.MatchString("a", "left", "d", "right"):
			v.torqueYaw = 0
		case ev.MatchString("w", "up", "s", "down"):
			v.torquePitch = 0
		}

	case uv.MouseClickEvent:
		v.dragging = true
		v.lastX, v.lastY = ev.X, ev.Y

	case uv.MouseReleaseEvent:
		v.dragging = false

	case uv.MouseMotionEvent:
		if v.dragging {
			v.orbit.impulse(float64(ev.X-v.lastX)*0.03, float64(ev.Y-v.lastY)*0.03)
			v.lastX, v.lastY = ev.X, ev.Y
		}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			v.orbit.zoom(0.9)
		case uv.MouseWheelDown:
			v.orbit.zoom(1 / 0.9)
		}
	}
}

func (v *viewer) key(ev uv.KeyPressEvent) {
	fader := v.stage.Fader()
	st := fader.State()
	switch {
	case ev.MatchString("esc", "q", "ctrl+c"):
		v.quit()
	case ev.MatchString("a", "left"):
		v.torqueYaw = -torque
	case ev.MatchString("d", "right"):
		v.torqueYaw = torque
	case ev.MatchString("w", "up"):
		v.torquePitch = torque
	case ev.MatchString("s", "down"):
		v.torquePitch = -torque
	case ev.MatchString("+", "="):
		v.orbit.zoom(0.9)
	case ev.MatchString("-", "_"):
		v.orbit.zoom(1 / 0.9)
	case ev.MatchString("space"):
		v.orbit.impulse((rand.Float64()-0.5)*1.5, (rand.Float64()-0.5)*0.5)
	case ev.MatchString("r"):
		v.orbit.reset()
	case ev.MatchString("n", "tab"):
		v.selectPreset(v.preset + 1)
	case ev.MatchString("p", "shift+tab"):
		v.selectPreset(v.preset - 1)
	case ev.MatchString("1", "2", "3", "4", "5", "6", "7", "8", "9"):
		if i := int(ev.Code - '1'); i < len(v.presets) {
			v.selectPreset(i)
		}
	case ev.MatchString("["):
		fader.SetRotation(st.RotationDegrees - 15)
	case ev.MatchString("]"):
		fader.SetRotation(st.RotationDegrees + 15)
	case ev.MatchString(","):
		fader.SetBlurriness(st.Blurriness - 0.1)
	case ev.MatchString("."):
		fader.SetBlurriness(st.Blurriness + 0.1)
	case ev.MatchString("b"):
		fader.SetBackgroundEnabled(!st.BackgroundEnabled)
	case ev.MatchString("e"):
		fader.SetEnabled(!st.Enabled)
	case ev.MatchString("g"):
		g := v.stage.Pipeline().Grade()
		g.SetEnabled(!g.Enabled())
	case ev.MatchString("x"):
		o := v.stage.Overlay()
		o.Bounds = !o.Bounds
		v.stage.SetOverlay(o)
	case ev.MatchString("f"):
		o := v.stage.Overlay()
		o.Grid = !o.Grid
		v.stage.SetOverlay(o)
	case ev.MatchString("?", "shift+/"):
		v.hud.visible = !v.hud.visible
	}
}

// selectPreset switches to the preset at index i, wrapping around.
func (v *viewer) selectPreset(i int) {
	n := len(v.presets)
	if n == 0 {
		return
	}
	v.preset = ((i % n) + n) % n
	id := v.presets[v.preset]
	v.log.Info("switching environment", zap.String("preset", id))
	v.stage.SetPreset(id)
}
