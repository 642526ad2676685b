package main

import (
	"fmt"
	"image/color"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/studio/pkg/env"
	"github.com/taigrr/studio/pkg/post"
	"github.com/taigrr/studio/pkg/render"
)

var (
	hudFg     = color.RGBA{R: 235, G: 235, B: 235, A: 255}
	hudAccent = color.RGBA{R: 120, G: 220, B: 140, A: 255}
	hudBg     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// hud is the overlay with the frame rate, the model and the environment
// state.
type hud struct {
	title     string
	triangles int
	offscreen bool
	visible   bool

	fps       float64
	frames    int
	lastCount time.Time
}

func newHUD(title string, triangles int) *hud {
	return &hud{title: title, triangles: triangles, visible: true, lastCount: time.Now()}
}

// frame counts one presented frame.
func (h *hud) frame(now time.Time) {
	h.frames++
	if elapsed := now.Sub(h.lastCount); elapsed >= time.Second {
		h.fps = float64(h.frames) / elapsed.Seconds()
		h.frames = 0
		h.lastCount = now
	}
}

// cull records whether the last frame culled the model.
func (h *hud) cull(stats render.CullingStats) {
	h.offscreen = stats.MeshesCulled > 0
}

func (h *hud) topLine() string {
	if h.offscreen {
		return fmt.Sprintf(" %.0f fps | %s | off screen ", h.fps, h.title)
	}
	return fmt.Sprintf(" %.0f fps | %s | %d tris ", h.fps, h.title, h.triangles)
}

// statusLine summarizes the environment and the look.
func statusLine(st env.State, s post.Settings) string {
	preset := st.ActivePresetID
	if preset == "" {
		preset = "none"
	}
	switch {
	case !st.Enabled:
		preset += " (off)"
	case st.LoadingPresetID != "":
		preset += " > " + st.LoadingPresetID + " loading"
	case st.Fading:
		preset += fmt.Sprintf(" fading %3.0f%%", st.FadeProgress*100)
	}
	bg := "on"
	if !st.BackgroundEnabled {
		bg = "off"
	}
	return fmt.Sprintf(" env %s | rot %.0f° blur %.1f bg %s | exp %.2f %s ",
		preset, st.RotationDegrees, st.Blurriness, bg, s.Exposure, s.ToneMapping)
}

// draw writes the two overlay lines onto the top and bottom rows.
func (h *hud) draw(scr uv.Screen, area uv.Rectangle, status string) {
	if !h.visible || area.Dy() < 2 {
		return
	}
	writeLine(scr, area.Min.X, area.Min.Y, area.Max.X, h.topLine(), hudAccent)
	writeLine(scr, area.Min.X, area.Max.Y-1, area.Max.X, status, hudFg)
}

func writeLine(scr uv.Screen, x, y, maxX int, s string, fg color.Color) {
	for _, r := range s {
		if x >= maxX {
			return
		}
		scr.SetCell(x, y, &uv.Cell{
			Content: string(r),
			Width:   1,
			Style:   uv.Style{Fg: fg, Bg: hudBg},
		})
		x++
	}
}
