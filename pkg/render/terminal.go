package render

import (
	"image"
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// HalfBlock draws an 8-bit frame into terminal cells, two image rows per
// cell using the upper half block with fg=top and bg=bottom.
type HalfBlock struct {
	Image *image.RGBA
}

var _ uv.Drawable = HalfBlock{}

// Draw implements uv.Drawable. The image height should be 2x the area
// height.
func (h HalfBlock) Draw(scr uv.Screen, area uv.Rectangle) {
	if h.Image == nil {
		return
	}
	b := h.Image.Bounds()
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := b.Min.Y + (row-area.Min.Y)*2
		if topY >= b.Max.Y {
			break
		}
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X; col++ {
			x := b.Min.X + col - area.Min.X
			if x >= b.Max.X {
				break
			}
			top := h.Image.RGBAAt(x, topY)
			var bot color.RGBA
			if botY < b.Max.Y {
				bot = h.Image.RGBAAt(x, botY)
			}
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(top),
					Bg: rgbaToColor(bot),
				},
			})
		}
	}
}

// rgbaToColor maps transparent pixels to the terminal default color.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
