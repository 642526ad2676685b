// Package render provides the software pipeline the studio draws with:
// linear-light framebuffers and textures, a camera, and a rasterizer that
// renders meshes lit by an image-based environment.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/shade"
)

// Framebuffer is a linear-light RGB render target with a depth plane.
// Values are unbounded (HDR) until a tone-mapping pass compresses them.
type Framebuffer struct {
	Width  int          // Width in pixels
	Height int          // Height in pixels; 2x terminal rows for half-block output
	Pixels []mgl32.Vec3 // Row-major linear radiance
	Depth  []float32    // Row-major view depth, +Inf where nothing was drawn
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	fb := &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]mgl32.Vec3, width*height),
		Depth:  make([]float32, width*height),
	}
	fb.ClearDepth()
	return fb
}

// Resize reallocates the buffer if the dimensions changed. Contents are
// discarded.
func (fb *Framebuffer) Resize(width, height int) {
	if width == fb.Width && height == fb.Height {
		return
	}
	*fb = *NewFramebuffer(width, height)
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c mgl32.Vec3) {
	n := len(fb.Pixels)
	if n == 0 {
		return
	}
	fb.Pixels[0] = c
	for i := 1; i < n; i *= 2 {
		copy(fb.Pixels[i:], fb.Pixels[:i])
	}
}

// ClearDepth resets every depth sample to +Inf.
func (fb *Framebuffer) ClearDepth() {
	n := len(fb.Depth)
	if n == 0 {
		return
	}
	fb.Depth[0] = float32(math.Inf(1))
	for i := 1; i < n; i *= 2 {
		copy(fb.Depth[i:], fb.Depth[:i])
	}
}

// SetPixel sets a pixel at (x, y) to the given color.
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c mgl32.Vec3) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the color at (x, y).
// Returns black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) mgl32.Vec3 {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return mgl32.Vec3{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// Fetch returns the color at (x, y) clamped to the edge.
func (fb *Framebuffer) Fetch(x, y int) mgl32.Vec3 {
	if fb.Width == 0 || fb.Height == 0 {
		return mgl32.Vec3{}
	}
	x = clampInt(x, 0, fb.Width-1)
	y = clampInt(y, 0, fb.Height-1)
	return fb.Pixels[y*fb.Width+x]
}

// Sample bilinearly samples the buffer at normalized coordinates, origin at
// the top left, clamped to the edge.
func (fb *Framebuffer) Sample(uv mgl32.Vec2) mgl32.Vec3 {
	fx := uv[0]*float32(fb.Width) - 0.5
	fy := uv[1]*float32(fb.Height) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	top := shade.Mix(fb.Fetch(x0, y0), fb.Fetch(x0+1, y0), tx)
	bot := shade.Mix(fb.Fetch(x0, y0+1), fb.Fetch(x0+1, y0+1), tx)
	return shade.Mix(top, bot, ty)
}

// DepthAt returns the depth at (x, y), +Inf when out of bounds.
func (fb *Framebuffer) DepthAt(x, y int) float32 {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return float32(math.Inf(1))
	}
	return fb.Depth[y*fb.Width+x]
}

// CopyFrom copies pixels and depth from src. Both buffers must share
// dimensions.
func (fb *Framebuffer) CopyFrom(src *Framebuffer) error {
	if src.Width != fb.Width || src.Height != fb.Height {
		return fmt.Errorf("copy %dx%d into %dx%d: size mismatch", src.Width, src.Height, fb.Width, fb.Height)
	}
	copy(fb.Pixels, src.Pixels)
	copy(fb.Depth, src.Depth)
	return nil
}

// UV returns the normalized coordinate of the center of pixel (x, y).
func (fb *Framebuffer) UV(x, y int) mgl32.Vec2 {
	return mgl32.Vec2{
		(float32(x) + 0.5) / float32(fb.Width),
		(float32(y) + 0.5) / float32(fb.Height),
	}
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// quantize encodes a display-referred linear color as 8-bit sRGB.
func quantize(c mgl32.Vec3) color.RGBA {
	s := shade.EncodeSRGB(c)
	return color.RGBA{
		R: uint8(s[0]*255 + 0.5),
		G: uint8(s[1]*255 + 0.5),
		B: uint8(s[2]*255 + 0.5),
		A: 255,
	}
}

// ToImage encodes the framebuffer as an 8-bit sRGB image. Values are clamped
// to [0, 1], so tone mapping should already have run.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	fb.EncodeInto(img)
	return img
}

// EncodeInto writes the framebuffer into an existing image of the same
// size, reusing its pixel storage.
func (fb *Framebuffer) EncodeInto(img *image.RGBA) {
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, quantize(fb.Pixels[y*fb.Width+x]))
		}
	}
}

// SavePNG saves an image as a PNG file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
