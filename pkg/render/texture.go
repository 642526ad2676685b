package render

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/shade"
)

// WrapMode determines how texture coordinates outside [0,1] are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Tile the texture
	WrapClamp                  // Clamp to edge
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest-neighbor (pixelated)
	FilterBilinear                   // Bilinear interpolation (smooth)
)

// Texture holds a linear-light 2D image. Textures are immutable once
// published to another goroutine; Dispose releases the pixel storage.
type Texture struct {
	Width      int
	Height     int
	Pixels     []mgl32.Vec3 // Row-major linear color
	WrapU      WrapMode     // Horizontal wrap mode
	WrapV      WrapMode     // Vertical wrap mode
	FilterMode FilterMode   // Sampling filter mode

	disposed atomic.Bool
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:      width,
		Height:     height,
		Pixels:     make([]mgl32.Vec3, width*height),
		WrapU:      WrapRepeat,
		WrapV:      WrapRepeat,
		FilterMode: FilterNearest,
	}
}

// LoadTexture loads a texture from an sRGB image file.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return TextureFromImage(img), nil
}

// TextureFromImage creates a linear texture from an sRGB-encoded image.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// 8-bit sRGB decode table; 16-bit sources are reduced to 8 bits first.
	var lut [256]float32
	for i := range lut {
		lut[i] = shade.SRGBToLinear(float32(i) / 255)
	}

	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			tex.Pixels[y*width+x] = mgl32.Vec3{lut[r>>8], lut[g>>8], lut[b>>8]}
		}
	}
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 mgl32.Vec3) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			cx := x / checkSize
			cy := y / checkSize
			if (cx+cy)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex
}

// SetPixel sets a pixel in the texture.
func (t *Texture) SetPixel(x, y int, c mgl32.Vec3) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y) with bounds checking.
func (t *Texture) GetPixel(x, y int) mgl32.Vec3 {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return mgl32.Vec3{}
	}
	return t.Pixels[y*t.Width+x]
}

// Dispose releases the pixel storage. Sampling a disposed texture returns
// black. Safe to call more than once.
func (t *Texture) Dispose() {
	if t == nil || t.disposed.Swap(true) {
		return
	}
	t.Pixels = nil
	t.Width, t.Height = 0, 0
}

// Disposed reports whether Dispose has been called.
func (t *Texture) Disposed() bool {
	return t != nil && t.disposed.Load()
}

// Sample samples the texture at mesh UV coordinates (0-1 range, V up).
func (t *Texture) Sample(u, v float64) mgl32.Vec3 {
	return t.SampleImage(u, 1.0-t.wrapCoord(v, t.WrapV))
}

// SampleImage samples at image coordinates (V down, origin top-left).
func (t *Texture) SampleImage(u, v float64) mgl32.Vec3 {
	return t.sample(u, v, t.WrapU, t.WrapV)
}

func (t *Texture) sample(u, v float64, wrapU, wrapV WrapMode) mgl32.Vec3 {
	if t.Width == 0 || t.Height == 0 {
		return mgl32.Vec3{}
	}
	u = t.wrapCoord(u, wrapU)
	v = t.wrapCoord(v, wrapV)

	switch t.FilterMode {
	case FilterBilinear:
		return t.sampleBilinear(u, v, wrapU, wrapV)
	default:
		return t.sampleNearest(u, v)
	}
}

// SampleEquirect samples the texture as an equirectangular panorama in
// world direction dir, rotated about +Y by rotationDeg. U repeats and V
// clamps whatever the texture's wrap modes are.
func (t *Texture) SampleEquirect(dir mgl32.Vec3, rotationDeg float32) mgl32.Vec3 {
	uv := shade.EquirectUV(dir, rotationDeg)
	return t.sample(float64(uv[0]), float64(uv[1]), WrapRepeat, WrapClamp)
}

// wrapCoord applies the wrap mode to a coordinate.
func (t *Texture) wrapCoord(coord float64, mode WrapMode) float64 {
	switch mode {
	case WrapRepeat:
		coord = coord - math.Floor(coord) // fmod to [0,1)
	case WrapClamp:
		coord = math.Max(0, math.Min(1, coord))
	}
	return coord
}

// sampleNearest returns the nearest pixel.
func (t *Texture) sampleNearest(u, v float64) mgl32.Vec3 {
	x := int(u * float64(t.Width))
	y := int(v * float64(t.Height))

	// Clamp to valid range
	if x >= t.Width {
		x = t.Width - 1
	}
	if y >= t.Height {
		y = t.Height - 1
	}

	return t.GetPixel(x, y)
}

// sampleBilinear returns bilinearly interpolated color.
func (t *Texture) sampleBilinear(u, v float64, wrapU, wrapV WrapMode) mgl32.Vec3 {
	fx := u*float64(t.Width) - 0.5
	fy := v*float64(t.Height) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := x0 + 1
	y1 := y0 + 1

	tx := float32(fx - float64(x0))
	ty := float32(fy - float64(y0))

	x0 = wrapPixelCoord(x0, t.Width, wrapU)
	x1 = wrapPixelCoord(x1, t.Width, wrapU)
	y0 = wrapPixelCoord(y0, t.Height, wrapV)
	y1 = wrapPixelCoord(y1, t.Height, wrapV)

	top := shade.Mix(t.GetPixel(x0, y0), t.GetPixel(x1, y0), tx)
	bot := shade.Mix(t.GetPixel(x0, y1), t.GetPixel(x1, y1), tx)
	return shade.Mix(top, bot, ty)
}

// wrapPixelCoord wraps a pixel coordinate.
func wrapPixelCoord(x, size int, mode WrapMode) int {
	switch mode {
	case WrapRepeat:
		x = x % size
		if x < 0 {
			x += size
		}
	case WrapClamp:
		if x < 0 {
			x = 0
		} else if x >= size {
			x = size - 1
		}
	}
	return x
}

// Downsample returns a new texture reduced by an integer factor with a box
// filter. Wrap and filter modes are inherited.
func (t *Texture) Downsample(factor int) *Texture {
	if factor <= 1 {
		return t.Clone()
	}
	w := max(1, t.Width/factor)
	h := max(1, t.Height/factor)
	out := NewTexture(w, h)
	out.WrapU, out.WrapV, out.FilterMode = t.WrapU, t.WrapV, t.FilterMode

	for y := range h {
		for x := range w {
			var sum mgl32.Vec3
			n := 0
			for sy := y * factor; sy < min((y+1)*factor, t.Height); sy++ {
				for sx := x * factor; sx < min((x+1)*factor, t.Width); sx++ {
					sum = sum.Add(t.Pixels[sy*t.Width+sx])
					n++
				}
			}
			if n > 0 {
				out.Pixels[y*w+x] = sum.Mul(1 / float32(n))
			}
		}
	}
	return out
}

// Clone returns a deep copy of the texture.
func (t *Texture) Clone() *Texture {
	out := NewTexture(t.Width, t.Height)
	out.WrapU, out.WrapV, out.FilterMode = t.WrapU, t.WrapV, t.FilterMode
	copy(out.Pixels, t.Pixels)
	return out
}

// Average returns the mean color of the texture.
func (t *Texture) Average() mgl32.Vec3 {
	if len(t.Pixels) == 0 {
		return mgl32.Vec3{}
	}
	var sum mgl32.Vec3
	for _, p := range t.Pixels {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float32(len(t.Pixels)))
}
