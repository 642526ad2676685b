package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/shade"
)

func TestFramebufferClearAndFetch(t *testing.T) {
	fb := NewFramebuffer(5, 3)
	c := mgl32.Vec3{0.25, 0.5, 2}
	fb.Clear(c)
	for i, p := range fb.Pixels {
		if p != c {
			t.Fatalf("pixel %d = %v, want %v", i, p, c)
		}
	}

	fb.SetPixel(4, 2, mgl32.Vec3{1, 1, 1})
	if got := fb.Fetch(10, 10); got != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("Fetch past the corner = %v, want clamped corner pixel", got)
	}
	if got := fb.GetPixel(10, 10); got != (mgl32.Vec3{}) {
		t.Errorf("GetPixel out of bounds = %v, want black", got)
	}
	if !math.IsInf(float64(fb.DepthAt(0, 0)), 1) {
		t.Error("new framebuffer depth should be +Inf")
	}
}

func TestFramebufferSampleBilinear(t *testing.T) {
	fb := NewFramebuffer(2, 1)
	fb.SetPixel(0, 0, mgl32.Vec3{0, 0, 0})
	fb.SetPixel(1, 0, mgl32.Vec3{1, 1, 1})

	got := fb.Sample(mgl32.Vec2{0.5, 0.5})
	if math.Abs(float64(got[0]-0.5)) > 1e-6 {
		t.Errorf("midpoint sample = %v, want 0.5", got)
	}
	if got := fb.Sample(fb.UV(1, 0)); got != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("pixel-center sample = %v, want exact texel", got)
	}
}

func TestFramebufferResizeAndCopy(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	fb.Resize(8, 2)
	if fb.Width != 8 || fb.Height != 2 || len(fb.Pixels) != 16 || len(fb.Depth) != 16 {
		t.Fatalf("resize produced %dx%d with %d pixels", fb.Width, fb.Height, len(fb.Pixels))
	}

	src := NewFramebuffer(8, 2)
	src.Clear(mgl32.Vec3{0.3, 0.3, 0.3})
	if err := fb.CopyFrom(src); err != nil {
		t.Fatal(err)
	}
	if fb.GetPixel(7, 1) != src.GetPixel(7, 1) {
		t.Error("copy did not transfer pixels")
	}
	if err := fb.CopyFrom(NewFramebuffer(1, 1)); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestFramebufferToImageEncodesSRGB(t *testing.T) {
	fb := NewFramebuffer(3, 1)
	fb.SetPixel(0, 0, mgl32.Vec3{0, 0, 0})
	fb.SetPixel(1, 0, mgl32.Vec3{1, 1, 1})
	fb.SetPixel(2, 0, mgl32.Vec3{5, -1, 0.214})

	img := fb.ToImage()
	if got := img.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("black = %v", got)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("white = %v", got)
	}
	got := img.RGBAAt(2, 0)
	if got.R != 255 || got.G != 0 {
		t.Errorf("out of range values not clamped: %v", got)
	}
	// Linear 0.214 is roughly sRGB 128.
	if got.B < 126 || got.B > 130 {
		t.Errorf("mid gray encoded as %d, want ~128", got.B)
	}
}

func TestTextureFromImageDecodesSRGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{128, 128, 128, 255})

	tex := TextureFromImage(img)
	if got := tex.GetPixel(0, 0); math.Abs(float64(got[0]-1)) > 1e-6 || got[1] != 0 {
		t.Errorf("red = %v", got)
	}
	if got := tex.GetPixel(1, 0); math.Abs(float64(got[0]-0.2158)) > 1e-3 {
		t.Errorf("gray decoded to %v, want ~0.216 linear", got[0])
	}
}

func TestTextureDownsample(t *testing.T) {
	tex := NewCheckerTexture(8, 8, 1, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0, 0, 0})
	small := tex.Downsample(4)
	if small.Width != 2 || small.Height != 2 {
		t.Fatalf("size = %dx%d, want 2x2", small.Width, small.Height)
	}
	for _, p := range small.Pixels {
		if math.Abs(float64(p[0]-0.5)) > 1e-6 {
			t.Errorf("box filtered checker = %v, want 0.5", p)
		}
	}
}

func TestTextureDispose(t *testing.T) {
	tex := NewTexture(1, 1)
	tex.Pixels[0] = mgl32.Vec3{1, 0, 0}
	if tex.Disposed() {
		t.Fatal("fresh texture reports disposed")
	}
	tex.Dispose()
	tex.Dispose()
	if !tex.Disposed() {
		t.Error("Dispose did not mark texture")
	}
	if got := tex.SampleImage(0.5, 0.5); got != (mgl32.Vec3{}) {
		t.Errorf("disposed texture sampled %v, want black", got)
	}
}

func TestTextureSampleEquirect(t *testing.T) {
	top := mgl32.Vec3{0, 0, 1}
	bottom := mgl32.Vec3{0, 1, 0}
	tex := NewTexture(16, 8)
	for y := range tex.Height {
		c := shade.Mix(top, bottom, float32(y)/float32(tex.Height-1))
		for x := range tex.Width {
			tex.SetPixel(x, y, c)
		}
	}

	if got := tex.SampleEquirect(mgl32.Vec3{0, 1, 0}, 0); got != top {
		t.Errorf("zenith = %v, want %v", got, top)
	}
	if got := tex.SampleEquirect(mgl32.Vec3{0, -1, 0}, 45); got != bottom {
		t.Errorf("nadir = %v, want %v", got, bottom)
	}
}

func TestHalfBlockDraw(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 4))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(0, 1, color.RGBA{0, 0, 255, 255})

	scr := uv.NewScreenBuffer(2, 2)
	HalfBlock{Image: img}.Draw(scr, uv.Rect(0, 0, 2, 2))

	cell := scr.CellAt(0, 0)
	if cell == nil || cell.Content != "▀" {
		t.Fatalf("cell = %+v, want half block", cell)
	}
	if cell.Style.Fg != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("fg = %v, want top pixel", cell.Style.Fg)
	}
	if cell.Style.Bg != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("bg = %v, want bottom pixel", cell.Style.Bg)
	}
}
