package post

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/render"
)

// gaussianKernel returns normalized weights for offsets 0..radius.
func gaussianKernel(sigma float32) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}
	radius := int(math.Ceil(float64(sigma) * 3))
	w := make([]float32, radius+1)
	var sum float32
	for i := range w {
		x := float64(i) / float64(sigma)
		w[i] = float32(math.Exp(-0.5 * x * x))
		if i == 0 {
			sum += w[i]
		} else {
			sum += 2 * w[i]
		}
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// blurInto runs a separable gaussian over src, using tmp as the
// intermediate. All three buffers share dimensions.
func blurInto(dst, tmp, src *render.Framebuffer, kernel []float32) {
	blurAxis(tmp, src, kernel, 1, 0)
	blurAxis(dst, tmp, kernel, 0, 1)
}

func blurAxis(dst, src *render.Framebuffer, kernel []float32, dx, dy int) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			c := src.Fetch(x, y).Mul(kernel[0])
			for i := 1; i < len(kernel); i++ {
				a := src.Fetch(x+i*dx, y+i*dy)
				b := src.Fetch(x-i*dx, y-i*dy)
				c = c.Add(a.Add(b).Mul(kernel[i]))
			}
			dst.SetPixel(x, y, c)
		}
	}
}

// areaTable is a summed-area table over a framebuffer's colors, giving
// constant-time box averages of any radius.
type areaTable struct {
	w, h int
	sums [][3]float64
}

func (t *areaTable) build(src *render.Framebuffer) {
	t.w, t.h = src.Width, src.Height
	stride := t.w + 1
	n := stride * (t.h + 1)
	if cap(t.sums) < n {
		t.sums = make([][3]float64, n)
	}
	t.sums = t.sums[:n]
	clear(t.sums[:stride])
	for y := 1; y <= t.h; y++ {
		var row [3]float64
		t.sums[y*stride] = [3]float64{}
		for x := 1; x <= t.w; x++ {
			c := src.Pixels[(y-1)*t.w+(x-1)]
			for k := range 3 {
				row[k] += float64(c[k])
				t.sums[y*stride+x][k] = t.sums[(y-1)*stride+x][k] + row[k]
			}
		}
	}
}

// box returns the mean color of the square of the given radius around
// (x, y), clipped to the frame.
func (t *areaTable) box(x, y, radius int) mgl32.Vec3 {
	x0, y0 := max(x-radius, 0), max(y-radius, 0)
	x1, y1 := min(x+radius+1, t.w), min(y+radius+1, t.h)
	stride := t.w + 1
	area := float64((x1 - x0) * (y1 - y0))
	var c mgl32.Vec3
	for k := range 3 {
		s := t.sums[y1*stride+x1][k] - t.sums[y0*stride+x1][k] - t.sums[y1*stride+x0][k] + t.sums[y0*stride+x0][k]
		c[k] = float32(s / area)
	}
	return c
}
