package env

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
)

// DefaultLevels is the number of roughness levels in a reflection map.
const DefaultLevels = 6

// minLevelHeight stops the chain before levels degenerate.
const minLevelHeight = 4

// ReflectionMap is a prefiltered panorama: level 0 is the source, each
// following level is half the size and blurrier. Specular lookups pick
// levels by roughness; the last level stands in for diffuse irradiance.
type ReflectionMap struct {
	levels   []*render.Texture
	disposed atomic.Bool
}

// NewReflectionMap prefilters src. Levels are computed in parallel; a
// cancelled ctx aborts the work. The map references src as level 0 but
// does not own it.
func NewReflectionMap(ctx context.Context, src *render.Texture, levels int) (*ReflectionMap, error) {
	if src == nil || src.Width == 0 || src.Height == 0 {
		return nil, errors.New("reflection map: empty source")
	}
	n := 1
	for n < levels && src.Height>>n >= minLevelHeight {
		n++
	}

	out := make([]*render.Texture, n)
	out[0] = src
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i < n; i++ {
		g.Go(func() error {
			lvl := src.Downsample(1 << i)
			equirect(lvl)
			radius := i
			if i == n-1 {
				radius = max(i, lvl.Width/8)
			}
			if err := blurPanorama(gctx, lvl, radius); err != nil {
				return err
			}
			out[i] = lvl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, lvl := range out[1:] {
			if lvl != nil {
				lvl.Dispose()
			}
		}
		return nil, err
	}
	return &ReflectionMap{levels: out}, nil
}

// blurPanorama runs a separable box blur in place, wrapping horizontally
// and clamping vertically.
func blurPanorama(ctx context.Context, t *render.Texture, radius int) error {
	if radius <= 0 {
		return nil
	}
	w, h := t.Width, t.Height
	tmp := make([]mgl32.Vec3, len(t.Pixels))
	norm := 1 / float32(2*radius+1)

	for y := range h {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := t.Pixels[y*w : (y+1)*w]
		for x := range w {
			var sum mgl32.Vec3
			for k := -radius; k <= radius; k++ {
				sum = sum.Add(row[((x+k)%w+w)%w])
			}
			tmp[y*w+x] = sum.Mul(norm)
		}
	}
	for y := range h {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := range w {
			var sum mgl32.Vec3
			for k := -radius; k <= radius; k++ {
				sy := min(max(y+k, 0), h-1)
				sum = sum.Add(tmp[sy*w+x])
			}
			t.Pixels[y*w+x] = sum.Mul(norm)
		}
	}
	return nil
}

// Levels returns the number of levels.
func (m *ReflectionMap) Levels() int { return len(m.levels) }

// Level returns level i, nil when out of range.
func (m *ReflectionMap) Level(i int) *render.Texture {
	if i < 0 || i >= len(m.levels) {
		return nil
	}
	return m.levels[i]
}

// Base returns the source panorama.
func (m *ReflectionMap) Base() *render.Texture { return m.levels[0] }

// Specular returns prefiltered radiance along dir for a roughness in [0, 1],
// with the panorama rotated about +Y by rotationDeg.
func (m *ReflectionMap) Specular(dir mgl32.Vec3, roughness, rotationDeg float32) mgl32.Vec3 {
	f := shade.Clamp01(roughness) * float32(len(m.levels)-1)
	lo := int(f)
	hi := min(lo+1, len(m.levels)-1)
	a := m.levels[lo].SampleEquirect(dir, rotationDeg)
	if hi == lo {
		return a
	}
	b := m.levels[hi].SampleEquirect(dir, rotationDeg)
	return shade.Mix(a, b, f-float32(lo))
}

// Irradiance returns the diffuse term for a surface normal.
func (m *ReflectionMap) Irradiance(normal mgl32.Vec3, rotationDeg float32) mgl32.Vec3 {
	return m.levels[len(m.levels)-1].SampleEquirect(normal, rotationDeg)
}

// Dispose releases the derived levels. The source texture is left to its
// owner. Safe to call more than once.
func (m *ReflectionMap) Dispose() {
	if m == nil || m.disposed.Swap(true) {
		return
	}
	for _, lvl := range m.levels[1:] {
		lvl.Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (m *ReflectionMap) Disposed() bool {
	return m != nil && m.disposed.Load()
}
