package post

import (
	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
)

const dirtSize = 256

// newDirtTexture builds a grayscale smudge mask from two octaves of Perlin
// noise. The same seed always yields the same mask.
func newDirtTexture(seed int64) *render.Texture {
	coarse := perlin.NewPerlin(2, 2, 3, seed)
	fine := perlin.NewPerlin(1.5, 3, 2, seed+1)

	tex := render.NewTexture(dirtSize, dirtSize)
	tex.FilterMode = render.FilterBilinear
	for y := range dirtSize {
		for x := range dirtSize {
			u := float64(x) / dirtSize
			v := float64(y) / dirtSize
			smudge := shade.Smoothstep(0.05, 0.45, float32(coarse.Noise2D(u*4, v*4)))
			specks := shade.Smoothstep(0.3, 0.5, float32(fine.Noise2D(u*24, v*24)))
			m := shade.Clamp01(smudge*0.7 + specks*0.5)
			tex.SetPixel(x, y, mgl32.Vec3{m, m, m})
		}
	}
	return tex
}
