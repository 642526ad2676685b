package shade

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// BloomTintGain converts the user-facing bloom strength into the tint
	// multiplier; subtle strength changes must still shift the color cast.
	BloomTintGain = 7.5
	// BloomTintMax caps the amplified tint multiplier.
	BloomTintMax = 4.0
	// bloomTintScale attenuates the additive tint term.
	bloomTintScale = 0.25
)

// Exposure multiplies a linear color by a scalar exposure.
func Exposure(c mgl32.Vec3, exposure float32) mgl32.Vec3 {
	return c.Mul(exposure)
}

// BloomTintStrength maps the user bloom strength to the tint multiplier.
func BloomTintStrength(bloomStrength float32) float32 {
	if !(bloomStrength > 0) {
		return 0
	}
	s := bloomStrength * BloomTintGain
	if s > BloomTintMax {
		return BloomTintMax
	}
	return s
}

// BloomTint adds a luminance-masked tint. mask is the bloom contribution at
// the pixel, strength the already amplified multiplier.
func BloomTint(c, tint mgl32.Vec3, mask, strength float32) mgl32.Vec3 {
	if strength == 0 || !(mask > 0) {
		return c
	}
	lum := Clamp01(Luminance(c))
	return c.Add(tint.Mul(lum * mask * strength * bloomTintScale))
}

// GrainNoise returns a pseudo-random value in [0, 1) for a pixel coordinate
// and time seed. It is the classic sine hash, cheap and stable per frame.
func GrainNoise(uv mgl32.Vec2, seed float32) float32 {
	x := float64(uv[0]+seed)*12.9898 + float64(uv[1]+seed)*78.233
	v := math.Sin(x) * 43758.5453
	return float32(v - math.Floor(v))
}

// Grain perturbs c with zero-mean noise scaled by intensity. Bright pixels
// receive less grain than midtones.
func Grain(c mgl32.Vec3, uv mgl32.Vec2, seed, intensity float32) mgl32.Vec3 {
	if intensity == 0 {
		return c
	}
	n := GrainNoise(uv, seed) - 0.5
	response := 1 - 0.5*Clamp01(Luminance(c))
	return c.Add(mgl32.Vec3{1, 1, 1}.Mul(n * intensity * response))
}

// GrainTint blends the grain residual toward a tint color. grained is the
// output of Grain, base the color before grain was added.
func GrainTint(base, grained, tint mgl32.Vec3) mgl32.Vec3 {
	delta := grained.Sub(base)
	return base.Add(MulVec(delta, tint))
}

// ChromaticOffsets returns the red and blue sampling offsets for a radial
// chromatic shift at uv. Green is sampled unshifted.
func ChromaticOffsets(uv mgl32.Vec2, offset, strength float32) (red, blue mgl32.Vec2) {
	dir := uv.Sub(mgl32.Vec2{0.5, 0.5})
	dist := dir.Len()
	amount := offset * strength * dist
	shift := dir.Mul(amount)
	return shift, shift.Mul(-1)
}

// Vignette darkens toward the frame edges, blending to color.
func Vignette(c mgl32.Vec3, uv mgl32.Vec2, intensity float32, color mgl32.Vec3) mgl32.Vec3 {
	if intensity <= 0 {
		return c
	}
	d := uv.Sub(mgl32.Vec2{0.5, 0.5}).Len() * 1.41421356
	falloff := Smoothstep(0.8, 0.2, d*intensity)
	return Mix(color, c, falloff)
}
