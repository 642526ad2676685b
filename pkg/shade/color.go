// Package shade is the catalog of per-pixel image transforms shared by every
// render pass. Everything here is pure: no state, no allocation beyond return
// values, safe to call from any goroutine.
package shade

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Rec. 709 luma coefficients.
var lumaWeights = mgl32.Vec3{0.2126, 0.7152, 0.0722}

// Luminance returns the relative luminance of a linear RGB color.
func Luminance(c mgl32.Vec3) float32 {
	return c.Dot(lumaWeights)
}

// Clamp01 clamps x to [0, 1]. NaN maps to 0.
func Clamp01(x float32) float32 {
	if !(x > 0) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Saturate clamps every channel of c to [0, 1].
func Saturate(c mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{Clamp01(c[0]), Clamp01(c[1]), Clamp01(c[2])}
}

// Smoothstep is the GLSL smoothstep.
func Smoothstep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// Mix linearly interpolates between a and b.
func Mix(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// MulVec returns the component-wise product a * b.
func MulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// MaxVec clamps every channel of c to at least lo.
func MaxVec(c mgl32.Vec3, lo float32) mgl32.Vec3 {
	for i := range c {
		if !(c[i] > lo) {
			c[i] = lo
		}
	}
	return c
}

// SRGBToLinear decodes one sRGB-encoded channel.
func SRGBToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}

// LinearToSRGB encodes one linear channel with the sRGB transfer curve.
func LinearToSRGB(v float32) float32 {
	v = Clamp01(v)
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*float32(math.Pow(float64(v), 1/2.4)) - 0.055
}

// DecodeSRGB converts an sRGB color to linear light.
func DecodeSRGB(c mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{SRGBToLinear(c[0]), SRGBToLinear(c[1]), SRGBToLinear(c[2])}
}

// EncodeSRGB converts a linear color to display sRGB, clamped to [0, 1].
func EncodeSRGB(c mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{LinearToSRGB(c[0]), LinearToSRGB(c[1]), LinearToSRGB(c[2])}
}

// ParseColor parses a CSS-style hex color ("#rgb" or "#rrggbb") and returns
// it in linear light.
func ParseColor(s string) (mgl32.Vec3, error) {
	if len(s) > 0 && s[0] != '#' {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.LinearRgb()
	return mgl32.Vec3{float32(r), float32(g), float32(b)}, nil
}

// FormatColor renders a linear color back to "#rrggbb".
func FormatColor(c mgl32.Vec3) string {
	c = Saturate(c)
	return colorful.LinearRgb(float64(c[0]), float64(c[1]), float64(c[2])).Clamped().Hex()
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
