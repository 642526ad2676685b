package shade

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// EquirectUV maps a world direction to equirectangular texture coordinates,
// rotated about +Y by rotationDeg. U wraps in [0,1), V is 0 at the top.
func EquirectUV(dir mgl32.Vec3, rotationDeg float32) mgl32.Vec2 {
	l := dir.Len()
	if l == 0 || !IsFinite(l) {
		return mgl32.Vec2{0.5, 0.5}
	}
	dir = dir.Mul(1 / l)
	phi := math.Atan2(float64(dir[0]), float64(-dir[2]))
	theta := math.Acos(float64(mgl32.Clamp(dir[1], -1, 1)))
	u := phi/(2*math.Pi) + 0.5 - float64(rotationDeg)/360
	u -= math.Floor(u)
	return mgl32.Vec2{float32(u), float32(theta / math.Pi)}
}

// EquirectDirection is the inverse of EquirectUV for rotation 0.
func EquirectDirection(uv mgl32.Vec2) mgl32.Vec3 {
	phi := (float64(uv[0]) - 0.5) * 2 * math.Pi
	theta := float64(uv[1]) * math.Pi
	s := math.Sin(theta)
	return mgl32.Vec3{
		float32(s * math.Sin(phi)),
		float32(math.Cos(theta)),
		float32(-s * math.Cos(phi)),
	}
}

// NormalizeDegrees wraps deg into [0, 360).
func NormalizeDegrees(deg float32) float32 {
	d := math.Mod(float64(deg), 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return float32(d)
}

// Reflect mirrors the incident vector i about normal n.
func Reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * n.Dot(i)))
}

// RimParams gates and shapes the fresnel rim term of the scene shader.
type RimParams struct {
	Enabled bool
	Color   mgl32.Vec3
	Bias    float32
	Scale   float32
	Power   float32
}

// DefaultRim is a soft white rim, disabled.
func DefaultRim() RimParams {
	return RimParams{Color: mgl32.Vec3{1, 1, 1}, Bias: 0.0, Scale: 1.0, Power: 3.0}
}

// FresnelRim returns the empirical rim factor bias + scale*(1 - n.v)^power
// clamped to [0, 1]. n and v must be unit length, v pointing at the viewer.
func FresnelRim(n, v mgl32.Vec3, p RimParams) float32 {
	if !p.Enabled {
		return 0
	}
	cos := Clamp01(n.Dot(v))
	return Clamp01(p.Bias + p.Scale*float32(math.Pow(float64(1-cos), float64(p.Power))))
}

// FresnelSchlick returns the Schlick approximation for base reflectance f0.
func FresnelSchlick(cosTheta float32, f0 mgl32.Vec3) mgl32.Vec3 {
	f := float32(math.Pow(float64(1-Clamp01(cosTheta)), 5))
	return f0.Add(mgl32.Vec3{1, 1, 1}.Sub(f0).Mul(f))
}
