package grade

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/pass"
	"github.com/taigrr/studio/pkg/shade"
)

const (
	// contrastPivot is the scene-linear middle gray contrast pivots around.
	contrastPivot = 0.18
	// clarityRadius is the local-contrast blur radius in texels.
	clarityRadius = 3
	// fadeLift is the black level at full fade.
	fadeLift = 0.06
)

var errNoTarget = errors.New("grade: missing source or destination buffer")

// Program returns the grade shader. It reads scene-linear HDR color and
// writes scene-linear HDR color; tone mapping runs after it.
func Program() pass.Program {
	return pass.ProgramFunc(run)
}

func run(f *pass.Frame, u *pass.Uniforms) error {
	if f.Src == nil || f.Dst == nil {
		return errNoTarget
	}
	k := knobs{
		contrast:    u.Float(UniformContrast),
		saturation:  u.Float(UniformSaturation),
		temperature: u.Float(UniformTemperature),
		tint:        u.Float(UniformTint),
		highlights:  u.Float(UniformHighlights),
		shadows:     u.Float(UniformShadows),
		clarity:     u.Float(UniformClarity),
		fade:        u.Float(UniformFade),
		sharpness:   u.Float(UniformSharpness),
		texel:       u.Vec2(pass.UniformTexelSize),
	}
	for y := 0; y < f.Dst.Height; y++ {
		for x := 0; x < f.Dst.Width; x++ {
			uv := f.Dst.UV(x, y)
			f.Dst.SetPixel(x, y, k.apply(f.Src, uv))
		}
	}
	return nil
}

type knobs struct {
	contrast, saturation     float32
	temperature, tint        float32
	highlights, shadows      float32
	clarity, fade, sharpness float32
	texel                    mgl32.Vec2
}

type sampler interface {
	Sample(uv mgl32.Vec2) mgl32.Vec3
}

func (k knobs) apply(src sampler, uv mgl32.Vec2) mgl32.Vec3 {
	c := src.Sample(uv)

	if k.sharpness > 0 {
		blur := cross(src, uv, k.texel)
		c = c.Add(c.Sub(blur).Mul(k.sharpness))
	}
	if k.clarity != 0 {
		blur := cross(src, uv, k.texel.Mul(clarityRadius))
		detail := shade.Luminance(c) - shade.Luminance(blur)
		lt := shade.ToneMapLuminance(shade.Luminance(c))
		midtones := 1 - math32Abs(lt*2-1)
		c = c.Mul(1 + detail*k.clarity*midtones)
	}

	c = whiteBalance(c, k.temperature, k.tint)
	c = contrast(c, k.contrast)

	lum := shade.Luminance(c)
	grey := mgl32.Vec3{lum, lum, lum}
	c = shade.Mix(grey, c, k.saturation)

	if k.highlights != 0 || k.shadows != 0 {
		lt := shade.ToneMapLuminance(max(shade.Luminance(c), 0))
		hi := shade.Smoothstep(0.5, 1, lt)
		lo := 1 - shade.Smoothstep(0, 0.5, lt)
		c = c.Mul(1 + k.highlights*hi*0.5 + k.shadows*lo)
	}

	if k.fade > 0 {
		faded := c.Mul(1 - fadeLift).Add(mgl32.Vec3{fadeLift, fadeLift, fadeLift})
		c = shade.Mix(c, faded, k.fade)
	}
	return shade.MaxVec(c, 0)
}

// cross averages four diagonal taps at the given offset.
func cross(src sampler, uv, offset mgl32.Vec2) mgl32.Vec3 {
	ox, oy := offset[0], offset[1]
	sum := src.Sample(mgl32.Vec2{uv[0] - ox, uv[1] - oy}).
		Add(src.Sample(mgl32.Vec2{uv[0] + ox, uv[1] - oy})).
		Add(src.Sample(mgl32.Vec2{uv[0] - ox, uv[1] + oy})).
		Add(src.Sample(mgl32.Vec2{uv[0] + ox, uv[1] + oy}))
	return sum.Mul(0.25)
}

// whiteBalance shifts along the blue-amber axis by temperature and the
// green-magenta axis by tint.
func whiteBalance(c mgl32.Vec3, temperature, tint float32) mgl32.Vec3 {
	if temperature == 0 && tint == 0 {
		return c
	}
	gain := mgl32.Vec3{
		1 + 0.2*temperature + 0.1*tint,
		1 - 0.2*tint,
		1 - 0.2*temperature + 0.1*tint,
	}
	return shade.MulVec(c, gain)
}

// contrast applies a power curve around middle gray in log space.
func contrast(c mgl32.Vec3, amount float32) mgl32.Vec3 {
	if amount == 1 {
		return c
	}
	for i := range 3 {
		if c[i] <= 0 {
			continue
		}
		c[i] = contrastPivot * float32(math.Pow(float64(c[i]/contrastPivot), float64(amount)))
	}
	return c
}

func math32Abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
