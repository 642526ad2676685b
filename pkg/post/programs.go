package post

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/pass"
	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
)

// Uniform names.
const (
	uniformFocus        = "focus"
	uniformAperture     = "aperture"
	uniformMaxBlur      = "maxBlur"
	uniformThreshold    = "threshold"
	uniformStrength     = "strength"
	uniformRadius       = "radius"
	uniformColor        = "color"
	uniformMinThreshold = "minThreshold"
	uniformMaxThreshold = "maxThreshold"
	uniformSensitivity  = "sensitivity"
	uniformExposure     = "exposure"
	uniformDirt         = "dirtTexture"
	uniformIntensity    = "intensity"
	uniformOffset       = "offset"
	uniformToneMapping  = "toneMapping"
	uniformVignette     = "vignetteIntensity"
	uniformVignetteTint = "vignetteColor"
)

var errMissingBuffers = errors.New("missing source or destination buffer")

// SceneRenderer draws the scene into a linear HDR framebuffer, writing
// view depth for every covered pixel.
type SceneRenderer interface {
	RenderScene(dst *render.Framebuffer) error
}

// SceneFunc adapts a function to SceneRenderer.
type SceneFunc func(dst *render.Framebuffer) error

func (fn SceneFunc) RenderScene(dst *render.Framebuffer) error { return fn(dst) }

// eachPixel writes fn's result to every pixel of f.Dst.
func eachPixel(f *pass.Frame, fn func(x, y int, uv mgl32.Vec2) mgl32.Vec3) error {
	if f.Src == nil || f.Dst == nil {
		return errMissingBuffers
	}
	for y := 0; y < f.Dst.Height; y++ {
		for x := 0; x < f.Dst.Width; x++ {
			f.Dst.SetPixel(x, y, fn(x, y, f.Dst.UV(x, y)))
		}
	}
	return nil
}

type sceneProgram struct {
	scene SceneRenderer
}

func (p *sceneProgram) Run(f *pass.Frame, _ *pass.Uniforms) error {
	if f.Dst == nil {
		return errMissingBuffers
	}
	if p.scene == nil {
		f.Dst.Clear(mgl32.Vec3{})
		f.Dst.ClearDepth()
		return nil
	}
	return p.scene.RenderScene(f.Dst)
}

// dofProgram blurs each pixel with a box whose radius grows with the
// pixel's distance from the focal plane.
type dofProgram struct {
	table areaTable
}

func (p *dofProgram) Run(f *pass.Frame, u *pass.Uniforms) error {
	if f.Src == nil || f.Dst == nil {
		return errMissingBuffers
	}
	focus := max(u.Float(uniformFocus), 1e-3)
	aperture := u.Float(uniformAperture)
	maxPx := u.Float(uniformMaxBlur) * float32(f.Src.Height)

	p.table.build(f.Src)
	return eachPixel(f, func(x, y int, _ mgl32.Vec2) mgl32.Vec3 {
		r := int(circleOfConfusion(f.Src.DepthAt(x, y), focus, aperture, maxPx) + 0.5)
		if r == 0 {
			return f.Src.Fetch(x, y)
		}
		return p.table.box(x, y, r)
	})
}

// circleOfConfusion returns the blur radius in pixels for a pixel at view
// depth d. Empty pixels are treated as infinitely far.
func circleOfConfusion(d, focus, aperture, maxPx float32) float32 {
	ratio := float32(1)
	if !math.IsInf(float64(d), 1) && d > 0 {
		ratio = float32(math.Abs(float64(d-focus))) / d
	}
	return min(aperture*ratio*cocScale, 1) * maxPx
}

// cocScale converts aperture units to a fraction of the maximum blur.
const cocScale = 100

// bloomProgram extracts the highlights at half resolution, blurs them and
// adds them back. The blurred buffer is kept for the tint pass.
type bloomProgram struct {
	half, tmp, blurred *render.Framebuffer
}

func (p *bloomProgram) Resize(width, height int) {
	w, h := max(width/2, 1), max(height/2, 1)
	if p.half == nil {
		p.half = render.NewFramebuffer(w, h)
		p.tmp = render.NewFramebuffer(w, h)
		p.blurred = render.NewFramebuffer(w, h)
		return
	}
	p.half.Resize(w, h)
	p.tmp.Resize(w, h)
	p.blurred.Resize(w, h)
}

func (p *bloomProgram) Dispose() {
	p.half, p.tmp, p.blurred = nil, nil, nil
}

func (p *bloomProgram) Run(f *pass.Frame, u *pass.Uniforms) error {
	if f.Src == nil || f.Dst == nil {
		return errMissingBuffers
	}
	if p.half == nil {
		p.Resize(f.Src.Width, f.Src.Height)
	}
	threshold := u.Float(uniformThreshold)
	strength := u.Float(uniformStrength)
	sigma := 1 + u.Float(uniformRadius)*4

	for y := 0; y < p.half.Height; y++ {
		for x := 0; x < p.half.Width; x++ {
			c := f.Src.Sample(p.half.UV(x, y))
			lum := shade.Luminance(c)
			k := max(lum-threshold, 0) / max(lum, 1e-4)
			p.half.SetPixel(x, y, c.Mul(k))
		}
	}
	blurInto(p.blurred, p.tmp, p.half, gaussianKernel(sigma))

	return eachPixel(f, func(x, y int, uv mgl32.Vec2) mgl32.Vec3 {
		return f.Src.Fetch(x, y).Add(p.blurred.Sample(uv).Mul(strength))
	})
}

// bloomTintProgram adds a tint where the bloom is bright.
type bloomTintProgram struct {
	bloom *bloomProgram
}

func (p *bloomTintProgram) Run(f *pass.Frame, u *pass.Uniforms) error {
	tint := u.Vec3(uniformColor)
	strength := u.Float(uniformStrength)
	return eachPixel(f, func(x, y int, uv mgl32.Vec2) mgl32.Vec3 {
		c := f.Src.Fetch(x, y)
		if p.bloom.blurred == nil {
			return c
		}
		mask := shade.Clamp01(shade.Luminance(p.bloom.blurred.Sample(uv)))
		return shade.BloomTint(c, tint, mask, strength)
	})
}

func runLensDirt(f *pass.Frame, u *pass.Uniforms) error {
	dirt := u.Texture(uniformDirt)
	if dirt == nil || dirt.Disposed() {
		return errors.New("lens dirt texture unavailable")
	}
	strength := u.Float(uniformStrength)
	lo, hi := u.Float(uniformMinThreshold), u.Float(uniformMaxThreshold)
	gain := u.Float(uniformExposure) * u.Float(uniformSensitivity)
	return eachPixel(f, func(x, y int, uv mgl32.Vec2) mgl32.Vec3 {
		c := f.Src.Fetch(x, y)
		w := shade.Smoothstep(lo, hi, shade.Luminance(c)*gain)
		if w == 0 {
			return c
		}
		m := dirt.SampleImage(float64(uv[0]), float64(uv[1]))[0]
		return c.Add(c.Mul(m * w * strength))
	})
}

// grainProgram adds film grain and keeps the ungrained frame for the tint
// pass.
type grainProgram struct {
	base *render.Framebuffer
}

func (p *grainProgram) Dispose() { p.base = nil }

func (p *grainProgram) Run(f *pass.Frame, u *pass.Uniforms) error {
	if f.Src == nil || f.Dst == nil {
		return errMissingBuffers
	}
	if p.base == nil {
		p.base = render.NewFramebuffer(f.Src.Width, f.Src.Height)
	}
	p.base.Resize(f.Src.Width, f.Src.Height)
	if err := p.base.CopyFrom(f.Src); err != nil {
		return err
	}
	intensity := u.Float(uniformIntensity)
	seed := float32(math.Mod(float64(f.Time), 97))
	return eachPixel(f, func(x, y int, uv mgl32.Vec2) mgl32.Vec3 {
		return shade.Grain(f.Src.Fetch(x, y), uv, seed, intensity)
	})
}

type grainTintProgram struct {
	grain *grainProgram
}

func (p *grainTintProgram) Run(f *pass.Frame, u *pass.Uniforms) error {
	base := p.grain.base
	if base == nil || f.Src == nil || base.Width != f.Src.Width || base.Height != f.Src.Height {
		return errors.New("grain base frame unavailable")
	}
	tint := u.Vec3(uniformColor)
	return eachPixel(f, func(x, y int, _ mgl32.Vec2) mgl32.Vec3 {
		return shade.GrainTint(base.Fetch(x, y), f.Src.Fetch(x, y), tint)
	})
}

func runAberration(f *pass.Frame, u *pass.Uniforms) error {
	offset, strength := u.Float(uniformOffset), u.Float(uniformStrength)
	return eachPixel(f, func(x, y int, uv mgl32.Vec2) mgl32.Vec3 {
		red, blue := shade.ChromaticOffsets(uv, offset, strength)
		return mgl32.Vec3{
			f.Src.Sample(uv.Add(red))[0],
			f.Src.Fetch(x, y)[1],
			f.Src.Sample(uv.Add(blue))[2],
		}
	})
}

// FXAA constants.
const (
	fxaaReduceMul = 1.0 / 8
	fxaaReduceMin = 1.0 / 128
	fxaaSpanMax   = 8
)

// runFXAA is the classic single-pass FXAA on tone-compressed luma.
func runFXAA(f *pass.Frame, u *pass.Uniforms) error {
	texel := u.Vec2(pass.UniformTexelSize)
	luma := func(c mgl32.Vec3) float32 { return shade.ToneMapLuminance(shade.Luminance(c)) }
	return eachPixel(f, func(x, y int, uv mgl32.Vec2) mgl32.Vec3 {
		m := f.Src.Fetch(x, y)
		lM := luma(m)
		lNW := luma(f.Src.Fetch(x-1, y-1))
		lNE := luma(f.Src.Fetch(x+1, y-1))
		lSW := luma(f.Src.Fetch(x-1, y+1))
		lSE := luma(f.Src.Fetch(x+1, y+1))

		lMin := min(lM, lNW, lNE, lSW, lSE)
		lMax := max(lM, lNW, lNE, lSW, lSE)

		dir := mgl32.Vec2{
			-((lNW + lNE) - (lSW + lSE)),
			(lNW + lSW) - (lNE + lSE),
		}
		if dir[0] == 0 && dir[1] == 0 {
			return m
		}
		reduce := max((lNW+lNE+lSW+lSE)*0.25*fxaaReduceMul, fxaaReduceMin)
		rcp := 1 / (min(abs32(dir[0]), abs32(dir[1])) + reduce)
		dir = mgl32.Vec2{
			mgl32.Clamp(dir[0]*rcp, -fxaaSpanMax, fxaaSpanMax) * texel[0],
			mgl32.Clamp(dir[1]*rcp, -fxaaSpanMax, fxaaSpanMax) * texel[1],
		}

		a := f.Src.Sample(uv.Add(dir.Mul(1.0/3 - 0.5))).
			Add(f.Src.Sample(uv.Add(dir.Mul(2.0/3 - 0.5)))).Mul(0.5)
		b := a.Mul(0.5).Add(
			f.Src.Sample(uv.Add(dir.Mul(-0.5))).
				Add(f.Src.Sample(uv.Add(dir.Mul(0.5)))).Mul(0.25))
		if lb := luma(b); lb < lMin || lb > lMax {
			return a
		}
		return b
	})
}

func runExposure(f *pass.Frame, u *pass.Uniforms) error {
	e := u.Float(uniformExposure)
	return eachPixel(f, func(x, y int, _ mgl32.Vec2) mgl32.Vec3 {
		return shade.Exposure(f.Src.Fetch(x, y), e)
	})
}

// runOutput tone maps and applies the vignette on display-referred values.
func runOutput(f *pass.Frame, u *pass.Uniforms) error {
	mode := shade.ToneMappingFromCode(u.Int(uniformToneMapping))
	intensity := u.Float(uniformVignette)
	tint := u.Vec3(uniformVignetteTint)
	return eachPixel(f, func(x, y int, uv mgl32.Vec2) mgl32.Vec3 {
		c := shade.ToneMap(f.Src.Fetch(x, y), mode)
		return shade.Vignette(c, uv, intensity, tint)
	})
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
