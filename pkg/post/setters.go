package post

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/shade"
)

// noOp is the magnitude below which an effect is treated as off and its
// pass disabled.
const noOp = 1e-3

// Apply runs every setter with the fields of s.
func (p *Pipeline) Apply(s Settings) {
	p.UpdateDepthOfField(s.DepthOfField)
	p.UpdateBloom(s.Bloom)
	p.UpdateLensDirt(s.LensDirt)
	p.UpdateGrain(s.Grain)
	p.UpdateAberration(s.Aberration)
	p.UpdateColorGrade(s.ColorGrade)
	p.UpdateVignette(s.Vignette)
	p.SetToneMapping(s.ToneMapping)
	p.SetExposure(s.Exposure)
	p.SetAntiAliasing(s.AntiAliasing)
}

// UpdateDepthOfField configures the focus blur. The pass is off when the
// aperture or maximum blur is negligible.
func (p *Pipeline) UpdateDepthOfField(s DepthOfFieldSettings) {
	prev := p.settings.DepthOfField
	s.Focus = max(p.finite("depthOfField.focus", s.Focus, prev.Focus), 0)
	s.Aperture = max(p.finite("depthOfField.aperture", s.Aperture, prev.Aperture), 0)
	s.MaxBlur = shade.Clamp01(p.finite("depthOfField.maxBlur", s.MaxBlur, prev.MaxBlur))
	p.settings.DepthOfField = s

	ps := p.byName[SlotDepthOfField]
	ps.Uniforms.SetFloat(uniformFocus, s.Focus)
	ps.Uniforms.SetFloat(uniformAperture, s.Aperture)
	ps.Uniforms.SetFloat(uniformMaxBlur, s.MaxBlur)
	ps.Enabled = s.Enabled && s.Aperture > noOp && s.MaxBlur > noOp
}

// UpdateBloom configures the bloom and its tint. Both passes switch off
// together when the strength is negligible.
func (p *Pipeline) UpdateBloom(s BloomSettings) {
	prev := p.settings.Bloom
	s.Threshold = max(p.finite("bloom.threshold", s.Threshold, prev.Threshold), 0)
	s.Strength = max(p.finite("bloom.strength", s.Strength, prev.Strength), 0)
	s.Radius = shade.Clamp01(p.finite("bloom.radius", s.Radius, prev.Radius))
	var tint mgl32.Vec3
	s.Color, tint = p.color("bloom.color", s.Color, prev.Color)
	p.settings.Bloom = s

	on := s.Enabled && s.Strength > noOp
	bloom := p.byName[SlotBloom]
	bloom.Uniforms.SetFloat(uniformThreshold, s.Threshold)
	bloom.Uniforms.SetFloat(uniformStrength, s.Strength)
	bloom.Uniforms.SetFloat(uniformRadius, s.Radius)
	bloom.Enabled = on

	t := p.byName[SlotBloomTint]
	t.Uniforms.SetVec3(uniformColor, tint)
	t.Uniforms.SetFloat(uniformStrength, shade.BloomTintStrength(s.Strength))
	t.Enabled = on
}

// UpdateLensDirt configures the dirt overlay.
func (p *Pipeline) UpdateLensDirt(s LensDirtSettings) {
	prev := p.settings.LensDirt
	s.Strength = max(p.finite("lensDirt.strength", s.Strength, prev.Strength), 0)
	s.MinThreshold = max(p.finite("lensDirt.minThreshold", s.MinThreshold, prev.MinThreshold), 0)
	s.MaxThreshold = max(p.finite("lensDirt.maxThreshold", s.MaxThreshold, prev.MaxThreshold), 0)
	s.Sensitivity = max(p.finite("lensDirt.sensitivity", s.Sensitivity, prev.Sensitivity), 0)
	if s.MinThreshold > s.MaxThreshold {
		s.MinThreshold, s.MaxThreshold = s.MaxThreshold, s.MinThreshold
	}
	p.settings.LensDirt = s

	ps := p.byName[SlotLensDirt]
	ps.Uniforms.SetFloat(uniformStrength, s.Strength)
	ps.Uniforms.SetFloat(uniformMinThreshold, s.MinThreshold)
	ps.Uniforms.SetFloat(uniformMaxThreshold, s.MaxThreshold)
	ps.Uniforms.SetFloat(uniformSensitivity, s.Sensitivity)
	ps.Uniforms.SetFloat(uniformExposure, p.settings.Exposure)
	ps.Uniforms.SetTexture(uniformDirt, p.dirt)
	ps.Enabled = s.Enabled && s.Strength > noOp
}

// UpdateGrain configures film grain. The grain passes never switch off;
// disabling grain drives the intensity to zero instead.
func (p *Pipeline) UpdateGrain(s GrainSettings) {
	prev := p.settings.Grain
	s.Intensity = shade.Clamp01(p.finite("grain.intensity", s.Intensity, prev.Intensity))
	var tint mgl32.Vec3
	s.Color, tint = p.color("grain.color", s.Color, prev.Color)
	p.settings.Grain = s

	intensity := s.Intensity
	if !s.Enabled {
		intensity = 0
	}
	g := p.byName[SlotGrain]
	g.Uniforms.SetFloat(uniformIntensity, intensity)
	g.Enabled = true

	t := p.byName[SlotGrainTint]
	t.Uniforms.SetVec3(uniformColor, tint)
	t.Enabled = true
}

// UpdateAberration configures the chromatic aberration.
func (p *Pipeline) UpdateAberration(s AberrationSettings) {
	prev := p.settings.Aberration
	s.Offset = p.finite("aberration.offset", s.Offset, prev.Offset)
	s.Strength = max(p.finite("aberration.strength", s.Strength, prev.Strength), 0)
	p.settings.Aberration = s

	ps := p.byName[SlotChromaticAberration]
	ps.Uniforms.SetFloat(uniformOffset, s.Offset)
	ps.Uniforms.SetFloat(uniformStrength, s.Strength)
	ps.Enabled = s.Enabled && s.Strength > noOp && math.Abs(float64(s.Offset)) > 0
}

// UpdateColorGrade configures the grade. The pass runs only when the grade
// is enabled and not bypassed.
func (p *Pipeline) UpdateColorGrade(s ColorGradeSettings) {
	prev := p.settings.ColorGrade
	s.TemperatureKelvin = p.finite("colorGrade.temperature", s.TemperatureKelvin, prev.TemperatureKelvin)
	p.grade.Set(s.Params())
	p.grade.SetEnabled(s.Enabled)

	// Record what the stage accepted.
	knobs := p.grade.Params()
	s.Contrast, s.Saturation = knobs.Contrast, knobs.Saturation
	s.Tint, s.Highlights, s.Shadows = knobs.Tint, knobs.Highlights, knobs.Shadows
	s.Clarity, s.Fade, s.Sharpness = knobs.Clarity, knobs.Fade, knobs.Sharpness
	p.settings.ColorGrade = s
}

// UpdateVignette configures the vignette in the output pass.
func (p *Pipeline) UpdateVignette(s VignetteSettings) {
	prev := p.settings.Vignette
	s.Intensity = max(p.finite("vignette.intensity", s.Intensity, prev.Intensity), 0)
	var tint mgl32.Vec3
	s.Color, tint = p.color("vignette.color", s.Color, prev.Color)
	p.settings.Vignette = s

	intensity := s.Intensity
	if !s.Enabled {
		intensity = 0
	}
	out := p.byName[SlotOutput]
	out.Uniforms.SetFloat(uniformVignette, intensity)
	out.Uniforms.SetVec3(uniformVignetteTint, tint)
}

// SetToneMapping selects the tone curve. Unknown modes are ignored.
func (p *Pipeline) SetToneMapping(mode shade.ToneMapping) {
	m, err := shade.ParseToneMapping(string(mode))
	if err != nil {
		p.log.Warn("rejected tone mapping", zap.String("mode", string(mode)), zap.Error(err))
		m = p.settings.ToneMapping
	}
	p.settings.ToneMapping = m
	p.byName[SlotOutput].Uniforms.SetInt(uniformToneMapping, m.Code())
}

// SetExposure sets the linear exposure multiplier. The lens-dirt mask
// follows it.
func (p *Pipeline) SetExposure(v float32) {
	v = max(p.finite("exposure", v, p.settings.Exposure), 0)
	p.settings.Exposure = v

	ps := p.byName[SlotExposure]
	ps.Uniforms.SetFloat(uniformExposure, v)
	ps.Enabled = math.Abs(float64(v-1)) > noOp
	p.byName[SlotLensDirt].Uniforms.SetFloat(uniformExposure, v)
}

// SetAntiAliasing selects the anti-aliasing filter. Unknown modes are
// ignored.
func (p *Pipeline) SetAntiAliasing(mode AntiAliasing) {
	m, err := ParseAntiAliasing(string(mode))
	if err != nil {
		p.log.Warn("rejected anti-aliasing", zap.String("mode", string(mode)), zap.Error(err))
		m = p.settings.AntiAliasing
	}
	p.settings.AntiAliasing = m
	p.byName[SlotAntiAliasing].Enabled = m == AAFXAA
}

// finite returns v, or prev when v is NaN or infinite.
func (p *Pipeline) finite(field string, v, prev float32) float32 {
	if shade.IsFinite(v) {
		return v
	}
	p.log.Warn("rejected value", zap.String("field", field), zap.Float32("value", v))
	return prev
}

// color parses a hex color, falling back to the previous value.
func (p *Pipeline) color(field, value, prev string) (string, mgl32.Vec3) {
	c, err := shade.ParseColor(value)
	if err == nil {
		return value, c
	}
	p.log.Warn("rejected color", zap.String("field", field), zap.String("value", value), zap.Error(err))
	if c, err := shade.ParseColor(prev); err == nil {
		return prev, c
	}
	return "#ffffff", mgl32.Vec3{1, 1, 1}
}
