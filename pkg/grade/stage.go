package grade

import (
	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/pass"
	"github.com/taigrr/studio/pkg/shade"
)

// Uniform names read by the grade program.
const (
	UniformContrast    = "contrast"
	UniformSaturation  = "saturation"
	UniformTemperature = "temperature"
	UniformTint        = "tint"
	UniformHighlights  = "highlights"
	UniformShadows     = "shadows"
	UniformClarity     = "clarity"
	UniformFade        = "fade"
	UniformSharpness   = "sharpness"
)

// PassName is the name of the pass a Stage owns.
const PassName = "color-grade"

// Stage owns the grade pass and keeps its uniforms and enabled flag in step
// with the knob values.
type Stage struct {
	params  Params
	enabled bool
	bypass  bool
	pass    *pass.Pass
	log     *zap.Logger
}

// Option configures a Stage.
type Option func(*Stage)

// WithLogger sets the logger used to report rejected knob values.
func WithLogger(l *zap.Logger) Option {
	return func(s *Stage) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStage returns an enabled stage at the neutral grade, which is
// bypassed.
func NewStage(opts ...Option) *Stage {
	s := &Stage{
		params:  Neutral(),
		enabled: true,
		pass:    pass.New(PassName, Program()),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sync()
	return s
}

// Pass returns the pass driven by the stage.
func (s *Stage) Pass() *pass.Pass { return s.pass }

// Params returns the current knob values.
func (s *Stage) Params() Params { return s.params }

// Enabled reports the user-facing enabled flag, independent of bypass.
func (s *Stage) Enabled() bool { return s.enabled }

// Bypass reports whether every knob is neutral, in which case the pass is
// skipped.
func (s *Stage) Bypass() bool { return s.bypass }

// SetEnabled switches the whole grade on or off without touching the knobs.
func (s *Stage) SetEnabled(on bool) {
	s.enabled = on
	s.sync()
}

// Set replaces every knob at once. Invalid values keep the previous value
// of that knob.
func (s *Stage) Set(p Params) {
	s.params.Contrast = s.accept(UniformContrast, s.params.Contrast, p.Contrast)
	s.params.Saturation = s.accept(UniformSaturation, s.params.Saturation, p.Saturation)
	s.params.Temperature = s.accept(UniformTemperature, s.params.Temperature, p.Temperature)
	s.params.Tint = s.accept(UniformTint, s.params.Tint, p.Tint)
	s.params.Highlights = s.accept(UniformHighlights, s.params.Highlights, p.Highlights)
	s.params.Shadows = s.accept(UniformShadows, s.params.Shadows, p.Shadows)
	s.params.Clarity = s.accept(UniformClarity, s.params.Clarity, p.Clarity)
	s.params.Fade = s.accept(UniformFade, s.params.Fade, p.Fade)
	s.params.Sharpness = s.accept(UniformSharpness, s.params.Sharpness, p.Sharpness)
	s.sync()
}

func (s *Stage) SetContrast(v float32) { s.setKnob(UniformContrast, &s.params.Contrast, v) }

func (s *Stage) SetSaturation(v float32) { s.setKnob(UniformSaturation, &s.params.Saturation, v) }

// SetTemperature sets the normalized temperature in [-1, 1].
func (s *Stage) SetTemperature(v float32) { s.setKnob(UniformTemperature, &s.params.Temperature, v) }

// SetTemperatureKelvin sets the temperature from a color temperature in
// Kelvin.
func (s *Stage) SetTemperatureKelvin(kelvin float32) {
	if !shade.IsFinite(kelvin) {
		s.log.Warn("rejected grade temperature", zap.Float32("kelvin", kelvin))
		return
	}
	s.SetTemperature(NormalizeTemperature(kelvin))
}

func (s *Stage) SetTint(v float32) { s.setKnob(UniformTint, &s.params.Tint, v) }

func (s *Stage) SetHighlights(v float32) { s.setKnob(UniformHighlights, &s.params.Highlights, v) }

func (s *Stage) SetShadows(v float32) { s.setKnob(UniformShadows, &s.params.Shadows, v) }

func (s *Stage) SetClarity(v float32) { s.setKnob(UniformClarity, &s.params.Clarity, v) }

func (s *Stage) SetFade(v float32) { s.setKnob(UniformFade, &s.params.Fade, v) }

func (s *Stage) SetSharpness(v float32) { s.setKnob(UniformSharpness, &s.params.Sharpness, v) }

func (s *Stage) setKnob(name string, field *float32, v float32) {
	*field = s.accept(name, *field, v)
	s.sync()
}

// accept clamps v into the knob's range, or returns prev when v is not a
// finite number.
func (s *Stage) accept(name string, prev, v float32) float32 {
	if !shade.IsFinite(v) {
		s.log.Warn("rejected grade knob", zap.String("knob", name), zap.Float32("value", v))
		return prev
	}
	r := ranges[name]
	if v < r.lo || v > r.hi {
		s.log.Warn("clamped grade knob", zap.String("knob", name), zap.Float32("value", v))
		return min(max(v, r.lo), r.hi)
	}
	return v
}

// sync rewrites every uniform and recomputes bypass and the enabled flag.
func (s *Stage) sync() {
	u := s.pass.Uniforms
	u.SetFloat(UniformContrast, s.params.Contrast)
	u.SetFloat(UniformSaturation, s.params.Saturation)
	u.SetFloat(UniformTemperature, s.params.Temperature)
	u.SetFloat(UniformTint, s.params.Tint)
	u.SetFloat(UniformHighlights, s.params.Highlights)
	u.SetFloat(UniformShadows, s.params.Shadows)
	u.SetFloat(UniformClarity, s.params.Clarity)
	u.SetFloat(UniformFade, s.params.Fade)
	u.SetFloat(UniformSharpness, s.params.Sharpness)

	s.bypass = s.params.IsNeutral()
	s.pass.Enabled = s.enabled && !s.bypass
}
