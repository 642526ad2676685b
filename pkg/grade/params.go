// Package grade implements the parametric color grade: nine photographic
// knobs applied by a single full-frame pass that is skipped entirely when
// every knob sits at its neutral value.
package grade

import (
	"math"

	"github.com/taigrr/studio/pkg/shade"
)

// Tolerance is how far a knob may sit from neutral and still count as
// neutral.
const Tolerance = 0.001

// Color temperature anchors in Kelvin. The warm side spans
// NeutralKelvin→WarmKelvin and the cool side NeutralKelvin→CoolKelvin, so a
// Kelvin step moves the normalized value further on the warm side.
const (
	NeutralKelvin = 6500
	WarmKelvin    = 2000
	CoolKelvin    = 15000
)

// Params are the grade knobs. Temperature is normalized to [-1, 1],
// positive is warmer.
type Params struct {
	Contrast    float32 `json:"contrast" yaml:"contrast" mapstructure:"contrast"`
	Saturation  float32 `json:"saturation" yaml:"saturation" mapstructure:"saturation"`
	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	Tint        float32 `json:"tint" yaml:"tint" mapstructure:"tint"`
	Highlights  float32 `json:"highlights" yaml:"highlights" mapstructure:"highlights"`
	Shadows     float32 `json:"shadows" yaml:"shadows" mapstructure:"shadows"`
	Clarity     float32 `json:"clarity" yaml:"clarity" mapstructure:"clarity"`
	Fade        float32 `json:"fade" yaml:"fade" mapstructure:"fade"`
	Sharpness   float32 `json:"sharpness" yaml:"sharpness" mapstructure:"sharpness"`
}

// Neutral returns the identity grade.
func Neutral() Params {
	return Params{Contrast: 1, Saturation: 1}
}

// IsNeutral reports whether every knob is within Tolerance of neutral.
func (p Params) IsNeutral() bool {
	n := Neutral()
	return near(p.Contrast, n.Contrast) &&
		near(p.Saturation, n.Saturation) &&
		near(p.Temperature, n.Temperature) &&
		near(p.Tint, n.Tint) &&
		near(p.Highlights, n.Highlights) &&
		near(p.Shadows, n.Shadows) &&
		near(p.Clarity, n.Clarity) &&
		near(p.Fade, n.Fade) &&
		near(p.Sharpness, n.Sharpness)
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) <= Tolerance
}

// NormalizeTemperature maps a color temperature in Kelvin to [-1, 1]:
// 6500 K is 0, 2000 K and below is +1 (warm), 15000 K and above is -1.
// Zero or negative Kelvin means unset and is neutral.
func NormalizeTemperature(kelvin float32) float32 {
	if !shade.IsFinite(kelvin) || kelvin <= 0 {
		return 0
	}
	switch {
	case kelvin < NeutralKelvin:
		return min(1, (NeutralKelvin-kelvin)/(NeutralKelvin-WarmKelvin))
	case kelvin > NeutralKelvin:
		return max(-1, -(kelvin-NeutralKelvin)/(CoolKelvin-NeutralKelvin))
	}
	return 0
}

// knobRange is the accepted interval of each knob; setters clamp into it.
type knobRange struct{ lo, hi float32 }

var ranges = map[string]knobRange{
	UniformContrast:    {0, 3},
	UniformSaturation:  {0, 3},
	UniformTemperature: {-1, 1},
	UniformTint:        {-1, 1},
	UniformHighlights:  {-1, 1},
	UniformShadows:     {-1, 1},
	UniformClarity:     {-1, 1},
	UniformFade:        {0, 1},
	UniformSharpness:   {0, 1},
}
