package post

import (
	"fmt"

	"github.com/taigrr/studio/pkg/grade"
	"github.com/taigrr/studio/pkg/shade"
)

// AntiAliasing selects the anti-aliasing filter.
type AntiAliasing string

const (
	AANone AntiAliasing = "none"
	AAFXAA AntiAliasing = "fxaa"
)

// ParseAntiAliasing parses an anti-aliasing mode name.
func ParseAntiAliasing(s string) (AntiAliasing, error) {
	switch AntiAliasing(s) {
	case AANone, "":
		return AANone, nil
	case AAFXAA:
		return AAFXAA, nil
	}
	return AANone, fmt.Errorf("unknown anti-aliasing mode %q", s)
}

// Settings is the full set of post-processing controls. Colors are hex
// strings.
type Settings struct {
	DepthOfField DepthOfFieldSettings `json:"depthOfField" yaml:"depthOfField" mapstructure:"depthOfField"`
	Bloom        BloomSettings        `json:"bloom" yaml:"bloom" mapstructure:"bloom"`
	LensDirt     LensDirtSettings     `json:"lensDirt" yaml:"lensDirt" mapstructure:"lensDirt"`
	Grain        GrainSettings        `json:"grain" yaml:"grain" mapstructure:"grain"`
	Aberration   AberrationSettings   `json:"aberration" yaml:"aberration" mapstructure:"aberration"`
	ColorGrade   ColorGradeSettings   `json:"colorGrade" yaml:"colorGrade" mapstructure:"colorGrade"`
	Vignette     VignetteSettings     `json:"vignette" yaml:"vignette" mapstructure:"vignette"`
	ToneMapping  shade.ToneMapping    `json:"toneMapping" yaml:"toneMapping" mapstructure:"toneMapping"`
	Exposure     float32              `json:"exposure" yaml:"exposure" mapstructure:"exposure"`
	AntiAliasing AntiAliasing         `json:"antiAliasing" yaml:"antiAliasing" mapstructure:"antiAliasing"`
}

// DepthOfFieldSettings control the focus blur. Focus is a view distance in
// world units; MaxBlur is a fraction of the frame height.
type DepthOfFieldSettings struct {
	Enabled  bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Focus    float32 `json:"focus" yaml:"focus" mapstructure:"focus"`
	Aperture float32 `json:"aperture" yaml:"aperture" mapstructure:"aperture"`
	MaxBlur  float32 `json:"maxBlur" yaml:"maxBlur" mapstructure:"maxBlur"`
}

type BloomSettings struct {
	Enabled   bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Threshold float32 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	Strength  float32 `json:"strength" yaml:"strength" mapstructure:"strength"`
	Radius    float32 `json:"radius" yaml:"radius" mapstructure:"radius"`
	Color     string  `json:"color" yaml:"color" mapstructure:"color"`
}

// LensDirtSettings control the dirt overlay. The overlay fades in between
// MinThreshold and MaxThreshold of exposed scene luminance scaled by
// Sensitivity.
type LensDirtSettings struct {
	Enabled      bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Strength     float32 `json:"strength" yaml:"strength" mapstructure:"strength"`
	MinThreshold float32 `json:"minThreshold" yaml:"minThreshold" mapstructure:"minThreshold"`
	MaxThreshold float32 `json:"maxThreshold" yaml:"maxThreshold" mapstructure:"maxThreshold"`
	Sensitivity  float32 `json:"sensitivity" yaml:"sensitivity" mapstructure:"sensitivity"`
}

type GrainSettings struct {
	Enabled   bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Intensity float32 `json:"intensity" yaml:"intensity" mapstructure:"intensity"`
	Color     string  `json:"color" yaml:"color" mapstructure:"color"`
}

type AberrationSettings struct {
	Enabled  bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Offset   float32 `json:"offset" yaml:"offset" mapstructure:"offset"`
	Strength float32 `json:"strength" yaml:"strength" mapstructure:"strength"`
}

// ColorGradeSettings mirror grade.Params with temperature in Kelvin.
type ColorGradeSettings struct {
	Enabled           bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Contrast          float32 `json:"contrast" yaml:"contrast" mapstructure:"contrast"`
	Saturation        float32 `json:"saturation" yaml:"saturation" mapstructure:"saturation"`
	// TemperatureKelvin of 0 is unset and grades as 6500 K.
	TemperatureKelvin float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	Tint              float32 `json:"tint" yaml:"tint" mapstructure:"tint"`
	Highlights        float32 `json:"highlights" yaml:"highlights" mapstructure:"highlights"`
	Shadows           float32 `json:"shadows" yaml:"shadows" mapstructure:"shadows"`
	Clarity           float32 `json:"clarity" yaml:"clarity" mapstructure:"clarity"`
	Fade              float32 `json:"fade" yaml:"fade" mapstructure:"fade"`
	Sharpness         float32 `json:"sharpness" yaml:"sharpness" mapstructure:"sharpness"`
}

// Params converts the settings to grade knobs.
func (c ColorGradeSettings) Params() grade.Params {
	return grade.Params{
		Contrast:    c.Contrast,
		Saturation:  c.Saturation,
		Temperature: grade.NormalizeTemperature(c.TemperatureKelvin),
		Tint:        c.Tint,
		Highlights:  c.Highlights,
		Shadows:     c.Shadows,
		Clarity:     c.Clarity,
		Fade:        c.Fade,
		Sharpness:   c.Sharpness,
	}
}

type VignetteSettings struct {
	Enabled   bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Intensity float32 `json:"intensity" yaml:"intensity" mapstructure:"intensity"`
	Color     string  `json:"color" yaml:"color" mapstructure:"color"`
}

// DefaultSettings returns the startup look: ACES tone mapping, a light
// bloom and vignette, FXAA on, everything else off or neutral.
func DefaultSettings() Settings {
	return Settings{
		DepthOfField: DepthOfFieldSettings{Focus: 5, Aperture: 0.025, MaxBlur: 0.01},
		Bloom: BloomSettings{
			Enabled:   true,
			Threshold: 0.85,
			Strength:  0.15,
			Radius:    0.4,
			Color:     "#ffffff",
		},
		LensDirt: LensDirtSettings{
			Strength:     0.5,
			MinThreshold: 0.1,
			MaxThreshold: 1.0,
			Sensitivity:  1,
		},
		Grain:      GrainSettings{Intensity: 0.05, Color: "#ffffff"},
		Aberration: AberrationSettings{Offset: 0.002, Strength: 1},
		ColorGrade: ColorGradeSettings{
			Enabled:           true,
			Contrast:          1,
			Saturation:        1,
			TemperatureKelvin: grade.NeutralKelvin,
		},
		Vignette:     VignetteSettings{Enabled: true, Intensity: 0.4, Color: "#000000"},
		ToneMapping:  shade.ToneACESFilmic,
		Exposure:     1,
		AntiAliasing: AAFXAA,
	}
}
