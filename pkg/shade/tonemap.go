package shade

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ToneMapping selects the HDR to LDR compression curve.
type ToneMapping string

const (
	ToneNone       ToneMapping = "none"
	ToneLinear     ToneMapping = "linear"
	ToneReinhard   ToneMapping = "reinhard"
	ToneACESFilmic ToneMapping = "aces-filmic"
)

// Filmic curve constants (Narkowicz fit of the ACES RRT+ODT).
const (
	acesPreScale = 0.6
	acesA        = 2.51
	acesB        = 0.03
	acesC        = 2.43
	acesD        = 0.59
	acesE        = 0.14
)

// ParseToneMapping accepts the canonical names plus a few common spellings.
func ParseToneMapping(s string) (ToneMapping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return ToneNone, nil
	case "linear":
		return ToneLinear, nil
	case "reinhard":
		return ToneReinhard, nil
	case "aces-filmic", "aces", "acesfilmic", "filmic":
		return ToneACESFilmic, nil
	}
	return ToneNone, fmt.Errorf("unknown tone mapping %q", s)
}

// Code is the integer form stored in uniform sets.
func (t ToneMapping) Code() int32 {
	switch t {
	case ToneLinear:
		return 1
	case ToneReinhard:
		return 2
	case ToneACESFilmic:
		return 3
	}
	return 0
}

// ToneMappingFromCode is the inverse of Code.
func ToneMappingFromCode(code int32) ToneMapping {
	switch code {
	case 1:
		return ToneLinear
	case 2:
		return ToneReinhard
	case 3:
		return ToneACESFilmic
	}
	return ToneNone
}

// ToneMap applies the selected curve to a linear color. None and linear pass
// the color through unchanged; the other curves return values in [0, 1].
func ToneMap(c mgl32.Vec3, mode ToneMapping) mgl32.Vec3 {
	switch mode {
	case ToneReinhard:
		c = MaxVec(c, 0)
		return mgl32.Vec3{reinhard(c[0]), reinhard(c[1]), reinhard(c[2])}
	case ToneACESFilmic:
		c = MaxVec(c, 0).Mul(acesPreScale)
		return mgl32.Vec3{acesFilmic(c[0]), acesFilmic(c[1]), acesFilmic(c[2])}
	}
	return c
}

// ToneMapLuminance compresses a single luminance value with the Reinhard
// curve. Used for masks that must select display-referred regions.
func ToneMapLuminance(l float32) float32 {
	if !(l > 0) {
		return 0
	}
	return reinhard(l)
}

func reinhard(x float32) float32 {
	return Clamp01(x / (1 + x))
}

func acesFilmic(x float32) float32 {
	return Clamp01((x * (acesA*x + acesB)) / (x*(acesC*x+acesD) + acesE))
}
