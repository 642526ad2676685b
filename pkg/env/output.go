package env

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
)

// Output is what the scene consumes from the fader for one frame. EnvMap
// and BackgroundTexture are nil when the environment is disabled or not
// loaded; the caller then fills with Fallback. During a crossfade FadeFrom
// holds the outgoing map and samplers blend it into FadeTo by FadeProgress,
// so both pre-generated maps are used and nothing is regenerated.
type Output struct {
	EnvMap            *ReflectionMap
	Intensity         float32
	BackgroundTexture *render.Texture

	FadeFrom     *ReflectionMap
	FadeTo       *ReflectionMap
	FadeProgress float32

	Rotation   float32
	Blurriness float32
	Fallback   mgl32.Vec3
}

// Lighting returns the output as scene lighting, nil when there is no map.
func (o Output) Lighting() render.Lighting {
	if o.EnvMap == nil {
		return nil
	}
	return o
}

// Backdrop returns the output as the scene background, nil when the
// background is off.
func (o Output) Backdrop() render.Backdrop {
	if o.BackgroundTexture == nil {
		return nil
	}
	return o
}

func (o Output) fading() bool {
	return o.FadeFrom != nil && o.FadeTo != nil && o.FadeProgress < 1
}

// Specular implements render.Lighting.
func (o Output) Specular(dir mgl32.Vec3, roughness float32) mgl32.Vec3 {
	if o.fading() {
		a := o.FadeFrom.Specular(dir, roughness, o.Rotation)
		b := o.FadeTo.Specular(dir, roughness, o.Rotation)
		return shade.Mix(a, b, o.FadeProgress)
	}
	if o.EnvMap == nil {
		return o.Fallback
	}
	return o.EnvMap.Specular(dir, roughness, o.Rotation)
}

// Irradiance implements render.Lighting.
func (o Output) Irradiance(normal mgl32.Vec3) mgl32.Vec3 {
	if o.fading() {
		a := o.FadeFrom.Irradiance(normal, o.Rotation)
		b := o.FadeTo.Irradiance(normal, o.Rotation)
		return shade.Mix(a, b, o.FadeProgress)
	}
	if o.EnvMap == nil {
		return o.Fallback
	}
	return o.EnvMap.Irradiance(normal, o.Rotation)
}

// Background implements render.Backdrop. Blurriness selects a prefiltered
// level instead of the sharp panorama.
func (o Output) Background(dir mgl32.Vec3) mgl32.Vec3 {
	if o.BackgroundTexture == nil || o.EnvMap == nil {
		return o.Fallback
	}
	if o.fading() {
		a := o.background(o.FadeFrom, dir)
		b := o.background(o.FadeTo, dir)
		return shade.Mix(a, b, o.FadeProgress)
	}
	return o.background(o.EnvMap, dir)
}

func (o Output) background(m *ReflectionMap, dir mgl32.Vec3) mgl32.Vec3 {
	if o.Blurriness > 0 {
		return m.Specular(dir, o.Blurriness, o.Rotation)
	}
	return m.Base().SampleEquirect(dir, o.Rotation)
}
