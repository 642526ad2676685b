package pass

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/render"
)

// Uniforms is a named, typed parameter set read by a Program. Setters
// overwrite; getters return the zero value for unknown names or mismatched
// types. Not safe for concurrent use.
type Uniforms struct {
	values map[string]any
}

// NewUniforms returns an empty set.
func NewUniforms() *Uniforms {
	return &Uniforms{values: make(map[string]any)}
}

func (u *Uniforms) set(name string, v any) {
	if u.values == nil {
		u.values = make(map[string]any)
	}
	u.values[name] = v
}

// SetFloat sets a float uniform.
func (u *Uniforms) SetFloat(name string, v float32) { u.set(name, v) }

// SetInt sets an int uniform.
func (u *Uniforms) SetInt(name string, v int32) { u.set(name, v) }

// SetVec2 sets a vec2 uniform.
func (u *Uniforms) SetVec2(name string, v mgl32.Vec2) { u.set(name, v) }

// SetVec3 sets a vec3 uniform.
func (u *Uniforms) SetVec3(name string, v mgl32.Vec3) { u.set(name, v) }

// SetTexture binds a texture to a sampler uniform.
func (u *Uniforms) SetTexture(name string, t *render.Texture) { u.set(name, t) }

// Float returns a float uniform.
func (u *Uniforms) Float(name string) float32 {
	v, _ := u.values[name].(float32)
	return v
}

// Int returns an int uniform.
func (u *Uniforms) Int(name string) int32 {
	v, _ := u.values[name].(int32)
	return v
}

// Vec2 returns a vec2 uniform.
func (u *Uniforms) Vec2(name string) mgl32.Vec2 {
	v, _ := u.values[name].(mgl32.Vec2)
	return v
}

// Vec3 returns a vec3 uniform.
func (u *Uniforms) Vec3(name string) mgl32.Vec3 {
	v, _ := u.values[name].(mgl32.Vec3)
	return v
}

// Texture returns a sampler uniform, nil if unset.
func (u *Uniforms) Texture(name string) *render.Texture {
	v, _ := u.values[name].(*render.Texture)
	return v
}

// Has reports whether name has been set.
func (u *Uniforms) Has(name string) bool {
	_, ok := u.values[name]
	return ok
}

// Names returns the set uniform names, sorted.
func (u *Uniforms) Names() []string {
	return slices.Sorted(maps.Keys(u.values))
}

// Snapshot returns a copy of every uniform value.
func (u *Uniforms) Snapshot() map[string]any {
	return maps.Clone(u.values)
}
