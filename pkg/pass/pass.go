// Package pass defines the unit the post-processing pipeline is built from:
// a full-frame program, its uniform set, and an enabled flag.
package pass

import (
	"fmt"

	"github.com/taigrr/studio/pkg/render"
)

// Common uniform names shared by resolution-dependent programs.
const (
	UniformResolution = "resolution"
	UniformTexelSize  = "texelSize"
)

// Frame is the per-invocation context of a Program. Src holds the output
// of the previous enabled pass; the program writes every pixel of Dst.
type Frame struct {
	Src   *render.Framebuffer
	Dst   *render.Framebuffer
	Time  float32 // Seconds since the pipeline started
	Delta float32 // Seconds since the previous frame
}

// Program is a full-frame image transform.
type Program interface {
	Run(f *Frame, u *Uniforms) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(f *Frame, u *Uniforms) error

// Run implements Program.
func (fn ProgramFunc) Run(f *Frame, u *Uniforms) error {
	return fn(f, u)
}

// Resizer is implemented by programs that own resolution-dependent
// buffers.
type Resizer interface {
	Resize(width, height int)
}

// Disposer is implemented by programs that own textures.
type Disposer interface {
	Dispose()
}

// Pass is one node of the pipeline.
type Pass struct {
	Name     string
	Enabled  bool
	Program  Program
	Uniforms *Uniforms
}

// New returns an enabled pass with an empty uniform set.
func New(name string, p Program) *Pass {
	return &Pass{Name: name, Enabled: true, Program: p, Uniforms: NewUniforms()}
}

// Run executes the program, converting a panic into an error so one bad
// pass cannot take down the render loop.
func (p *Pass) Run(f *Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass %s panicked: %v", p.Name, r)
		}
	}()
	if p.Program == nil {
		return fmt.Errorf("pass %s has no program", p.Name)
	}
	if err := p.Program.Run(f, p.Uniforms); err != nil {
		return fmt.Errorf("pass %s: %w", p.Name, err)
	}
	return nil
}

// Resize updates the resolution uniforms and forwards the size to the
// program when it owns buffers.
func (p *Pass) Resize(width, height int) {
	p.Uniforms.SetVec2(UniformResolution, resolution(width, height))
	p.Uniforms.SetVec2(UniformTexelSize, texelSize(width, height))
	if r, ok := p.Program.(Resizer); ok {
		r.Resize(width, height)
	}
}
