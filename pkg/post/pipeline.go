// Package post is the post-processing pipeline: a fixed chain of full-frame
// passes turning the rendered linear HDR scene into the displayed image.
package post

import (
	"image"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/grade"
	"github.com/taigrr/studio/pkg/pass"
	"github.com/taigrr/studio/pkg/render"
)

// Pass slots, in execution order.
const (
	SlotScene               = "scene"
	SlotDepthOfField        = "depth-of-field"
	SlotBloom               = "bloom"
	SlotBloomTint           = "bloom-tint"
	SlotLensDirt            = "lens-dirt"
	SlotGrain               = "grain"
	SlotGrainTint           = "grain-tint"
	SlotChromaticAberration = "chromatic-aberration"
	SlotAntiAliasing        = "anti-aliasing"
	SlotExposure            = "exposure"
	SlotColorGrade          = grade.PassName
	SlotOutput              = "output"
)

var order = []string{
	SlotScene,
	SlotDepthOfField,
	SlotBloom,
	SlotBloomTint,
	SlotLensDirt,
	SlotGrain,
	SlotGrainTint,
	SlotChromaticAberration,
	SlotAntiAliasing,
	SlotExposure,
	SlotColorGrade,
	SlotOutput,
}

// Order returns the slot names in execution order.
func Order() []string { return slices.Clone(order) }

// PassInfo is a read-only view of one pass.
type PassInfo struct {
	Name    string
	Enabled bool
}

// Pipeline owns the passes, their intermediate buffers and the settings
// they were configured from. Everything except Resize must be called from
// the render goroutine.
type Pipeline struct {
	log      *zap.Logger
	settings Settings

	passes []*pass.Pass
	byName map[string]*pass.Pass
	scene  *sceneProgram
	grade  *grade.Stage
	dirt   *render.Texture

	width, height int
	src, dst      *render.Framebuffer
	img           *image.RGBA
	time          float32
	failing       map[string]bool
	disposed      bool

	mu      sync.Mutex
	pending *[2]int
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	log      *zap.Logger
	settings Settings
	seed     int64
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *pipelineConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSettings sets the initial settings. Invalid fields fall back to the
// defaults.
func WithSettings(s Settings) Option {
	return func(c *pipelineConfig) { c.settings = s }
}

// WithSeed seeds the lens-dirt mask.
func WithSeed(seed int64) Option {
	return func(c *pipelineConfig) { c.seed = seed }
}

// New builds the pipeline at the given size.
func New(width, height int, opts ...Option) *Pipeline {
	cfg := pipelineConfig{log: zap.NewNop(), settings: DefaultSettings(), seed: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pipeline{
		log:      cfg.log,
		settings: DefaultSettings(),
		byName:   make(map[string]*pass.Pass, len(order)),
		scene:    &sceneProgram{},
		grade:    grade.NewStage(grade.WithLogger(cfg.log)),
		dirt:     newDirtTexture(cfg.seed),
		src:      render.NewFramebuffer(0, 0),
		dst:      render.NewFramebuffer(0, 0),
		failing:  make(map[string]bool),
	}

	bloom := &bloomProgram{}
	grain := &grainProgram{}
	programs := map[string]pass.Program{
		SlotScene:               p.scene,
		SlotDepthOfField:        &dofProgram{},
		SlotBloom:               bloom,
		SlotBloomTint:           &bloomTintProgram{bloom: bloom},
		SlotLensDirt:            pass.ProgramFunc(runLensDirt),
		SlotGrain:               grain,
		SlotGrainTint:           &grainTintProgram{grain: grain},
		SlotChromaticAberration: pass.ProgramFunc(runAberration),
		SlotAntiAliasing:        pass.ProgramFunc(runFXAA),
		SlotExposure:            pass.ProgramFunc(runExposure),
		SlotOutput:              pass.ProgramFunc(runOutput),
	}
	for _, name := range order {
		var ps *pass.Pass
		if name == SlotColorGrade {
			ps = p.grade.Pass()
		} else {
			ps = pass.New(name, programs[name])
		}
		p.passes = append(p.passes, ps)
		p.byName[name] = ps
	}
	p.byName[SlotLensDirt].Uniforms.SetTexture(uniformDirt, p.dirt)

	p.Apply(cfg.settings)
	p.resize(max(width, 1), max(height, 1))
	return p
}

// Passes returns the passes in execution order.
func (p *Pipeline) Passes() []PassInfo {
	out := make([]PassInfo, len(p.passes))
	for i, ps := range p.passes {
		out[i] = PassInfo{Name: ps.Name, Enabled: ps.Enabled}
	}
	return out
}

// Pass returns the named pass, or nil. The pass belongs to the pipeline;
// callers may inspect it but should configure it through the setters.
func (p *Pipeline) Pass(name string) *pass.Pass {
	return p.byName[name]
}

// Settings returns a copy of the current settings.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Grade returns the color grade stage.
func (p *Pipeline) Grade() *grade.Stage {
	return p.grade
}

// Size returns the size frames are currently rendered at.
func (p *Pipeline) Size() (width, height int) {
	return p.width, p.height
}

// Resize requests a new output size. It is safe to call from any
// goroutine; the change is applied to every pass and buffer together at
// the start of the next Render.
func (p *Pipeline) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &[2]int{max(width, 1), max(height, 1)}
}

func (p *Pipeline) applyPendingResize() {
	p.mu.Lock()
	size := p.pending
	p.pending = nil
	p.mu.Unlock()
	if size != nil {
		p.resize(size[0], size[1])
	}
}

func (p *Pipeline) resize(width, height int) {
	if width == p.width && height == p.height {
		return
	}
	p.width, p.height = width, height
	p.src.Resize(width, height)
	p.dst.Resize(width, height)
	p.img = image.NewRGBA(image.Rect(0, 0, width, height))
	for _, ps := range p.passes {
		ps.Resize(width, height)
	}
	p.log.Debug("pipeline resized", zap.Int("width", width), zap.Int("height", height))
}

// Render runs every enabled pass over a frame of scene and returns the
// displayed image. The image is reused by the next call. A pass that fails
// or panics is logged and skipped for that frame.
func (p *Pipeline) Render(dt float32, scene SceneRenderer) *image.RGBA {
	if p.disposed {
		return nil
	}
	p.applyPendingResize()
	if dt > 0 {
		p.time += dt
	} else {
		dt = 0
	}
	p.scene.scene = scene

	for _, ps := range p.passes {
		if !ps.Enabled {
			continue
		}
		f := pass.Frame{Src: p.src, Dst: p.dst, Time: p.time, Delta: dt}
		if err := ps.Run(&f); err != nil {
			if !p.failing[ps.Name] {
				p.log.Warn("pass skipped", zap.String("pass", ps.Name), zap.Error(err))
				p.failing[ps.Name] = true
			}
			continue
		}
		if p.failing[ps.Name] {
			p.log.Info("pass recovered", zap.String("pass", ps.Name))
			delete(p.failing, ps.Name)
		}
		p.src, p.dst = p.dst, p.src
	}

	p.src.EncodeInto(p.img)
	return p.img
}

// Dispose releases the buffers and textures the pipeline owns. Render
// returns nil afterwards.
func (p *Pipeline) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	for _, ps := range p.passes {
		if d, ok := ps.Program.(pass.Disposer); ok {
			d.Dispose()
		}
	}
	p.dirt.Dispose()
	p.src, p.dst, p.img = nil, nil, nil
}
