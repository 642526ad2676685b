// Package studio drives one frame of the viewer: it advances the
// environment fader, rasterizes the model lit by the current environment
// and runs the post-processing pipeline over the result.
//
// A Studio is not safe for concurrent use. Resize is the exception; it may
// be called from an input goroutine and takes effect on the next frame.
package studio

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/env"
	"github.com/taigrr/studio/pkg/models"
	"github.com/taigrr/studio/pkg/post"
	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
)

// View is the orbit camera placement around the origin. Angles are in
// radians.
type View struct {
	Yaw, Pitch float64
	Distance   float64
}

// DefaultView looks at the model slightly from above.
func DefaultView() View {
	return View{Yaw: 0.6, Pitch: 0.3, Distance: 2.4}
}

// Overlay selects the guide lines drawn over the model.
type Overlay struct {
	Grid   bool // floor grid under the model
	Bounds bool // model bounding box
	Axes   bool
}

var (
	gridColor   = mgl32.Vec3{0.25, 0.25, 0.25}
	boundsColor = mgl32.Vec3{0.1, 0.9, 0.5}
)

// Studio owns the fader, the camera and the post pipeline.
type Studio struct {
	log      *zap.Logger
	fader    *env.Fader
	pipeline *post.Pipeline
	camera   *render.Camera
	raster   *render.Rasterizer
	wire     *render.Wireframe

	mesh      *models.Mesh
	transform mgl64.Mat4
	view      View
	key       render.DirectionalLight
	rim       shade.RimParams
	moods     bool
	overlay   Overlay
}

// Option configures a Studio.
type Option func(*config)

type config struct {
	log      *zap.Logger
	envOpts  []env.Option
	settings *post.Settings
	seed     int64
	key      *render.DirectionalLight
	moods    bool
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithEnvironment passes options through to the environment fader.
func WithEnvironment(opts ...env.Option) Option {
	return func(c *config) { c.envOpts = append(c.envOpts, opts...) }
}

func WithSettings(s post.Settings) Option {
	return func(c *config) { c.settings = &s }
}

// WithSeed seeds the lens dirt pattern.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithKeyLight sets the directional light added on top of the
// environment. Direction points from the light toward the scene.
func WithKeyLight(l render.DirectionalLight) Option {
	return func(c *config) { c.key = &l }
}

// WithMoodHints controls whether a resolved preset's mood hint is applied
// to exposure, tone mapping and the fallback color. On by default.
func WithMoodHints(on bool) Option {
	return func(c *config) { c.moods = on }
}

// DefaultKeyLight is a soft white light from the upper right.
func DefaultKeyLight() render.DirectionalLight {
	return render.DirectionalLight{
		Direction: mgl32.Vec3{-0.5, -1, -0.3}.Normalize(),
		Color:     mgl32.Vec3{0.35, 0.35, 0.35},
	}
}

// New returns a studio rendering mesh at width×height. The studio takes
// ownership of mesh; it may be nil for an empty stage.
func New(mesh *models.Mesh, width, height int, opts ...Option) *Studio {
	cfg := config{log: zap.NewNop(), seed: 1, moods: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	key := DefaultKeyLight()
	if cfg.key != nil {
		key = *cfg.key
	}

	postOpts := []post.Option{post.WithLogger(cfg.log.Named("post")), post.WithSeed(cfg.seed)}
	if cfg.settings != nil {
		postOpts = append(postOpts, post.WithSettings(*cfg.settings))
	}
	envOpts := append([]env.Option{env.WithLogger(cfg.log.Named("env"))}, cfg.envOpts...)

	camera := render.NewCamera()
	camera.SetFOV(math.Pi / 4)
	camera.SetClipPlanes(0.05, 100)

	s := &Studio{
		log:       cfg.log,
		fader:     env.NewFader(envOpts...),
		pipeline:  post.New(width, height, postOpts...),
		camera:    camera,
		raster:    render.NewRasterizer(camera, nil),
		wire:      render.NewWireframe(camera, nil),
		mesh:      mesh,
		transform: mgl64.Ident4(),
		key:       key,
		rim:       shade.DefaultRim(),
		moods:     cfg.moods,
	}
	s.fader.OnResolved(s.resolved)
	s.SetView(DefaultView())
	return s
}

// Fader returns the environment fader.
func (s *Studio) Fader() *env.Fader { return s.fader }

// Pipeline returns the post-processing pipeline.
func (s *Studio) Pipeline() *post.Pipeline { return s.pipeline }

func (s *Studio) Camera() *render.Camera { return s.camera }

// Mesh returns the model on stage, or nil.
func (s *Studio) Mesh() *models.Mesh { return s.mesh }

// SetPreset starts loading an environment. See env.Fader.SetPreset.
func (s *Studio) SetPreset(id string) <-chan *env.MoodHint {
	return s.fader.SetPreset(id)
}

func (s *Studio) resolved(r env.Resolution) {
	if r.Err != nil {
		s.log.Info("environment not applied", zap.String("preset", r.PresetID), zap.Error(r.Err))
		return
	}
	if !s.moods || r.Mood == nil {
		return
	}
	s.log.Debug("applying mood", zap.String("preset", r.PresetID),
		zap.Float32("exposure", r.Mood.Exposure),
		zap.String("toneMapping", string(r.Mood.ToneMapping)))
	s.pipeline.SetExposure(r.Mood.Exposure)
	s.pipeline.SetToneMapping(r.Mood.ToneMapping)
	if r.Mood.FallbackColor != "" {
		s.fader.SetFallbackColor(r.Mood.FallbackColor)
	}
}

// Stats returns the culling counters of the last rendered frame.
func (s *Studio) Stats() render.CullingStats { return s.raster.CullingStats }

// SetTransform sets the model matrix.
func (s *Studio) SetTransform(m mgl64.Mat4) { s.transform = m }

// SetRotation orients the model by Euler angles in radians.
func (s *Studio) SetRotation(pitch, yaw, roll float64) {
	s.transform = mgl64.HomogRotate3DX(pitch).
		Mul4(mgl64.HomogRotate3DY(yaw)).
		Mul4(mgl64.HomogRotate3DZ(roll))
}

// SetView moves the orbit camera. Distance is clamped to [0.5, 50].
func (s *Studio) SetView(v View) {
	v.Distance = max(0.5, min(50, v.Distance))
	s.view = v
	s.camera.Orbit(mgl64.Vec3{}, v.Distance, v.Yaw, v.Pitch)
	s.raster.InvalidateFrustum()
}

func (s *Studio) View() View { return s.view }

// SetOverlay selects the guide lines.
func (s *Studio) SetOverlay(o Overlay) { s.overlay = o }

func (s *Studio) Overlay() Overlay { return s.overlay }

// SetKeyLight replaces the directional light.
func (s *Studio) SetKeyLight(l render.DirectionalLight) { s.key = l }

// Resize changes the output size from the next frame on.
func (s *Studio) Resize(width, height int) {
	s.pipeline.Resize(width, height)
}

// Tick advances the environment by dt seconds and renders a frame.
func (s *Studio) Tick(dt float32) *image.RGBA {
	s.fader.Tick(dt)
	return s.pipeline.Render(dt, s)
}

// RenderScene implements post.SceneRenderer: the backdrop, then the model
// lit by the environment and the key light.
func (s *Studio) RenderScene(dst *render.Framebuffer) error {
	if dst.Height > 0 {
		if aspect := float64(dst.Width) / float64(dst.Height); aspect != s.camera.AspectRatio {
			s.camera.SetAspectRatio(aspect)
			s.raster.InvalidateFrustum()
		}
	}
	s.raster.SetTarget(dst)
	s.raster.ResetCullingStats()

	out := s.fader.Output()
	p := &render.ShadeParams{
		Lighting:  out.Lighting(),
		Intensity: out.Intensity,
		Backdrop:  out.Backdrop(),
		Fill:      out.Fallback,
		Key:       s.key,
		Rim:       s.rim,
	}
	s.raster.DrawBackground(p)
	if s.mesh != nil {
		s.raster.DrawMesh(s.mesh, s.transform, p)
	}
	s.drawOverlay(dst)
	return nil
}

func (s *Studio) drawOverlay(dst *render.Framebuffer) {
	if s.overlay == (Overlay{}) {
		return
	}
	s.wire.SetTarget(dst)
	floor := -0.5
	var bounds render.AABB
	if s.mesh != nil {
		lo, hi := s.mesh.GetBounds()
		bounds = render.AABB{Min: lo, Max: hi}
		floor = bounds.Transform(s.transform).Min[1]
	}
	if s.overlay.Grid {
		s.wire.DrawGrid(floor, 4, 0.25, gridColor)
	}
	if s.overlay.Bounds && s.mesh != nil {
		s.wire.DrawBox(bounds, s.transform, boundsColor)
	}
	if s.overlay.Axes {
		s.wire.DrawAxes(0.5)
	}
}

// Settle ticks the environment until nothing is loading or fading. The
// fade advances by step seconds per poll, so an offline render does not
// wait out the crossfade in real time.
func (s *Studio) Settle(ctx context.Context, step float32) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.fader.Tick(step)
		st := s.fader.State()
		if st.LoadingPresetID == "" && !st.Fading {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the environment, the pipeline and the mesh.
func (s *Studio) Close() {
	s.fader.Close()
	s.pipeline.Dispose()
	if s.mesh != nil {
		s.mesh.Dispose()
	}
}
