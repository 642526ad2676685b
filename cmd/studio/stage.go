package main

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/env"
	"github.com/taigrr/studio/pkg/models"
	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
	"github.com/taigrr/studio/pkg/studio"
)

// checkerWidth is the checker texture width; it wraps once around a sphere.
const checkerWidth = 128

// loadModel loads a glTF file, or builds the configured shape when path is
// empty. The mesh is centered and fitted to the configured size.
func loadModel(path string, mc ModelConfig) (*models.Mesh, error) {
	var (
		mesh *models.Mesh
		err  error
	)
	if path != "" {
		switch ext := filepath.Ext(path); ext {
		case ".glb", ".gltf":
			mesh, err = models.LoadGLB(path)
		default:
			return nil, fmt.Errorf("unsupported model format %q (use .glb or .gltf)", ext)
		}
	} else {
		mat := models.DefaultMaterial()
		mat.Name = mc.Shape
		if mat.BaseColor, err = shade.ParseColor(mc.Color); err != nil {
			return nil, fmt.Errorf("model color: %w", err)
		}
		mat.Metallic = shade.Clamp01(mc.Metallic)
		mat.Roughness = shade.Clamp01(mc.Roughness)
		if mc.Checker {
			mat.BaseMap = render.NewCheckerTexture(checkerWidth, checkerWidth/2, checkerWidth/16,
				mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.2, 0.2, 0.2})
		}
		mesh, err = models.NewShape(models.Shape(mc.Shape), mat)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	size := mc.Size
	if size <= 0 {
		size = DefaultConfig().Model.Size
	}
	mesh.Fit(size)
	return mesh, nil
}

// newStage builds a studio from the config at width×height and starts
// loading the configured preset.
func newStage(cfg Config, log *zap.Logger, modelPath string, width, height int) (*studio.Studio, error) {
	catalog, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	mesh, err := loadModel(modelPath, cfg.Model)
	if err != nil {
		return nil, err
	}
	log.Info("model ready",
		zap.String("name", mesh.Name),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("triangles", mesh.TriangleCount()))

	s := studio.New(mesh, width, height,
		studio.WithLogger(log),
		studio.WithSettings(cfg.Post),
		studio.WithMoodHints(cfg.Environment.MoodHints),
		studio.WithEnvironment(
			env.WithCatalog(catalog),
			env.WithFadeDuration(cfg.Environment.FadeDuration),
		),
	)

	ec := cfg.Environment
	f := s.Fader()
	f.SetEnabled(ec.Enabled)
	f.SetBackgroundEnabled(ec.Background)
	f.SetStrength(ec.Strength)
	f.SetRotation(ec.Rotation)
	f.SetBlurriness(ec.Blurriness)
	f.SetFallbackColor(ec.Fallback)

	if cfg.Preset != "" {
		if _, ok := catalog.Lookup(cfg.Preset); !ok {
			s.Close()
			return nil, fmt.Errorf("unknown preset %q (see the presets command)", cfg.Preset)
		}
		s.SetPreset(cfg.Preset)
	}
	return s, nil
}
