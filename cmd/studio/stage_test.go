package main

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestLoadModelShapes(t *testing.T) {
	mc := DefaultConfig().Model
	for _, shape := range []string{"sphere", "cube"} {
		t.Run(shape, func(t *testing.T) {
			mc.Shape = shape
			mesh, err := loadModel("", mc)
			if err != nil {
				t.Fatal(err)
			}
			size := mesh.Size()
			if largest := max(size[0], size[1], size[2]); largest < mc.Size-1e-9 || largest > mc.Size+1e-9 {
				t.Errorf("largest extent = %v, want %v", largest, mc.Size)
			}
			if got := mesh.Materials[0].Roughness; got != mc.Roughness {
				t.Errorf("roughness = %v, want %v", got, mc.Roughness)
			}
		})
	}
}

func TestLoadModelChecker(t *testing.T) {
	mc := DefaultConfig().Model
	mesh, err := loadModel("", mc)
	if err != nil {
		t.Fatal(err)
	}
	if mesh.Materials[0].BaseMap != nil {
		t.Error("plain shape has a base map")
	}

	mc.Checker = true
	mesh, err = loadModel("", mc)
	if err != nil {
		t.Fatal(err)
	}
	tex := mesh.Materials[0].BaseMap
	if tex == nil {
		t.Fatal("checker shape has no base map")
	}
	if a, b := tex.GetPixel(0, 0), tex.GetPixel(checkerWidth/16, 0); a == b {
		t.Errorf("adjacent checks share color %v", a)
	}
}

func TestLoadModelErrors(t *testing.T) {
	mc := DefaultConfig().Model
	tests := []struct {
		name string
		path string
		mc   func(*ModelConfig)
	}{
		{"unknown shape", "", func(m *ModelConfig) { m.Shape = "teapot" }},
		{"bad color", "", func(m *ModelConfig) { m.Color = "chartreuse-ish" }},
		{"obj file", "model.obj", nil},
		{"missing glb", filepath.Join(t.TempDir(), "missing.glb"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mc
			if tt.mc != nil {
				tt.mc(&m)
			}
			if _, err := loadModel(tt.path, m); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNewStageUnknownPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preset = "nowhere"
	if _, err := newStage(cfg, zaptest.NewLogger(t), "", 16, 16); err == nil {
		t.Error("expected an unknown preset error")
	}
}

func TestNewStageWithoutPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preset = ""
	cfg.Environment.Strength = 0.5
	cfg.Environment.Rotation = 90
	s, err := newStage(cfg, zaptest.NewLogger(t), "", 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	st := s.Fader().State()
	if st.Strength != 0.5 || st.RotationDegrees != 90 {
		t.Errorf("state = %+v, want strength 0.5 rotation 90", st)
	}
	if st.LoadingPresetID != "" {
		t.Errorf("loading %q, want nothing", st.LoadingPresetID)
	}
	if img := s.Tick(0.016); img == nil || img.Bounds().Dx() != 16 {
		t.Errorf("frame = %v", img)
	}
}
