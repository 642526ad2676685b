package post

import (
	"errors"
	"image/color"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taigrr/studio/pkg/pass"
	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
)

// plainSettings turns off every effect that changes a flat frame.
func plainSettings() Settings {
	s := DefaultSettings()
	s.Bloom.Enabled = false
	s.Vignette.Enabled = false
	s.Grain.Enabled = false
	s.AntiAliasing = AANone
	s.ToneMapping = shade.ToneNone
	return s
}

func flatScene(c mgl32.Vec3, depth float32) SceneRenderer {
	return SceneFunc(func(dst *render.Framebuffer) error {
		dst.Clear(c)
		for i := range dst.Depth {
			dst.Depth[i] = depth
		}
		return nil
	})
}

func names(infos []PassInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

func snapshots(p *Pipeline) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, name := range Order() {
		out[name] = p.Pass(name).Uniforms.Snapshot()
	}
	return out
}

func TestPipelineOrder(t *testing.T) {
	p := New(8, 8)
	want := []string{
		"scene", "depth-of-field", "bloom", "bloom-tint", "lens-dirt", "grain",
		"grain-tint", "chromatic-aberration", "anti-aliasing", "exposure",
		"color-grade", "output",
	}
	if got := names(p.Passes()); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestToggleKeepsOrderAndOtherPasses(t *testing.T) {
	p := New(8, 8)
	before := p.Passes()

	bloom := p.Settings().Bloom
	bloom.Strength = 0
	p.UpdateBloom(bloom)
	after := p.Passes()

	if !reflect.DeepEqual(names(before), names(after)) {
		t.Fatalf("order changed: %v -> %v", names(before), names(after))
	}
	for i := range after {
		switch after[i].Name {
		case SlotBloom, SlotBloomTint:
			if after[i].Enabled {
				t.Errorf("%s still enabled with zero strength", after[i].Name)
			}
		default:
			if after[i].Enabled != before[i].Enabled {
				t.Errorf("%s enabled changed %v -> %v", after[i].Name, before[i].Enabled, after[i].Enabled)
			}
		}
	}
}

func TestNoOpPassesDisabled(t *testing.T) {
	p := New(8, 8, WithSettings(plainSettings()))
	for _, info := range p.Passes() {
		switch info.Name {
		case SlotScene, SlotGrain, SlotGrainTint, SlotOutput:
			if !info.Enabled {
				t.Errorf("%s should stay enabled", info.Name)
			}
		default:
			if info.Enabled {
				t.Errorf("%s should be disabled for plain settings", info.Name)
			}
		}
	}
}

func TestColorGradeUnsetTemperatureIsNeutral(t *testing.T) {
	p := New(8, 8)
	p.UpdateColorGrade(ColorGradeSettings{Enabled: true, Contrast: 1, Saturation: 1})
	if got := p.Grade().Params().Temperature; got != 0 {
		t.Errorf("temperature = %v, want neutral", got)
	}
	if !p.Grade().Bypass() || p.Pass(SlotColorGrade).Enabled {
		t.Error("a neutral grade with unset temperature should be bypassed")
	}
}

func TestSettersAreIdempotent(t *testing.T) {
	s := DefaultSettings()
	s.DepthOfField.Enabled = true
	s.LensDirt.Enabled = true
	s.Aberration.Enabled = true
	s.ColorGrade.Contrast = 1.2
	s.Exposure = 1.5

	p := New(8, 8, WithSettings(s))
	first, firstSettings, firstPasses := snapshots(p), p.Settings(), p.Passes()
	p.Apply(s)
	p.Apply(s)
	if !reflect.DeepEqual(first, snapshots(p)) {
		t.Error("uniforms changed when reapplying the same settings")
	}
	if p.Settings() != firstSettings {
		t.Errorf("settings changed: %+v -> %+v", firstSettings, p.Settings())
	}
	if !reflect.DeepEqual(firstPasses, p.Passes()) {
		t.Error("enabled flags changed when reapplying the same settings")
	}
}

func TestReenableRestoresUniforms(t *testing.T) {
	p := New(8, 8)
	on := BloomSettings{Enabled: true, Threshold: 0.5, Strength: 0.4, Radius: 0.2, Color: "#ff8800"}
	p.UpdateBloom(on)
	want := p.Pass(SlotBloomTint).Uniforms.Snapshot()

	off := on
	off.Strength = 0
	p.UpdateBloom(off)
	p.UpdateBloom(on)

	if got := p.Pass(SlotBloomTint).Uniforms.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("bloom tint uniforms after re-enable = %v, want %v", got, want)
	}
	if !p.Pass(SlotBloom).Enabled || !p.Pass(SlotBloomTint).Enabled {
		t.Error("bloom passes not re-enabled")
	}
}

func TestBloomTintStrengthUniform(t *testing.T) {
	tests := []struct {
		strength, want float32
	}{
		{0.1, 0.75},
		{0.4, 3},
		{2, 4},
	}
	p := New(4, 4)
	for _, tt := range tests {
		p.UpdateBloom(BloomSettings{Enabled: true, Strength: tt.strength, Color: "#ffffff"})
		got := p.Pass(SlotBloomTint).Uniforms.Float(uniformStrength)
		if math.Abs(float64(got-tt.want)) > 1e-5 {
			t.Errorf("strength %v: tint strength = %v, want %v", tt.strength, got, tt.want)
		}
	}
}

func TestGrainDisableKeepsPasses(t *testing.T) {
	p := New(4, 4)
	p.UpdateGrain(GrainSettings{Enabled: false, Intensity: 0.3, Color: "#ffffff"})
	g, gt := p.Pass(SlotGrain), p.Pass(SlotGrainTint)
	if !g.Enabled || !gt.Enabled {
		t.Error("grain passes must stay enabled")
	}
	if got := g.Uniforms.Float(uniformIntensity); got != 0 {
		t.Errorf("disabled grain intensity = %v, want 0", got)
	}
	if got := p.Settings().Grain.Intensity; got != 0.3 {
		t.Errorf("settings intensity = %v, want 0.3 kept for re-enable", got)
	}
}

func TestInvalidInputKeepsLastGood(t *testing.T) {
	p := New(4, 4)
	p.SetExposure(2)
	p.SetExposure(float32(math.NaN()))
	if got := p.Settings().Exposure; got != 2 {
		t.Errorf("exposure = %v, want 2", got)
	}

	p.UpdateBloom(BloomSettings{Enabled: true, Strength: 0.2, Color: "#00ff00"})
	p.UpdateBloom(BloomSettings{Enabled: true, Strength: 0.2, Color: "not-a-color"})
	if got := p.Settings().Bloom.Color; got != "#00ff00" {
		t.Errorf("bloom color = %q, want last good", got)
	}
	if got := p.Pass(SlotBloomTint).Uniforms.Vec3(uniformColor); got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("tint uniform = %v", got)
	}

	p.SetToneMapping(shade.ToneReinhard)
	p.SetToneMapping("sepia")
	if got := p.Settings().ToneMapping; got != shade.ToneReinhard {
		t.Errorf("tone mapping = %q, want reinhard", got)
	}

	p.SetAntiAliasing("msaa")
	if got := p.Settings().AntiAliasing; got != AAFXAA {
		t.Errorf("anti-aliasing = %q, want fxaa", got)
	}
}

func TestRenderPlainFrame(t *testing.T) {
	p := New(6, 4, WithSettings(plainSettings()))
	img := p.Render(1.0/60, flatScene(mgl32.Vec3{1, 0, 0}, 5))
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
		t.Fatalf("image size = %v", img.Bounds())
	}
	want := color.RGBA{255, 0, 0, 255}
	for y := range 4 {
		for x := range 6 {
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestRenderToneMappingAndExposure(t *testing.T) {
	expected := uint8(shade.LinearToSRGB(0.5)*255 + 0.5)
	near := func(a, b uint8) bool { return a == b || a == b+1 || a+1 == b }

	s := plainSettings()
	s.ToneMapping = shade.ToneReinhard
	p := New(4, 4, WithSettings(s))
	got := p.Render(0.016, flatScene(mgl32.Vec3{1, 1, 1}, 5)).RGBAAt(1, 1)
	if !near(got.R, expected) {
		t.Errorf("reinhard(1) encoded = %d, want %d", got.R, expected)
	}

	s = plainSettings()
	s.Exposure = 2
	p = New(4, 4, WithSettings(s))
	if !p.Pass(SlotExposure).Enabled {
		t.Fatal("exposure 2 should enable the exposure pass")
	}
	got = p.Render(0.016, flatScene(mgl32.Vec3{0.25, 0.25, 0.25}, 5)).RGBAAt(2, 2)
	if !near(got.G, expected) {
		t.Errorf("exposure 2 of 0.25 encoded = %d, want %d", got.G, expected)
	}
}

func TestRenderRecoversPanickingPass(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := New(4, 4, WithSettings(plainSettings()), WithLogger(zap.New(core)))
	exposure := p.Pass(SlotExposure)
	exposure.Program = pass.ProgramFunc(func(*pass.Frame, *pass.Uniforms) error {
		panic("shader exploded")
	})
	exposure.Enabled = true

	scene := flatScene(mgl32.Vec3{1, 1, 1}, 5)
	p.Render(0.016, scene)
	img := p.Render(0.016, scene)

	if got := img.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixel = %v, want the frame without the failed pass", got)
	}
	if n := logs.FilterMessage("pass skipped").Len(); n != 1 {
		t.Errorf("logged %d skip warnings over two frames, want 1", n)
	}
}

func TestRenderSceneError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := New(4, 4, WithLogger(zap.New(core)))
	img := p.Render(0.016, SceneFunc(func(*render.Framebuffer) error {
		return errors.New("no mesh")
	}))
	if img == nil {
		t.Fatal("Render returned nil")
	}
	if logs.FilterField(zap.String("pass", SlotScene)).Len() == 0 {
		t.Error("scene failure was not logged")
	}
}

func checkUniformSizes(t *testing.T, p *Pipeline, w, h int) {
	t.Helper()
	wantRes := mgl32.Vec2{float32(w), float32(h)}
	wantTexel := mgl32.Vec2{1 / float32(w), 1 / float32(h)}
	for _, name := range Order() {
		u := p.Pass(name).Uniforms
		if u.Vec2(pass.UniformResolution) != wantRes || u.Vec2(pass.UniformTexelSize) != wantTexel {
			t.Errorf("%s: resolution %v texel %v, want %v %v", name,
				u.Vec2(pass.UniformResolution), u.Vec2(pass.UniformTexelSize), wantRes, wantTexel)
		}
	}
}

func TestResizeAppliedAtFrameStart(t *testing.T) {
	p := New(16, 8)
	p.Resize(32, 16)

	// Nothing changes until the next frame.
	checkUniformSizes(t, p, 16, 8)
	if w, h := p.Size(); w != 16 || h != 8 {
		t.Errorf("Size() = %dx%d before render", w, h)
	}

	img := p.Render(0.016, nil)
	checkUniformSizes(t, p, 32, 16)
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 16 {
		t.Errorf("image = %v, want 32x16", img.Bounds())
	}
}

func TestResizeConcurrentWithRender(t *testing.T) {
	p := New(8, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 50 {
			p.Resize(8+i%3*4, 8+i%2*4)
		}
	}()
	for range 20 {
		img := p.Render(0.016, nil)
		w, h := p.Size()
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			t.Fatalf("image %v does not match size %dx%d", img.Bounds(), w, h)
		}
		checkUniformSizes(t, p, w, h)
	}
	wg.Wait()
}

func TestDispose(t *testing.T) {
	p := New(4, 4)
	dirt := p.Pass(SlotLensDirt).Uniforms.Texture(uniformDirt)
	p.Dispose()
	p.Dispose()
	if !dirt.Disposed() {
		t.Error("dirt texture not disposed")
	}
	if p.Render(0.016, nil) != nil {
		t.Error("Render after Dispose should return nil")
	}
}

func BenchmarkRender(b *testing.B) {
	s := DefaultSettings()
	s.LensDirt.Enabled = true
	s.ColorGrade.Contrast = 1.1
	p := New(160, 90, WithSettings(s))
	scene := flatScene(mgl32.Vec3{0.8, 0.6, 0.4}, 5)
	for b.Loop() {
		p.Render(0.016, scene)
	}
}
