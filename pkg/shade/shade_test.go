package shade

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func vecNear(a, b mgl32.Vec3, tol float32) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > float64(tol) {
			return false
		}
	}
	return true
}

func TestToneMapZeroStaysZero(t *testing.T) {
	modes := []ToneMapping{ToneNone, ToneLinear, ToneReinhard, ToneACESFilmic}
	for _, m := range modes {
		t.Run(string(m), func(t *testing.T) {
			got := ToneMap(mgl32.Vec3{}, m)
			if got != (mgl32.Vec3{}) {
				t.Errorf("ToneMap(0, %s) = %v, want 0", m, got)
			}
		})
	}
}

func TestToneMapLargeInputClamped(t *testing.T) {
	big := mgl32.Vec3{1e6, 5e4, 1e9}
	for _, m := range []ToneMapping{ToneReinhard, ToneACESFilmic} {
		t.Run(string(m), func(t *testing.T) {
			got := ToneMap(big, m)
			for i, v := range got {
				if v < 0 || v > 1 {
					t.Errorf("channel %d = %v, want within [0,1]", i, v)
				}
			}
		})
	}
}

func TestToneMapIdentityModes(t *testing.T) {
	c := mgl32.Vec3{0.2, 3.5, 12}
	for _, m := range []ToneMapping{ToneNone, ToneLinear} {
		if got := ToneMap(c, m); got != c {
			t.Errorf("ToneMap(%v, %s) = %v, want unchanged", c, m, got)
		}
	}
}

func TestToneMapReinhard(t *testing.T) {
	got := ToneMap(mgl32.Vec3{1, 3, 0}, ToneReinhard)
	want := mgl32.Vec3{0.5, 0.75, 0}
	if !vecNear(got, want, eps) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestToneMapACESMidGray(t *testing.T) {
	x := float32(0.18 * acesPreScale)
	want := (x * (acesA*x + acesB)) / (x*(acesC*x+acesD) + acesE)
	got := ToneMap(mgl32.Vec3{0.18, 0.18, 0.18}, ToneACESFilmic)
	if math.Abs(float64(got[0]-want)) > eps {
		t.Errorf("got %v, want %v", got[0], want)
	}
}

func TestParseToneMapping(t *testing.T) {
	tests := []struct {
		in      string
		want    ToneMapping
		wantErr bool
	}{
		{"none", ToneNone, false},
		{"Linear", ToneLinear, false},
		{"reinhard", ToneReinhard, false},
		{"aces-filmic", ToneACESFilmic, false},
		{"ACES", ToneACESFilmic, false},
		{"hable", ToneNone, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseToneMapping(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
			if ToneMappingFromCode(got.Code()) != got {
				t.Errorf("code round trip lost %q", got)
			}
		})
	}
}

func TestBloomTintStrength(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"zero", 0, 0},
		{"negative", -1, 0},
		{"subtle", 0.1, 0.75},
		{"at cap", 4.0 / 7.5, 4.0},
		{"above cap", 2, 4.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BloomTintStrength(tc.in)
			if math.Abs(float64(got-tc.want)) > eps {
				t.Errorf("BloomTintStrength(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestBloomTintMaskedByLuminance(t *testing.T) {
	tint := mgl32.Vec3{1, 0, 0}
	black := BloomTint(mgl32.Vec3{}, tint, 1, 4)
	if black != (mgl32.Vec3{}) {
		t.Errorf("black pixel tinted to %v", black)
	}
	white := BloomTint(mgl32.Vec3{1, 1, 1}, tint, 1, 4)
	if !vecNear(white, mgl32.Vec3{2, 1, 1}, eps) {
		t.Errorf("white pixel = %v, want (2,1,1)", white)
	}
	if got := BloomTint(mgl32.Vec3{1, 1, 1}, tint, 0, 4); got != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("zero mask changed pixel to %v", got)
	}
}

func TestGrainNoiseRange(t *testing.T) {
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			n := GrainNoise(mgl32.Vec2{float32(x) / 32, float32(y) / 32}, 0.37)
			if n < 0 || n > 1 {
				t.Fatalf("noise at (%d,%d) = %v, out of range", x, y, n)
			}
		}
	}
}

func TestGrainZeroIntensityIsIdentity(t *testing.T) {
	c := mgl32.Vec3{0.3, 0.4, 0.5}
	if got := Grain(c, mgl32.Vec2{0.1, 0.9}, 12, 0); got != c {
		t.Errorf("Grain with zero intensity = %v, want %v", got, c)
	}
}

func TestGrainSeedChangesPattern(t *testing.T) {
	uv := mgl32.Vec2{0.25, 0.75}
	if GrainNoise(uv, 0.1) == GrainNoise(uv, 0.2) {
		t.Error("noise did not change with seed")
	}
}

func TestChromaticOffsetsCenterIsZero(t *testing.T) {
	r, b := ChromaticOffsets(mgl32.Vec2{0.5, 0.5}, 0.01, 1)
	if r != (mgl32.Vec2{}) || b != (mgl32.Vec2{}) {
		t.Errorf("center offsets = %v %v, want zero", r, b)
	}
	r, b = ChromaticOffsets(mgl32.Vec2{1, 0.5}, 0.02, 1)
	if r[0] <= 0 || b[0] >= 0 {
		t.Errorf("edge offsets should be opposite: red %v blue %v", r, b)
	}
}

func TestVignette(t *testing.T) {
	c := mgl32.Vec3{0.8, 0.8, 0.8}
	black := mgl32.Vec3{}
	if got := Vignette(c, mgl32.Vec2{0, 0}, 0, black); got != c {
		t.Errorf("zero intensity changed corner to %v", got)
	}
	if got := Vignette(c, mgl32.Vec2{0.5, 0.5}, 1, black); !vecNear(got, c, eps) {
		t.Errorf("center = %v, want %v", got, c)
	}
	if got := Vignette(c, mgl32.Vec2{0, 0}, 1, black); !vecNear(got, black, 1e-3) {
		t.Errorf("corner = %v, want vignette color", got)
	}
}

func TestEquirectRoundTrip(t *testing.T) {
	uvs := []mgl32.Vec2{{0.25, 0.3}, {0.7, 0.6}, {0.51, 0.5}, {0.05, 0.9}}
	for _, uv := range uvs {
		got := EquirectUV(EquirectDirection(uv), 0)
		if math.Abs(float64(got[0]-uv[0])) > 1e-4 || math.Abs(float64(got[1]-uv[1])) > 1e-4 {
			t.Errorf("round trip %v -> %v", uv, got)
		}
	}
}

func TestEquirectRotation(t *testing.T) {
	dir := EquirectDirection(mgl32.Vec2{0.5, 0.5})
	got := EquirectUV(dir, 90)
	if math.Abs(float64(got[0]-0.25)) > 1e-4 {
		t.Errorf("rotated u = %v, want 0.25", got[0])
	}
	full := EquirectUV(dir, 360)
	if math.Abs(float64(full[0]-0.5)) > 1e-4 {
		t.Errorf("full turn u = %v, want 0.5", full[0])
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := map[float32]float32{0: 0, 360: 0, 370: 10, -90: 270, 720.5: 0.5}
	for in, want := range tests {
		if got := NormalizeDegrees(in); math.Abs(float64(got-want)) > 1e-3 {
			t.Errorf("NormalizeDegrees(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestFresnelRim(t *testing.T) {
	n := mgl32.Vec3{0, 0, 1}
	p := DefaultRim()
	if got := FresnelRim(n, n, p); got != 0 {
		t.Errorf("disabled rim = %v, want 0", got)
	}
	p.Enabled = true
	if got := FresnelRim(n, n, p); math.Abs(float64(got)) > eps {
		t.Errorf("facing rim = %v, want bias 0", got)
	}
	if got := FresnelRim(n, mgl32.Vec3{1, 0, 0}, p); math.Abs(float64(got-1)) > eps {
		t.Errorf("grazing rim = %v, want 1", got)
	}
}

func TestParseColor(t *testing.T) {
	white, err := ParseColor("#ffffff")
	if err != nil {
		t.Fatal(err)
	}
	if !vecNear(white, mgl32.Vec3{1, 1, 1}, 1e-4) {
		t.Errorf("white = %v", white)
	}
	black, err := ParseColor("000000")
	if err != nil {
		t.Fatal(err)
	}
	if black != (mgl32.Vec3{}) {
		t.Errorf("black = %v", black)
	}
	if _, err := ParseColor("not-a-color"); err == nil {
		t.Error("expected error for invalid color")
	}
}

func TestSRGBRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.001, 0.2, 0.5, 1} {
		got := LinearToSRGB(SRGBToLinear(v))
		if math.Abs(float64(got-v)) > 1e-4 {
			t.Errorf("round trip %v -> %v", v, got)
		}
	}
}

func BenchmarkToneMapACES(b *testing.B) {
	c := mgl32.Vec3{0.4, 1.2, 3.7}
	for b.Loop() {
		_ = ToneMap(c, ToneACESFilmic)
	}
}
