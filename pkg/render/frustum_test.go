package render

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testFrustum(near float64) Frustum {
	proj := mgl64.Perspective(math.Pi/3, 16.0/9.0, near, 100)
	return NewFrustumFromMatrix(proj) // camera at origin looking down -Z
}

func TestPlaneDistanceToPoint(t *testing.T) {
	plane := Plane{Normal: mgl64.Vec3{0, 0, 1}, D: 0}

	tests := []struct {
		name     string
		point    mgl64.Vec3
		expected float64
	}{
		{"origin", mgl64.Vec3{0, 0, 0}, 0},
		{"in front", mgl64.Vec3{0, 0, 5}, 5},
		{"behind", mgl64.Vec3{0, 0, -3}, -3},
		{"offset XY", mgl64.Vec3{10, -5, 2}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if dist := plane.DistanceToPoint(tc.point); math.Abs(dist-tc.expected) > 1e-9 {
				t.Errorf("got %v, want %v", dist, tc.expected)
			}
		})
	}
}

func TestPlaneNormalize(t *testing.T) {
	plane := Plane{Normal: mgl64.Vec3{0, 3, 4}, D: 10}
	plane.Normalize()

	if !plane.Normal.ApproxEqualThreshold(mgl64.Vec3{0, 0.6, 0.8}, 1e-9) {
		t.Errorf("normal = %v, want (0, 0.6, 0.8)", plane.Normal)
	}
	if math.Abs(plane.D-2.0) > 1e-9 {
		t.Errorf("D = %v, want 2.0", plane.D)
	}
}

func TestAABBTransform(t *testing.T) {
	box := AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}

	t.Run("translation", func(t *testing.T) {
		got := box.Transform(mgl64.Translate3D(10, 20, 30))
		if !got.Min.ApproxEqual(mgl64.Vec3{9, 19, 29}) || !got.Max.ApproxEqual(mgl64.Vec3{11, 21, 31}) {
			t.Errorf("translated = %v", got)
		}
	})

	t.Run("rotation", func(t *testing.T) {
		got := box.Transform(mgl64.HomogRotate3DY(math.Pi / 4))
		r := math.Sqrt2
		if math.Abs(got.Max[0]-r) > 1e-9 || math.Abs(got.Min[2]+r) > 1e-9 {
			t.Errorf("rotated = %v, want x/z extents ±%v", got, r)
		}
	})

	if c := box.Center(); c != (mgl64.Vec3{}) {
		t.Errorf("center = %v", c)
	}
	if r := box.Radius(); math.Abs(r-math.Sqrt(3)) > 1e-9 {
		t.Errorf("radius = %v, want sqrt(3)", r)
	}
}

func TestFrustumPlanesNormalized(t *testing.T) {
	for i, plane := range testFrustum(0.1).Planes {
		if length := plane.Normal.Len(); math.Abs(length-1.0) > 1e-6 {
			t.Errorf("plane %d normal length = %v, want 1.0", i, length)
		}
	}
}

func TestFrustumContainsPoint(t *testing.T) {
	frustum := testFrustum(0.1)

	tests := []struct {
		name     string
		point    mgl64.Vec3
		expected bool
	}{
		{"center near", mgl64.Vec3{0, 0, -1}, true},
		{"center far", mgl64.Vec3{0, 0, -99}, true},
		{"behind camera", mgl64.Vec3{0, 0, 1}, false},
		{"too far", mgl64.Vec3{0, 0, -200}, false},
		{"too close", mgl64.Vec3{0, 0, -0.01}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := frustum.ContainsPoint(tc.point); got != tc.expected {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tc.point, got, tc.expected)
			}
		})
	}
}

func TestFrustumIntersectAABB(t *testing.T) {
	frustum := testFrustum(1)

	tests := []struct {
		name     string
		box      AABB
		expected bool
	}{
		{"fully inside", AABB{mgl64.Vec3{-1, -1, -10}, mgl64.Vec3{1, 1, -5}}, true},
		{"crosses near plane", AABB{mgl64.Vec3{-1, -1, -2}, mgl64.Vec3{1, 1, 2}}, true},
		{"behind camera", AABB{mgl64.Vec3{-1, -1, 5}, mgl64.Vec3{1, 1, 10}}, false},
		{"beyond far plane", AABB{mgl64.Vec3{-1, -1, -150}, mgl64.Vec3{1, 1, -120}}, false},
		{"far to the right", AABB{mgl64.Vec3{100, -1, -10}, mgl64.Vec3{110, 1, -5}}, false},
		{"contains frustum", AABB{mgl64.Vec3{-200, -200, -200}, mgl64.Vec3{200, 200, 200}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := frustum.IntersectAABB(tc.box); got != tc.expected {
				t.Errorf("IntersectAABB(%v) = %v, want %v", tc.box, got, tc.expected)
			}
		})
	}
}

func TestCameraFrustumFollowsOrbit(t *testing.T) {
	cam := NewCamera()
	cam.SetAspectRatio(1)
	cam.Orbit(mgl64.Vec3{}, 10, math.Pi/2, 0) // camera on +X looking at origin

	f := cam.Frustum()
	if !f.ContainsPoint(mgl64.Vec3{0, 0, 0}) {
		t.Error("orbit target should be visible")
	}
	if f.ContainsPoint(mgl64.Vec3{20, 0, 0}) {
		t.Error("point behind orbiting camera should not be visible")
	}
}

func BenchmarkFrustumIntersectAABB(b *testing.B) {
	frustum := testFrustum(0.1)
	box := AABB{mgl64.Vec3{-1, -1, -10}, mgl64.Vec3{1, 1, -5}}
	for b.Loop() {
		_ = frustum.IntersectAABB(box)
	}
}
