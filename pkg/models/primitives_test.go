package models

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// outward reports whether every face's winding-derived normal points away
// from the origin, which holds for convex shapes centered there.
func outward(m *Mesh) bool {
	for _, f := range m.Faces {
		n := m.faceNormal(f)
		c := m.Vertices[f.V[0]].Position.Add(m.Vertices[f.V[1]].Position).Add(m.Vertices[f.V[2]].Position)
		if n.Dot(c) <= 0 {
			return false
		}
	}
	return true
}

func TestSphere(t *testing.T) {
	m := NewSphere(16, 8, 0.5)
	if got, want := m.TriangleCount(), 16*(2*8-2); got != want {
		t.Errorf("TriangleCount() = %d, want %d", got, want)
	}
	for i, v := range m.Vertices {
		if math.Abs(v.Position.Len()-0.5) > 1e-9 {
			t.Fatalf("vertex %d off the sphere: %v", i, v.Position)
		}
		if !v.Normal.ApproxEqual(v.Position.Mul(2)) {
			t.Fatalf("vertex %d normal %v not radial", i, v.Normal)
		}
	}
	if !outward(m) {
		t.Error("sphere faces do not wind for outward-facing normals")
	}
	lo, hi := m.GetBounds()
	if !lo.ApproxEqualThreshold(mgl64.Vec3{-0.5, -0.5, -0.5}, 1e-9) || !hi.ApproxEqualThreshold(mgl64.Vec3{0.5, 0.5, 0.5}, 1e-9) {
		t.Errorf("bounds = %v..%v", lo, hi)
	}
}

func TestCube(t *testing.T) {
	m := NewCube(2)
	if m.VertexCount() != 24 || m.TriangleCount() != 12 {
		t.Errorf("got %d vertices / %d triangles", m.VertexCount(), m.TriangleCount())
	}
	if !outward(m) {
		t.Error("cube faces do not wind for outward-facing normals")
	}
	for _, f := range m.Faces {
		want := m.Vertices[f.V[0]].Normal
		if got := safeNormalize(m.faceNormal(f)); !got.ApproxEqual(want) {
			t.Errorf("face normal %v, vertex normal %v", got, want)
		}
	}
	if s := m.Size(); !s.ApproxEqual(mgl64.Vec3{2, 2, 2}) {
		t.Errorf("Size() = %v", s)
	}
}

func TestNewShape(t *testing.T) {
	mat := Material{Name: "clay", BaseColor: mgl32.Vec3{0.8, 0.7, 0.6}, Roughness: 0.6}
	for _, s := range []Shape{ShapeSphere, ShapeCube} {
		m, err := NewShape(s, mat)
		if err != nil {
			t.Fatalf("NewShape(%s): %v", s, err)
		}
		if m.FaceSurface(0).BaseColor != mat.BaseColor {
			t.Errorf("%s: faces do not use the material", s)
		}
	}
	if _, err := NewShape("teapot", mat); err == nil {
		t.Error("expected an error for an unknown shape")
	}
}

func TestFit(t *testing.T) {
	m := NewCube(1)
	m.Transform(mgl64.Translate3D(5, -3, 2).Mul4(mgl64.Scale3D(4, 2, 1)))
	m.Fit(2)
	if c := m.Center(); !c.ApproxEqualThreshold(mgl64.Vec3{}, 1e-9) {
		t.Errorf("Center() = %v, want origin", c)
	}
	if s := m.Size(); !s.ApproxEqualThreshold(mgl64.Vec3{2, 1, 0.5}, 1e-9) {
		t.Errorf("Size() = %v, want {2 1 0.5}", s)
	}
	if !outward(m) {
		t.Error("Fit broke the winding")
	}
}

func TestCalculateNormals(t *testing.T) {
	m := NewCube(1)
	want := make([]mgl64.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		want[i] = v.Normal
		m.Vertices[i].Normal = mgl64.Vec3{}
	}
	m.CalculateNormals()
	for i, v := range m.Vertices {
		if !v.Normal.ApproxEqual(want[i]) {
			t.Errorf("vertex %d normal = %v, want %v", i, v.Normal, want[i])
		}
	}
}
