package models

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape names a procedural mesh.
type Shape string

const (
	ShapeSphere Shape = "sphere"
	ShapeCube   Shape = "cube"
)

// NewShape builds a procedural mesh of unit size with one material.
func NewShape(s Shape, mat Material) (*Mesh, error) {
	var m *Mesh
	switch s {
	case ShapeSphere:
		m = NewSphere(48, 24, 0.5)
	case ShapeCube:
		m = NewCube(1)
	default:
		return nil, fmt.Errorf("unknown shape %q", s)
	}
	m.Materials = []Material{mat}
	for i := range m.Faces {
		m.Faces[i].Material = 0
	}
	return m, nil
}

// NewSphere builds a UV sphere. U runs around the equator, V from the south
// pole up.
func NewSphere(segments, rings int, radius float64) *Mesh {
	segments, rings = max(segments, 3), max(rings, 2)
	m := NewMesh("sphere")
	for r := 0; r <= rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= segments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(segments)
			n := mgl64.Vec3{
				math.Sin(theta) * math.Cos(phi),
				math.Cos(theta),
				math.Sin(theta) * math.Sin(phi),
			}
			m.Vertices = append(m.Vertices, MeshVertex{
				Position: n.Mul(radius),
				Normal:   n,
				UV:       mgl64.Vec2{float64(s) / float64(segments), 1 - float64(r)/float64(rings)},
			})
		}
	}
	stride := segments + 1
	for r := range rings {
		for s := range segments {
			i0 := r*stride + s
			i1 := i0 + stride
			i2 := i1 + 1
			i3 := i0 + 1
			// Skip the triangles that collapse at the poles.
			if r < rings-1 {
				m.Faces = append(m.Faces, Face{V: [3]int{i0, i1, i2}, Material: -1})
			}
			if r > 0 {
				m.Faces = append(m.Faces, Face{V: [3]int{i0, i2, i3}, Material: -1})
			}
		}
	}
	m.CalculateBounds()
	return m
}

// NewCube builds an axis-aligned cube with flat faces.
func NewCube(size float64) *Mesh {
	m := NewMesh("cube")
	h := size / 2
	axes := []mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for _, n := range axes {
		u := mgl64.Vec3{n[1], n[2], n[0]}
		v := n.Cross(u)
		base := len(m.Vertices)
		corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			p := n.Add(u.Mul(c[0])).Add(v.Mul(c[1])).Mul(h)
			m.Vertices = append(m.Vertices, MeshVertex{
				Position: p,
				Normal:   n,
				UV:       mgl64.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2},
			})
		}
		m.Faces = append(m.Faces,
			Face{V: [3]int{base, base + 2, base + 1}, Material: -1},
			Face{V: [3]int{base, base + 3, base + 2}, Material: -1},
		)
	}
	m.CalculateBounds()
	return m
}
