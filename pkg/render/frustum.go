package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane is Normal·p + D = 0. Points with positive distance are inside.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// Normalize scales the plane so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Mul(1 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to point.
func (p Plane) DistanceToPoint(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum holds six inward-facing planes: left, right, bottom, top, near,
// far.
type Frustum struct {
	Planes [6]Plane
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// NewFrustumFromMatrix extracts the planes of a column-major view-projection
// matrix (Gribb/Hartmann).
func NewFrustumFromMatrix(m mgl64.Mat4) Frustum {
	row := func(i int) mgl64.Vec4 { return m.Row(i) }
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combos := [6]mgl64.Vec4{
		FrustumLeft:   r3.Add(r0),
		FrustumRight:  r3.Sub(r0),
		FrustumBottom: r3.Add(r1),
		FrustumTop:    r3.Sub(r1),
		FrustumNear:   r3.Add(r2),
		FrustumFar:    r3.Sub(r2),
	}

	var f Frustum
	for i, c := range combos {
		f.Planes[i] = Plane{Normal: c.Vec3(), D: c[3]}
		f.Planes[i].Normalize()
	}
	return f
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p mgl64.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectAABB reports whether any part of box is inside the frustum,
// testing the corner furthest along each plane normal.
func (f Frustum) IntersectAABB(box AABB) bool {
	for _, plane := range f.Planes {
		var far mgl64.Vec3
		for k := range 3 {
			if plane.Normal[k] >= 0 {
				far[k] = box.Max[k]
			} else {
				far[k] = box.Min[k]
			}
		}
		if plane.DistanceToPoint(far) < 0 {
			return false
		}
	}
	return true
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// Center returns the center of the box.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the dimensions of the box.
func (b AABB) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns the radius of the bounding sphere around Center.
func (b AABB) Radius() float64 {
	return b.Size().Len() / 2
}

// Transform returns the box bounding all eight transformed corners.
func (b AABB) Transform(m mgl64.Mat4) AABB {
	var out AABB
	for i := range 8 {
		corner := b.Min
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		p := mgl64.TransformCoordinate(corner, m)
		if i == 0 {
			out = AABB{Min: p, Max: p}
			continue
		}
		for k := range 3 {
			out.Min[k] = math.Min(out.Min[k], p[k])
			out.Max[k] = math.Max(out.Max[k], p[k])
		}
	}
	return out
}

// Frustum returns the current view frustum of the camera.
func (c *Camera) Frustum() Frustum {
	return NewFrustumFromMatrix(c.ViewProjectionMatrix())
}
