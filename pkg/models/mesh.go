// Package models provides the meshes the studio displays: glTF assets and
// a few procedural shapes.
package models

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/taigrr/studio/pkg/render"
)

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// Bounding box (calculated on load)
	BoundsMin mgl64.Vec3
	BoundsMax mgl64.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	UV       mgl64.Vec2 // V up
}

// Face represents a triangle face with vertex indices and material reference.
// Front faces wind clockwise as seen by the camera.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material is a metallic-roughness PBR material. BaseColor is linear.
type Material struct {
	Name      string
	BaseColor mgl32.Vec3
	Metallic  float32 // 0 = dielectric, 1 = metal
	Roughness float32 // 0 = smooth, 1 = rough
	BaseMap   *render.Texture
}

// DefaultMaterial is the glTF default: white, fully metallic and rough.
func DefaultMaterial() Material {
	return Material{Name: "default", BaseColor: mgl32.Vec3{1, 1, 1}, Metallic: 1, Roughness: 1}
}

// Surface converts the material for the rasterizer.
func (m Material) Surface() render.Surface {
	return render.Surface{
		BaseColor: m.BaseColor,
		Metallic:  m.Metallic,
		Roughness: m.Roughness,
		BaseMap:   m.BaseMap,
	}
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: make([]MeshVertex, 0),
		Faces:    make([]Face, 0),
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		for k := range 3 {
			m.BoundsMin[k] = min(m.BoundsMin[k], v.Position[k])
			m.BoundsMax[k] = max(m.BoundsMax[k], v.Position[k])
		}
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() mgl64.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Mul(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() mgl64.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// faceNormal returns the unnormalized outward normal of a face.
func (m *Mesh) faceNormal(f Face) mgl64.Vec3 {
	v0 := m.Vertices[f.V[0]].Position
	v1 := m.Vertices[f.V[1]].Position
	v2 := m.Vertices[f.V[2]].Position
	// Faces wind clockwise, so the cross product is flipped.
	return v2.Sub(v0).Cross(v1.Sub(v0))
}

// CalculateNormals assigns face normals to vertices. Vertices shared between
// faces end up with the normal of the last face.
func (m *Mesh) CalculateNormals() {
	for _, f := range m.Faces {
		n := safeNormalize(m.faceNormal(f))
		for _, vi := range f.V {
			m.Vertices[vi].Normal = n
		}
	}
}

// CalculateSmoothNormals computes area-weighted averaged normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = mgl64.Vec3{}
	}
	for _, f := range m.Faces {
		n := m.faceNormal(f)
		for _, vi := range f.V {
			m.Vertices[vi].Normal = m.Vertices[vi].Normal.Add(n)
		}
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = safeNormalize(m.Vertices[i].Normal)
	}
}

func safeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}

// Transform applies a transformation matrix to all vertices. Normals use
// the inverse transpose.
func (m *Mesh) Transform(mat mgl64.Mat4) {
	normalMat := mat.Inv().Transpose()
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mgl64.TransformCoordinate(v.Position, mat)
		v.Normal = safeNormalize(mgl64.TransformNormal(v.Normal, normalMat))
	}
	m.CalculateBounds()
}

// Fit centers the mesh on the origin and scales it so its largest
// dimension equals size.
func (m *Mesh) Fit(size float64) {
	m.CalculateBounds()
	ext := m.Size()
	largest := max(ext[0], ext[1], ext[2])
	if largest <= 0 {
		return
	}
	s := size / largest
	c := m.Center()
	m.Transform(mgl64.Scale3D(s, s, s).Mul4(mgl64.Translate3D(-c[0], -c[1], -c[2])))
}

// Clone creates a deep copy of the mesh. Textures are shared.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		Materials: make([]Material, len(m.Materials)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Materials, m.Materials)
	return clone
}

// GetVertex returns the position, normal, and UV for vertex i.
// Implements render.MeshRenderer interface.
func (m *Mesh) GetVertex(i int) (pos, normal mgl64.Vec3, uv mgl64.Vec2) {
	v := m.Vertices[i]
	return v.Position, v.Normal, v.UV
}

// GetFace returns the vertex indices for face i.
// Implements render.MeshRenderer interface.
func (m *Mesh) GetFace(i int) [3]int {
	return m.Faces[i].V
}

// GetFaceMaterial returns the material index for face i.
// Returns -1 if no material assigned.
func (m *Mesh) GetFaceMaterial(i int) int {
	return m.Faces[i].Material
}

// GetMaterial returns the material at index i.
// Returns nil if index is out of bounds or -1.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

// FaceSurface returns the surface for face i.
// Implements render.SurfaceMeshRenderer interface.
func (m *Mesh) FaceSurface(i int) render.Surface {
	if mat := m.GetMaterial(m.Faces[i].Material); mat != nil {
		return mat.Surface()
	}
	return render.DefaultSurface()
}

// GetBounds returns the axis-aligned bounding box.
// Implements render.BoundedMeshRenderer interface.
func (m *Mesh) GetBounds() (lo, hi mgl64.Vec3) {
	return m.BoundsMin, m.BoundsMax
}

// Dispose releases material textures.
func (m *Mesh) Dispose() {
	for i := range m.Materials {
		m.Materials[i].BaseMap.Dispose()
		m.Materials[i].BaseMap = nil
	}
}
