package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/taigrr/studio/pkg/shade"
)

// Vertex is a world-space vertex.
type Vertex struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	UV       mgl64.Vec2
}

// Triangle is a triangle to be rasterized.
type Triangle struct {
	V [3]Vertex
}

// Surface is the material of a triangle. BaseColor is linear.
type Surface struct {
	BaseColor mgl32.Vec3
	Metallic  float32
	Roughness float32
	BaseMap   *Texture
}

// DefaultSurface is a mid-gray dielectric.
func DefaultSurface() Surface {
	return Surface{BaseColor: mgl32.Vec3{0.6, 0.6, 0.6}, Roughness: 0.5}
}

// Lighting supplies image-based lighting to the scene pass.
type Lighting interface {
	// Specular returns prefiltered radiance along dir for a roughness in [0,1].
	Specular(dir mgl32.Vec3, roughness float32) mgl32.Vec3
	// Irradiance returns diffuse irradiance for a surface normal.
	Irradiance(normal mgl32.Vec3) mgl32.Vec3
}

// Backdrop supplies radiance for pixels no geometry covers.
type Backdrop interface {
	Background(dir mgl32.Vec3) mgl32.Vec3
}

// DirectionalLight is a key light shining along Direction.
type DirectionalLight struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
}

// ShadeParams carries everything the scene shader reads per frame.
// Nil Lighting or Backdrop falls back to the flat Fill color.
type ShadeParams struct {
	Lighting  Lighting
	Intensity float32
	Backdrop  Backdrop
	Fill      mgl32.Vec3
	Key       DirectionalLight
	Rim       shade.RimParams
}

// Rasterizer handles software triangle rasterization into a Framebuffer.
type Rasterizer struct {
	camera                 *Camera
	fb                     *Framebuffer
	frustum                Frustum      // Cached frustum planes
	frustumDirty           bool         // Whether frustum needs recalculation
	CullingStats           CullingStats // Statistics for debugging/benchmarking
	DisableBackfaceCulling bool         // If true, render both sides of triangles
}

// CullingStats tracks frustum culling performance.
type CullingStats struct {
	MeshesTested int
	MeshesCulled int
	MeshesDrawn  int
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *Camera, fb *Framebuffer) *Rasterizer {
	return &Rasterizer{camera: camera, fb: fb, frustumDirty: true}
}

// SetTarget redirects drawing to fb.
func (r *Rasterizer) SetTarget(fb *Framebuffer) {
	r.fb = fb
}

// Camera returns the camera the rasterizer projects with.
func (r *Rasterizer) Camera() *Camera {
	return r.camera
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// ClearDepth clears the depth plane (call before each frame).
func (r *Rasterizer) ClearDepth() {
	if r.fb != nil {
		r.fb.ClearDepth()
	}
}

// InvalidateFrustum marks the frustum as needing recalculation.
// Call this when the camera moves or rotates.
func (r *Rasterizer) InvalidateFrustum() {
	r.frustumDirty = true
}

// Frustum returns the current frustum (updating if needed).
func (r *Rasterizer) Frustum() Frustum {
	if r.frustumDirty {
		r.frustum = r.camera.Frustum()
		r.frustumDirty = false
	}
	return r.frustum
}

// ResetCullingStats resets the culling statistics (call once per frame).
func (r *Rasterizer) ResetCullingStats() {
	r.CullingStats = CullingStats{}
}

// IsVisible tests if a world-space AABB is visible in the frustum.
func (r *Rasterizer) IsVisible(worldBounds AABB) bool {
	return r.Frustum().IntersectAABB(worldBounds)
}

// DrawBackground fills every pixel with the backdrop seen through it, or
// with the fill color when there is no backdrop, and clears depth.
func (r *Rasterizer) DrawBackground(p *ShadeParams) {
	if r.fb == nil {
		return
	}
	r.fb.ClearDepth()
	if p.Backdrop == nil {
		r.fb.Clear(p.Fill)
		return
	}
	w, h := r.fb.Width, r.fb.Height
	for y := range h {
		v := (float64(y) + 0.5) / float64(h)
		for x := range w {
			u := (float64(x) + 0.5) / float64(w)
			d := r.camera.ViewRay(u, v)
			r.fb.Pixels[y*w+x] = p.Backdrop.Background(toVec32(d))
		}
	}
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y float64 // Screen coordinates
	W    float64 // Clip W, the view-space depth
}

// DrawTriangle rasterizes one lit triangle. Depth is the linear view depth,
// interpolated perspective-correctly.
func (r *Rasterizer) DrawTriangle(tri Triangle, surf Surface, p *ShadeParams) {
	if r.fb == nil {
		return
	}
	var sv [3]screenVertex
	viewProj := r.camera.ViewProjectionMatrix()

	for i := range 3 {
		clip := viewProj.Mul4x1(tri.V[i].Position.Vec4(1))
		// No near-plane clipping; drop triangles that cross the camera.
		if clip[3] <= r.camera.Near*0.5 {
			return
		}
		sv[i].X = (clip[0]/clip[3] + 1) * 0.5 * float64(r.Width())
		sv[i].Y = (1 - clip[1]/clip[3]) * 0.5 * float64(r.Height()) // Y flipped
		sv[i].W = clip[3]
	}

	// Backface culling (using screen-space winding)
	cross := (sv[1].X-sv[0].X)*(sv[2].Y-sv[0].Y) - (sv[1].Y-sv[0].Y)*(sv[2].X-sv[0].X)
	if cross == 0 || (cross < 0 && !r.DisableBackfaceCulling) {
		return
	}

	minX := int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	var invW [3]float64
	for i := range 3 {
		invW[i] = 1.0 / sv[i].W
	}
	eye := r.camera.Position

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			bc := barycentric(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, sv[2].X, sv[2].Y, px, py)
			if bc[0] < 0 || bc[1] < 0 || bc[2] < 0 {
				continue
			}

			// Perspective-correct weights
			w0, w1, w2 := bc[0]*invW[0], bc[1]*invW[1], bc[2]*invW[2]
			sum := w0 + w1 + w2
			depth := float32(1 / sum)
			idx := y*r.fb.Width + x
			if depth >= r.fb.Depth[idx] {
				continue
			}
			w0, w1, w2 = w0/sum, w1/sum, w2/sum

			pos := tri.V[0].Position.Mul(w0).Add(tri.V[1].Position.Mul(w1)).Add(tri.V[2].Position.Mul(w2))
			n := tri.V[0].Normal.Mul(w0).Add(tri.V[1].Normal.Mul(w1)).Add(tri.V[2].Normal.Mul(w2))
			uv := tri.V[0].UV.Mul(w0).Add(tri.V[1].UV.Mul(w1)).Add(tri.V[2].UV.Mul(w2))

			view := eye.Sub(pos)
			if n.Len() == 0 || view.Len() == 0 {
				continue
			}
			if cross < 0 {
				n = n.Mul(-1)
			}

			r.fb.Depth[idx] = depth
			r.fb.Pixels[idx] = shadeSurface(toVec32(n.Normalize()), toVec32(view.Normalize()), uv, surf, p)
		}
	}
}

// shadeSurface evaluates the scene shader: split-sum image-based lighting,
// one key light, and an optional fresnel rim term.
func shadeSurface(n, v mgl32.Vec3, uv mgl64.Vec2, surf Surface, p *ShadeParams) mgl32.Vec3 {
	base := surf.BaseColor
	if surf.BaseMap != nil {
		base = shade.MulVec(base, surf.BaseMap.Sample(uv[0], uv[1]))
	}
	metal := shade.Clamp01(surf.Metallic)
	rough := shade.Clamp01(surf.Roughness)

	nv := shade.Clamp01(n.Dot(v))
	f0 := shade.Mix(mgl32.Vec3{0.04, 0.04, 0.04}, base, metal)
	f := shade.FresnelSchlick(nv, f0)
	kd := mgl32.Vec3{1, 1, 1}.Sub(f).Mul(1 - metal)

	var irradiance, specular mgl32.Vec3
	if p.Lighting != nil {
		irradiance = p.Lighting.Irradiance(n).Mul(p.Intensity)
		specular = p.Lighting.Specular(shade.Reflect(v.Mul(-1), n), rough).Mul(p.Intensity)
	} else {
		irradiance = p.Fill
		specular = p.Fill
	}
	// Rough surfaces reflect less of the environment's sharp detail.
	specular = shade.MulVec(specular, f).Mul(1 - 0.5*rough)
	out := shade.MulVec(shade.MulVec(kd, base), irradiance).Add(specular)

	if l := p.Key.Direction.Len(); l > 0 {
		toLight := p.Key.Direction.Mul(-1 / l)
		if ndl := n.Dot(toLight); ndl > 0 {
			out = out.Add(shade.MulVec(shade.MulVec(kd, base), p.Key.Color).Mul(ndl))
		}
	}

	if rim := shade.FresnelRim(n, v, p.Rim); rim > 0 {
		out = out.Add(p.Rim.Color.Mul(rim))
	}
	return out
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) mgl64.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return mgl64.Vec3{1 - u - v, v, u}
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

func toVec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// MeshRenderer lets the rasterizer draw meshes without importing the
// models package.
type MeshRenderer interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal mgl64.Vec3, uv mgl64.Vec2)
	GetFace(i int) [3]int
}

// BoundedMeshRenderer extends MeshRenderer with bounding box support for frustum culling.
type BoundedMeshRenderer interface {
	MeshRenderer
	GetBounds() (min, max mgl64.Vec3)
}

// SurfaceMeshRenderer extends MeshRenderer with per-face materials.
type SurfaceMeshRenderer interface {
	MeshRenderer
	FaceSurface(i int) Surface
}

// tryFrustumCull reports whether a bounded mesh is entirely outside the
// view.
func (r *Rasterizer) tryFrustumCull(mesh MeshRenderer, transform mgl64.Mat4) bool {
	bounded, ok := mesh.(BoundedMeshRenderer)
	if !ok {
		return false
	}

	r.CullingStats.MeshesTested++
	lo, hi := bounded.GetBounds()
	if !r.IsVisible(AABB{Min: lo, Max: hi}.Transform(transform)) {
		r.CullingStats.MeshesCulled++
		return true
	}
	r.CullingStats.MeshesDrawn++
	return false
}

// DrawMesh renders a mesh with the given model transform. Meshes that
// implement SurfaceMeshRenderer use their own materials, others use
// DefaultSurface.
func (r *Rasterizer) DrawMesh(mesh MeshRenderer, transform mgl64.Mat4, p *ShadeParams) {
	if r.tryFrustumCull(mesh, transform) {
		return
	}
	surfaced, hasSurfaces := mesh.(SurfaceMeshRenderer)
	fallback := DefaultSurface()

	// Normals use the inverse transpose so non-uniform scale stays correct.
	normalMat := transform.Inv().Transpose()

	for i := 0; i < mesh.TriangleCount(); i++ {
		face := mesh.GetFace(i)
		var tri Triangle
		for k := range 3 {
			pos, normal, uv := mesh.GetVertex(face[k])
			tri.V[k] = Vertex{
				Position: mgl64.TransformCoordinate(pos, transform),
				Normal:   mgl64.TransformNormal(normal, normalMat),
				UV:       uv,
			}
		}
		surf := fallback
		if hasSurfaces {
			surf = surfaced.FaceSurface(i)
		}
		r.DrawTriangle(tri, surf, p)
	}
}
