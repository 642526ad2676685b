package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// depthBias keeps lines lying on a surface from flickering behind it.
const depthBias = 0.01

// Wireframe draws overlay lines into a framebuffer: the floor grid, model
// bounds and axes. Lines are tested against the scene depth but do not
// write it.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer

	// DepthTest hides lines behind drawn geometry. On by default.
	DepthTest bool
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{camera: camera, fb: fb, DepthTest: true}
}

// SetTarget changes the framebuffer lines are drawn into.
func (w *Wireframe) SetTarget(fb *Framebuffer) { w.fb = fb }

// DrawLine3D draws a world-space segment, clipped against the near plane.
func (w *Wireframe) DrawLine3D(p1, p2 mgl64.Vec3, c mgl32.Vec3) {
	if w.fb == nil || w.fb.Width == 0 || w.fb.Height == 0 {
		return
	}
	vp := w.camera.ViewProjectionMatrix()
	a := vp.Mul4x1(p1.Vec4(1))
	b := vp.Mul4x1(p2.Vec4(1))

	near := w.camera.Near
	if a[3] < near && b[3] < near {
		return
	}
	if a[3] < near {
		a = a.Add(b.Sub(a).Mul((near - a[3]) / (b[3] - a[3])))
	} else if b[3] < near {
		b = b.Add(a.Sub(b).Mul((near - b[3]) / (a[3] - b[3])))
	}

	ax, ay := w.toScreen(a)
	bx, by := w.toScreen(b)
	steps := int(math.Ceil(math.Max(math.Abs(bx-ax), math.Abs(by-ay))))
	if steps == 0 {
		w.plot(ax, ay, a[3], c)
		return
	}
	// Depth is linear in 1/w across the screen.
	ia, ib := 1/a[3], 1/b[3]
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		w.plot(ax+(bx-ax)*t, ay+(by-ay)*t, 1/(ia+(ib-ia)*t), c)
	}
}

func (w *Wireframe) toScreen(clip mgl64.Vec4) (x, y float64) {
	x = (clip[0]/clip[3] + 1) * 0.5 * float64(w.fb.Width)
	y = (1 - clip[1]/clip[3]) * 0.5 * float64(w.fb.Height)
	return x, y
}

func (w *Wireframe) plot(fx, fy, depth float64, c mgl32.Vec3) {
	x, y := int(math.Floor(fx)), int(math.Floor(fy))
	if x < 0 || y < 0 || x >= w.fb.Width || y >= w.fb.Height {
		return
	}
	i := y*w.fb.Width + x
	if w.DepthTest && float32(depth) > w.fb.Depth[i]+depthBias {
		return
	}
	w.fb.Pixels[i] = c
}

// boxEdges index the corners produced by boxCorner.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// boxCorner returns corner i of the box; bit 0 picks x, bit 1 y, bit 2 z.
func boxCorner(box AABB, i int) mgl64.Vec3 {
	p := box.Min
	for k := range 3 {
		if i&(1<<k) != 0 {
			p[k] = box.Max[k]
		}
	}
	return p
}

// DrawBox draws the edges of a local-space box placed by transform.
func (w *Wireframe) DrawBox(box AABB, transform mgl64.Mat4, c mgl32.Vec3) {
	var world [8]mgl64.Vec3
	for i := range world {
		world[i] = mgl64.TransformCoordinate(boxCorner(box, i), transform)
	}
	for _, e := range boxEdges {
		w.DrawLine3D(world[e[0]], world[e[1]], c)
	}
}

// DrawAxes draws the coordinate axes at the origin in red, green and blue.
func (w *Wireframe) DrawAxes(length float64) {
	var origin mgl64.Vec3
	w.DrawLine3D(origin, mgl64.Vec3{length, 0, 0}, mgl32.Vec3{1, 0, 0})
	w.DrawLine3D(origin, mgl64.Vec3{0, length, 0}, mgl32.Vec3{0, 1, 0})
	w.DrawLine3D(origin, mgl64.Vec3{0, 0, length}, mgl32.Vec3{0, 0, 1})
}

// DrawGrid draws a square grid on the plane at height y, centered under
// the origin.
func (w *Wireframe) DrawGrid(y, size, step float64, c mgl32.Vec3) {
	if step <= 0 || size <= 0 {
		return
	}
	half := size / 2
	n := int(math.Round(size / step))
	for i := 0; i <= n; i++ {
		v := -half + float64(i)*step
		w.DrawLine3D(mgl64.Vec3{v, y, -half}, mgl64.Vec3{v, y, half}, c)
		w.DrawLine3D(mgl64.Vec3{-half, y, v}, mgl64.Vec3{half, y, v}, c)
	}
}
