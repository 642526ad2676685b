package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera represents a 3D camera with position and orientation.
type Camera struct {
	// Position in world space
	Position mgl64.Vec3

	// Orientation (Euler angles in radians)
	Pitch float64 // Rotation around X axis (look up/down)
	Yaw   float64 // Rotation around Y axis (look left/right)
	Roll  float64 // Rotation around Z axis (tilt)

	// Projection parameters
	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64 // Near clipping plane
	Far         float64 // Far clipping plane

	// Cached matrices (computed on demand)
	viewMatrix     mgl64.Mat4
	projMatrix     mgl64.Mat4
	viewProjMatrix mgl64.Mat4
	invViewProj    mgl64.Mat4
	viewDirty      bool
	projDirty      bool
	comboDirty     bool
}

// NewCamera creates a new camera with default settings.
func NewCamera() *Camera {
	return &Camera{
		Position:    mgl64.Vec3{0, 0, 5},
		FOV:         math.Pi / 4, // 45 degrees
		AspectRatio: 16.0 / 9.0,
		Near:        0.05,
		Far:         500,
		viewDirty:   true,
		projDirty:   true,
		comboDirty:  true,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos mgl64.Vec3) {
	c.Position = pos
	c.viewDirty = true
}

// SetRotation sets the camera rotation (pitch, yaw, roll in radians).
func (c *Camera) SetRotation(pitch, yaw, roll float64) {
	c.Pitch = pitch
	c.Yaw = yaw
	c.Roll = roll
	c.viewDirty = true
}

// SetFOV sets the field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.FOV = fov
	c.projDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
	c.projDirty = true
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// Forward returns the forward direction vector.
func (c *Camera) Forward() mgl64.Vec3 {
	// Forward is -Z in camera space, rotated by yaw and pitch
	return mgl64.Vec3{
		-math.Sin(c.Yaw) * math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw) * math.Cos(c.Pitch),
	}
}

// Right returns the right direction vector.
func (c *Camera) Right() mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(c.Yaw), 0, -math.Sin(c.Yaw)}
}

// Up returns the up direction vector.
func (c *Camera) Up() mgl64.Vec3 {
	return c.Right().Cross(c.Forward())
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	if c.viewDirty {
		c.computeViewMatrix()
		c.viewDirty = false
		c.comboDirty = true
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() mgl64.Mat4 {
	if c.projDirty {
		c.projMatrix = mgl64.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
		c.comboDirty = true
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() mgl64.Mat4 {
	view := c.ViewMatrix()
	proj := c.ProjectionMatrix()
	if c.comboDirty {
		c.viewProjMatrix = proj.Mul4(view)
		c.invViewProj = c.viewProjMatrix.Inv()
		c.comboDirty = false
	}
	return c.viewProjMatrix
}

func (c *Camera) computeViewMatrix() {
	// View = Rotation * Translation(-position)
	rot := mgl64.HomogRotate3DZ(-c.Roll).Mul4(
		mgl64.HomogRotate3DX(-c.Pitch)).Mul4(
		mgl64.HomogRotate3DY(-c.Yaw))
	trans := mgl64.Translate3D(-c.Position[0], -c.Position[1], -c.Position[2])
	c.viewMatrix = rot.Mul4(trans)
}

// Rotate rotates the camera by the given angles (in radians).
func (c *Camera) Rotate(deltaPitch, deltaYaw, deltaRoll float64) {
	c.Pitch += deltaPitch
	c.Yaw += deltaYaw
	c.Roll += deltaRoll

	// Clamp pitch to avoid gimbal lock issues
	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch))

	c.viewDirty = true
}

// LookAt makes the camera look at a target point.
func (c *Camera) LookAt(target mgl64.Vec3) {
	d := target.Sub(c.Position)
	if d.Len() == 0 {
		return
	}
	dir := d.Normalize()

	c.Pitch = math.Asin(dir[1])
	c.Yaw = math.Atan2(-dir[0], -dir[2])
	c.Roll = 0

	c.viewDirty = true
}

// Orbit places the camera on a sphere of the given radius around target,
// at azimuth yaw and elevation pitch (radians), looking at the target.
func (c *Camera) Orbit(target mgl64.Vec3, radius, yaw, pitch float64) {
	const maxPitch = math.Pi/2 - 0.01
	pitch = math.Max(-maxPitch, math.Min(maxPitch, pitch))
	offset := mgl64.Vec3{
		math.Sin(yaw) * math.Cos(pitch),
		math.Sin(pitch),
		math.Cos(yaw) * math.Cos(pitch),
	}.Mul(radius)
	c.SetPosition(target.Add(offset))
	c.LookAt(target)
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos mgl64.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clipPos := c.ViewProjectionMatrix().Mul4x1(worldPos.Vec4(1))

	// Check if behind camera
	if clipPos[3] <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.Vec3().Mul(1 / clipPos[3])
	if ndc[0] < -1 || ndc[0] > 1 || ndc[1] < -1 || ndc[1] > 1 || ndc[2] < -1 || ndc[2] > 1 {
		return 0, 0, 0, false
	}

	x = (ndc[0] + 1) * 0.5 * float64(screenWidth)
	y = (1 - ndc[1]) * 0.5 * float64(screenHeight) // Y is flipped
	return x, y, ndc[2], true
}

// ViewRay returns the normalized world-space direction through the
// normalized screen coordinate (u, v), origin top-left.
func (c *Camera) ViewRay(u, v float64) mgl64.Vec3 {
	_ = c.ViewProjectionMatrix()
	ndcX := u*2 - 1
	ndcY := 1 - v*2
	far := mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, 1}, c.invViewProj)
	dir := far.Sub(c.Position)
	if dir.Len() == 0 {
		return c.Forward()
	}
	return dir.Normalize()
}
