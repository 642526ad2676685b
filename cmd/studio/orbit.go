package main

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/studio/pkg/studio"
)

// orbitAxis integrates one camera angle. The velocity decays toward zero
// on a critically damped spring, so a drag keeps coasting briefly.
type orbitAxis struct {
	Position float64
	Velocity float64
	spring   harmonica.Spring
	accel    float64
}

func newOrbitAxis(fps int, position float64) orbitAxis {
	return orbitAxis{
		Position: position,
		spring:   harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

func (a *orbitAxis) update() {
	a.Position += a.Velocity
	a.Velocity, a.accel = a.spring.Update(a.Velocity, a.accel, 0)
}

// orbit is the interactive camera: yaw and pitch with momentum, distance
// set directly.
type orbit struct {
	Yaw, Pitch orbitAxis
	Distance   float64
	home       studio.View
	fps        int
}

func newOrbit(fps int, home studio.View) *orbit {
	o := &orbit{home: home, fps: max(fps, 1)}
	o.reset()
	return o
}

func (o *orbit) reset() {
	o.Yaw = newOrbitAxis(o.fps, o.home.Yaw)
	o.Pitch = newOrbitAxis(o.fps, o.home.Pitch)
	o.Distance = o.home.Distance
}

func (o *orbit) impulse(yaw, pitch float64) {
	o.Yaw.Velocity += yaw
	o.Pitch.Velocity += pitch
}

// zoom scales the distance; factors below one move closer.
func (o *orbit) zoom(factor float64) {
	o.Distance = math.Max(0.5, math.Min(50, o.Distance*factor))
}

func (o *orbit) update() {
	o.Yaw.update()
	o.Pitch.update()
	const limit = math.Pi/2 - 0.01
	if math.Abs(o.Pitch.Position) > limit {
		o.Pitch.Position = math.Copysign(limit, o.Pitch.Position)
		o.Pitch.Velocity = 0
	}
}

func (o *orbit) view() studio.View {
	return studio.View{Yaw: o.Yaw.Position, Pitch: o.Pitch.Position, Distance: o.Distance}
}
