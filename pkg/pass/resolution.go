package pass

import "github.com/go-gl/mathgl/mgl32"

func resolution(w, h int) mgl32.Vec2 {
	return mgl32.Vec2{float32(w), float32(h)}
}

func texelSize(w, h int) mgl32.Vec2 {
	var ts mgl32.Vec2
	if w > 0 {
		ts[0] = 1 / float32(w)
	}
	if h > 0 {
		ts[1] = 1 / float32(h)
	}
	return ts
}
