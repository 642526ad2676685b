package env

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"golang.org/x/image/draw"

	"github.com/taigrr/studio/pkg/render"
)

// PreviewFactor is the downscale from a panorama to its preview.
const PreviewFactor = 4

// Decode decodes panorama bytes into a full-resolution linear texture and
// its smoothed quarter-resolution preview. Radiance data is recognized by
// its signature whatever enc says.
func Decode(data []byte, enc Encoding) (full, preview *render.Texture, err error) {
	if enc == EncodingHDR || IsRadiance(data) {
		full, err = DecodeRGBE(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		preview = full.Downsample(PreviewFactor)
	} else {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("decode panorama: %w", err)
		}
		full = render.TextureFromImage(img)
		preview = render.TextureFromImage(shrink(img, PreviewFactor))
	}
	equirect(full)
	equirect(preview)
	return full, preview, nil
}

// shrink scales img down by factor with a Catmull-Rom filter.
func shrink(img image.Image, factor int) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, max(b.Dx()/factor, 1), max(b.Dy()/factor, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// equirect sets the sampling modes of a panorama: U wraps around the
// horizon, V clamps at the poles.
func equirect(t *render.Texture) {
	t.WrapU = render.WrapRepeat
	t.WrapV = render.WrapClamp
	t.FilterMode = render.FilterBilinear
}
