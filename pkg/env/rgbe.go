package env

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/render"
)

// ErrNotRadiance is returned for data without a Radiance header.
var ErrNotRadiance = errors.New("not a Radiance HDR image")

const (
	rgbeFormat    = "32-bit_rle_rgbe"
	maxRGBEPixels = 1 << 26
)

// IsRadiance reports whether data starts with a Radiance signature.
func IsRadiance(data []byte) bool {
	return bytes.HasPrefix(data, []byte("#?RADIANCE")) || bytes.HasPrefix(data, []byte("#?RGBE"))
}

// DecodeRGBE decodes a Radiance .hdr image into a linear float texture.
// Only the standard -Y h +X w orientation and RGBE pixels are supported.
func DecodeRGBE(r io.Reader) (*render.Texture, error) {
	br := bufio.NewReader(r)

	magic, err := readHeaderLine(br)
	if err != nil || !strings.HasPrefix(magic, "#?") {
		return nil, ErrNotRadiance
	}
	for {
		line, err := readHeaderLine(br)
		if err != nil {
			return nil, fmt.Errorf("rgbe header: %w", err)
		}
		if line == "" {
			break
		}
		if format, ok := strings.CutPrefix(line, "FORMAT="); ok && format != rgbeFormat {
			return nil, fmt.Errorf("rgbe: unsupported format %q", format)
		}
	}

	res, err := readHeaderLine(br)
	if err != nil {
		return nil, fmt.Errorf("rgbe resolution: %w", err)
	}
	var w, h int
	if _, err := fmt.Sscanf(res, "-Y %d +X %d", &h, &w); err != nil {
		return nil, fmt.Errorf("rgbe: unsupported resolution line %q", res)
	}
	// Compare by division so huge dimensions cannot overflow the product.
	if w <= 0 || h <= 0 || w > maxRGBEPixels/h {
		return nil, fmt.Errorf("rgbe: bad size %dx%d", w, h)
	}

	tex := render.NewTexture(w, h)
	scan := make([]byte, w*4)
	for y := range h {
		if err := readScanline(br, scan, w); err != nil {
			return nil, fmt.Errorf("rgbe scanline %d: %w", y, err)
		}
		row := tex.Pixels[y*w : (y+1)*w]
		for x := range row {
			row[x] = rgbeToLinear(scan[x*4 : x*4+4])
		}
	}
	return tex, nil
}

func readHeaderLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readScanline reads one row into scan as interleaved RGBE quadruples,
// handling both flat and run-length encoded rows.
func readScanline(br *bufio.Reader, scan []byte, w int) error {
	if w < 8 || w > 0x7fff {
		_, err := io.ReadFull(br, scan)
		return err
	}
	head, err := br.Peek(4)
	if err != nil {
		return err
	}
	if head[0] != 2 || head[1] != 2 || head[2]&0x80 != 0 {
		_, err := io.ReadFull(br, scan)
		return err
	}
	if _, err := br.Discard(4); err != nil {
		return err
	}
	if n := int(head[2])<<8 | int(head[3]); n != w {
		return fmt.Errorf("run-length width %d, want %d", n, w)
	}

	for c := range 4 {
		for x := 0; x < w; {
			count, err := br.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > w {
					return errors.New("run overflows scanline")
				}
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				for i := range n {
					scan[(x+i)*4+c] = v
				}
				x += n
				continue
			}
			n := int(count)
			if n == 0 || x+n > w {
				return errors.New("bad literal run")
			}
			for i := range n {
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				scan[(x+i)*4+c] = v
			}
			x += n
		}
	}
	return nil
}

func rgbeToLinear(p []byte) mgl32.Vec3 {
	if p[3] == 0 {
		return mgl32.Vec3{}
	}
	f := math.Ldexp(1, int(p[3])-(128+8))
	return mgl32.Vec3{
		float32(float64(p[0]) * f),
		float32(float64(p[1]) * f),
		float32(float64(p[2]) * f),
	}
}
