package models

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/taigrr/studio/pkg/render"
)

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	SmoothNormals    bool
	LoadTextures     bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
		LoadTextures:     true,
	}
}

// LoadGLB loads a .glb or .gltf file with the default options.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and returns a Mesh. All meshes in the
// document are merged; node transforms are ignored.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	mesh.Materials = l.loadMaterials(doc, filepath.Dir(path))

	for _, m := range doc.Meshes {
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}
	if len(mesh.Faces) == 0 {
		return nil, errors.New("gltf: no triangles")
	}

	hasNormals := false
	for _, v := range mesh.Vertices {
		if v.Normal.Len() > 0.001 {
			hasNormals = true
			break
		}
	}

	if l.CalculateNormals && !hasNormals {
		if l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}

	mesh.CalculateBounds()

	return mesh, nil
}

// loadMaterials converts metallic-roughness materials. Textures that fail
// to decode are skipped and the factor alone is used.
func (l *GLTFLoader) loadMaterials(doc *gltf.Document, dir string) []Material {
	out := make([]Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := DefaultMaterial()
		mat.Name = gm.Name
		pbr := gm.PBRMetallicRoughness
		if pbr == nil {
			out[i] = mat
			continue
		}
		if f := pbr.BaseColorFactor; f != nil {
			mat.BaseColor = mgl32.Vec3{float32(f[0]), float32(f[1]), float32(f[2])}
		}
		if f := pbr.MetallicFactor; f != nil {
			mat.Metallic = float32(*f)
		}
		if f := pbr.RoughnessFactor; f != nil {
			mat.Roughness = float32(*f)
		}
		if l.LoadTextures && pbr.BaseColorTexture != nil {
			if tex, err := loadTexture(doc, pbr.BaseColorTexture.Index, dir); err == nil {
				mat.BaseMap = tex
			}
		}
		out[i] = mat
	}
	return out
}

// loadTexture decodes a texture's image from a buffer view, a data URI, or
// a file next to the document.
func loadTexture(doc *gltf.Document, index int, dir string) (*render.Texture, error) {
	if index < 0 || index >= len(doc.Textures) || doc.Textures[index].Source == nil {
		return nil, fmt.Errorf("texture %d has no source", index)
	}
	gi := doc.Images[*doc.Textures[index].Source]

	var data []byte
	switch {
	case gi.BufferView != nil:
		bv := doc.BufferViews[*gi.BufferView]
		buf := doc.Buffers[bv.Buffer].Data
		if bv.ByteOffset+bv.ByteLength > len(buf) {
			return nil, errors.New("image buffer view out of range")
		}
		data = buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	case strings.HasPrefix(gi.URI, "data:"):
		_, payload, ok := strings.Cut(gi.URI, ",")
		if !ok {
			return nil, errors.New("malformed data URI")
		}
		var err error
		if data, err = base64.StdEncoding.DecodeString(payload); err != nil {
			return nil, err
		}
	case gi.URI != "":
		var err error
		if data, err = os.ReadFile(filepath.Join(dir, gi.URI)); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("image has no data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture: %w", err)
	}
	tex := render.TextureFromImage(img)
	tex.FilterMode = render.FilterBilinear
	return tex, nil
}

// processMesh extracts geometry from a GLTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []mgl64.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []mgl64.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = readVec2Accessor(doc, uvIdx)
			if err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
		}

		baseVertex := len(mesh.Vertices)
		for i := range positions {
			v := MeshVertex{Position: positions[i]}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(uvs) {
				// GLTF uses top-left origin (V=0 at top), flip V for bottom-left origin
				v.UV = mgl64.Vec2{uvs[i][0], 1.0 - uvs[i][1]}
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		// GLTF winds front faces counter-clockwise; the rasterizer expects
		// clockwise after its Y flip, so the last two indices swap.
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			if max(a, b, c) >= len(positions) || min(a, b, c) < 0 {
				return fmt.Errorf("index out of range at triangle %d", i/3)
			}
			mesh.Faces = append(mesh.Faces, Face{
				V:        [3]int{baseVertex + a, baseVertex + c, baseVertex + b},
				Material: material,
			})
		}
	}

	return nil
}

// readVec3Accessor reads Vec3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]mgl64.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}

	floats, err := readFloats(doc, accessor, 3)
	if err != nil {
		return nil, err
	}

	result := make([]mgl64.Vec3, accessor.Count)
	for i := range result {
		result[i] = mgl64.Vec3{float64(floats[i*3]), float64(floats[i*3+1]), float64(floats[i*3+2])}
	}
	return result, nil
}

// readVec2Accessor reads Vec2 data from a GLTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]mgl64.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}

	floats, err := readFloats(doc, accessor, 2)
	if err != nil {
		return nil, err
	}

	result := make([]mgl64.Vec2, accessor.Count)
	for i := range result {
		result[i] = mgl64.Vec2{float64(floats[i*2]), float64(floats[i*2+1])}
	}
	return result, nil
}

// accessorBytes returns the buffer backing an accessor and the offset of
// its first element.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor) ([]byte, int, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, errors.New("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	data := doc.Buffers[bufferView.Buffer].Data
	if data == nil {
		return nil, 0, 0, errors.New("buffer has no data")
	}
	return data, bufferView.ByteOffset + accessor.ByteOffset, bufferView.ByteStride, nil
}

// readFloats reads n float32 components per element.
func readFloats(doc *gltf.Document, accessor *gltf.Accessor, n int) ([]float32, error) {
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unsupported component type %v", accessor.ComponentType)
	}
	data, start, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}
	if stride == 0 {
		stride = n * 4
	}
	count := accessor.Count
	if count > 0 && start+(count-1)*stride+n*4 > len(data) {
		return nil, errors.New("accessor out of buffer range")
	}

	out := make([]float32, count*n)
	for i := range count {
		offset := start + i*stride
		for j := range n {
			out[i*n+j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset+j*4:]))
		}
	}
	return out, nil
}

// readIndices reads index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}
	data, start, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", accessor.ComponentType)
	}
	if stride == 0 {
		stride = size
	}
	count := accessor.Count
	if count > 0 && start+(count-1)*stride+size > len(data) {
		return nil, errors.New("indices out of buffer range")
	}

	result := make([]int, count)
	for i := range count {
		b := data[start+i*stride:]
		switch size {
		case 1:
			result[i] = int(b[0])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(b))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(b))
		}
	}
	return result, nil
}
