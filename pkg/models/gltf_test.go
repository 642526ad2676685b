package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// triangleGLTF is one triangle with positions, UVs, uint16 indices and a
// red half-metallic material. The buffer holds 9 position floats, 3 indices
// padded to 8 bytes, then 6 UV floats.
const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "buffers": [{"byteLength": 68, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAAAAABAAIAAAAAAAAAAAAAAAAAgD8AAAAAAAAAAAAAgD8="}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6},
    {"buffer": 0, "byteOffset": 44, "byteLength": 24}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"},
    {"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC2"}
  ],
  "materials": [{
    "name": "red",
    "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1], "metallicFactor": 0.5, "roughnessFactor": 0.25}
  }],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0, "TEXCOORD_0": 2}, "indices": 1, "material": 0}]}],
  "nodes": [{"mesh": 0}],
  "scenes": [{"nodes": [0]}],
  "scene": 0
}`

func writeGLTF(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.gltf")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestGLTFLoaderCreation(t *testing.T) {
	loader := NewGLTFLoader()
	if !loader.CalculateNormals {
		t.Error("CalculateNormals should default to true")
	}
	if !loader.SmoothNormals {
		t.Error("SmoothNormals should default to true")
	}
	if !loader.LoadTextures {
		t.Error("LoadTextures should default to true")
	}
}

func TestLoadTriangle(t *testing.T) {
	mesh, err := LoadGLB(writeGLTF(t, triangleGLTF))
	if err != nil {
		t.Fatalf("LoadGLB: %v", err)
	}
	if mesh.VertexCount() != 3 || mesh.TriangleCount() != 1 {
		t.Fatalf("got %d vertices / %d triangles", mesh.VertexCount(), mesh.TriangleCount())
	}

	// Winding is reversed for the rasterizer.
	if got := mesh.GetFace(0); got != [3]int{0, 2, 1} {
		t.Errorf("face = %v, want [0 2 1]", got)
	}

	// No normals in the file: computed ones face the glTF front side, +Z.
	for i := range 3 {
		_, n, _ := mesh.GetVertex(i)
		if !n.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d normal = %v, want +Z", i, n)
		}
	}

	// V is flipped to a bottom-left origin.
	if _, _, uv := mesh.GetVertex(2); !uv.ApproxEqual(mgl64.Vec2{0, 0}) {
		t.Errorf("vertex 2 uv = %v, want {0 0}", uv)
	}
	if _, _, uv := mesh.GetVertex(0); !uv.ApproxEqual(mgl64.Vec2{0, 1}) {
		t.Errorf("vertex 0 uv = %v, want {0 1}", uv)
	}

	lo, hi := mesh.GetBounds()
	if !lo.ApproxEqual(mgl64.Vec3{}) || !hi.ApproxEqual(mgl64.Vec3{1, 1, 0}) {
		t.Errorf("bounds = %v..%v", lo, hi)
	}

	if mesh.MaterialCount() != 1 || mesh.GetFaceMaterial(0) != 0 {
		t.Fatalf("materials = %d, face material = %d", mesh.MaterialCount(), mesh.GetFaceMaterial(0))
	}
	surf := mesh.FaceSurface(0)
	if surf.BaseColor != (mgl32.Vec3{1, 0, 0}) || surf.Metallic != 0.5 || surf.Roughness != 0.25 {
		t.Errorf("surface = %+v", surf)
	}
}

func TestLoadRejectsBadIndices(t *testing.T) {
	// Read indices from the middle of the UV floats, where the second
	// uint16 is 0x3f80, far past the three vertices.
	body := strings.Replace(triangleGLTF, `{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}`,
		`{"bufferView": 3, "componentType": 5123, "count": 3, "type": "SCALAR"}`, 1)
	body = strings.Replace(body, `{"buffer": 0, "byteOffset": 44, "byteLength": 24}`,
		`{"buffer": 0, "byteOffset": 44, "byteLength": 24},
    {"buffer": 0, "byteOffset": 52, "byteLength": 6}`, 1)
	_, err := LoadGLB(writeGLTF(t, body))
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("err = %v, want an out of range index error", err)
	}
}
