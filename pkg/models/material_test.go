package models

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/studio/pkg/render"
)

// TestMaterialDefaults verifies the glTF default material.
func TestMaterialDefaults(t *testing.T) {
	m := DefaultMaterial()
	if m.BaseColor != (mgl32.Vec3{1, 1, 1}) || m.Metallic != 1 || m.Roughness != 1 {
		t.Errorf("DefaultMaterial() = %+v", m)
	}
	if m.BaseMap != nil {
		t.Error("default material should have no texture")
	}
}

// TestFaceMaterialIndex verifies per-face material assignment.
func TestFaceMaterialIndex(t *testing.T) {
	mesh := NewMesh("test")

	mesh.Materials = []Material{
		{Name: "red", BaseColor: mgl32.Vec3{1, 0, 0}},
		{Name: "green", BaseColor: mgl32.Vec3{0, 1, 0}},
		{Name: "blue", BaseColor: mgl32.Vec3{0, 0, 1}},
	}

	mesh.Faces = []Face{
		{V: [3]int{0, 1, 2}, Material: 0},    // red
		{V: [3]int{3, 4, 5}, Material: 1},    // green
		{V: [3]int{6, 7, 8}, Material: 2},    // blue
		{V: [3]int{9, 10, 11}, Material: -1}, // no material
	}

	if mesh.GetFaceMaterial(0) != 0 {
		t.Errorf("Face 0 should have material 0, got %d", mesh.GetFaceMaterial(0))
	}
	if mesh.GetFaceMaterial(3) != -1 {
		t.Errorf("Face 3 should have material -1, got %d", mesh.GetFaceMaterial(3))
	}

	if mat := mesh.GetMaterial(0); mat == nil || mat.Name != "red" {
		t.Errorf("GetMaterial(0) should return 'red' material")
	}
	if mesh.GetMaterial(-1) != nil {
		t.Errorf("GetMaterial(-1) should return nil")
	}
	if mesh.GetMaterial(99) != nil {
		t.Errorf("GetMaterial(99) should return nil for out-of-bounds")
	}

	if got := mesh.FaceSurface(1).BaseColor; got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("FaceSurface(1) color = %v, want green", got)
	}
	if got := mesh.FaceSurface(3); got != render.DefaultSurface() {
		t.Errorf("FaceSurface(3) = %+v, want the default surface", got)
	}
}

// TestMeshClonePreservesMaterials verifies Clone copies materials.
func TestMeshClonePreservesMaterials(t *testing.T) {
	mesh := NewMesh("original")
	mesh.Materials = []Material{
		{Name: "mat1", BaseColor: mgl32.Vec3{1, 0, 0}},
		{Name: "mat2", BaseColor: mgl32.Vec3{0, 1, 0}},
	}
	mesh.Faces = []Face{
		{V: [3]int{0, 1, 2}, Material: 0},
		{V: [3]int{3, 4, 5}, Material: 1},
	}

	clone := mesh.Clone()

	if clone.MaterialCount() != mesh.MaterialCount() {
		t.Errorf("Clone should have %d materials, got %d", mesh.MaterialCount(), clone.MaterialCount())
	}

	clone.Materials[0].Name = "modified"
	if mesh.Materials[0].Name == "modified" {
		t.Errorf("Clone should have independent material copy")
	}

	if clone.GetFaceMaterial(0) != 0 || clone.GetFaceMaterial(1) != 1 {
		t.Errorf("Clone should preserve face material indices")
	}
}

func TestMeshDisposeReleasesTextures(t *testing.T) {
	tex := render.NewCheckerTexture(4, 4, 2, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{})
	mesh := NewMesh("textured")
	mesh.Materials = []Material{{Name: "checker", BaseMap: tex}}
	mesh.Dispose()
	if !tex.Disposed() || mesh.Materials[0].BaseMap != nil {
		t.Error("Dispose did not release the base map")
	}
}
