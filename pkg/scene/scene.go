// Package scene loads exportable scene descriptions from YAML files and
// serves their meshes to the export session.
package scene

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshport/pkg/export"
)

// Scene validation errors.
var (
	ErrNoName        = errors.New("scene: object has no name")
	ErrDuplicateName = errors.New("scene: duplicate object name")
	ErrVertexIndex   = errors.New("scene: vertex index out of range")
	ErrMaterialSlot  = errors.New("scene: material slot out of range")
	ErrOffsetCount   = errors.New("scene: frame offset count does not match point count")
	ErrTooManyVerts  = errors.New("scene: vertex count exceeds sanity limit")
)

// maxVertices guards against corrupt scene files.
const maxVertices = 10_000_000

// MaterialSpec is one material slot. A slot with an empty name is an empty
// slot: polygons may reference it, but no material is bound for it.
type MaterialSpec struct {
	Name         string `yaml:"name"`
	CullBackface bool   `yaml:"cull_backface"`
}

// PolygonSpec is one face, given as vertex indices in winding order.
type PolygonSpec struct {
	Vertices []int `yaml:"vertices"`
	Material int   `yaml:"material"` // material slot index
}

// EdgeSpec is one edge with a subdivision crease weight (0-255).
type EdgeSpec struct {
	V1     int   `yaml:"v1"`
	V2     int   `yaml:"v2"`
	Crease uint8 `yaml:"crease"`
}

// MeshSpec is an object's geometry.
type MeshSpec struct {
	Points   [][3]float32  `yaml:"points"`
	Polygons []PolygonSpec `yaml:"polygons"`
	Edges    []EdgeSpec    `yaml:"edges"`
}

// FrameSpec holds per-frame vertex offsets, added to the base points when
// the object is acquired at the frame's time.
type FrameSpec struct {
	Time    float64      `yaml:"time"`
	Offsets [][3]float32 `yaml:"offsets"`
}

// Object is one exportable object in the scene.
type Object struct {
	Name      string         `yaml:"name"`
	Path      string         `yaml:"path"` // document path; defaults to /<name>
	Materials []MaterialSpec `yaml:"materials"`
	Mesh      MeshSpec       `yaml:"mesh"`
	Frames    []FrameSpec    `yaml:"frames"`
}

// Scene is a parsed scene description.
type Scene struct {
	Objects []Object `yaml:"objects"`
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates scene YAML.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks index ranges and naming across the scene.
func (s *Scene) Validate() error {
	seen := make(map[string]bool, len(s.Objects))
	for i := range s.Objects {
		o := &s.Objects[i]
		if o.Name == "" {
			return fmt.Errorf("%w: object %d", ErrNoName, i)
		}
		if seen[o.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, o.Name)
		}
		seen[o.Name] = true

		if err := o.validate(); err != nil {
			return fmt.Errorf("object %s: %w", o.Name, err)
		}
	}
	return nil
}

func (o *Object) validate() error {
	nverts := len(o.Mesh.Points)
	if nverts > maxVertices {
		return fmt.Errorf("%w: %d", ErrTooManyVerts, nverts)
	}

	for pi, poly := range o.Mesh.Polygons {
		for _, v := range poly.Vertices {
			if v < 0 || v >= nverts {
				return fmt.Errorf("%w: polygon %d vertex %d", ErrVertexIndex, pi, v)
			}
		}
		// Slot 0 is always addressable, even on objects with no material
		// slots at all.
		if poly.Material < 0 || (poly.Material > 0 && poly.Material >= len(o.Materials)) {
			return fmt.Errorf("%w: polygon %d slot %d", ErrMaterialSlot, pi, poly.Material)
		}
	}

	for ei, e := range o.Mesh.Edges {
		if e.V1 < 0 || e.V1 >= nverts || e.V2 < 0 || e.V2 >= nverts {
			return fmt.Errorf("%w: edge %d", ErrVertexIndex, ei)
		}
	}

	for fi, f := range o.Frames {
		if len(f.Offsets) != 0 && len(f.Offsets) != nverts {
			return fmt.Errorf("%w: frame %d has %d offsets for %d points",
				ErrOffsetCount, fi, len(f.Offsets), nverts)
		}
	}
	return nil
}

// DocumentPath returns the document path the object exports to.
func (o *Object) DocumentPath() string {
	if o.Path != "" {
		return o.Path
	}
	return "/" + o.Name
}

// ExportObjects builds the export-facing object list, in scene order.
func (s *Scene) ExportObjects() []*export.Object {
	out := make([]*export.Object, 0, len(s.Objects))
	for i := range s.Objects {
		o := &s.Objects[i]
		eo := &export.Object{Name: o.Name, Path: o.DocumentPath()}
		for _, m := range o.Materials {
			if m.Name == "" {
				eo.Slots = append(eo.Slots, nil)
				continue
			}
			eo.Slots = append(eo.Slots, &export.Material{
				Name:         m.Name,
				CullBackface: m.CullBackface,
			})
		}
		out = append(out, eo)
	}
	return out
}
