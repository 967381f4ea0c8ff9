// Package export implements the per-object mesh export pipeline: snapshot
// acquisition, geometry attribute writes at a time code, and first-frame
// material and geometry-subset assignment.
package export

import (
	"math"

	"github.com/Faultbox/meshport/pkg/mesh"
)

// TimeCode identifies one time sample in the output document.
type TimeCode float64

// TimeDefault marks a value written outside any time sample (the document
// default). Double-sided flags and subsets are written there.
var TimeDefault = TimeCode(math.NaN())

// IsDefault reports whether t is the default (untimed) time code.
func (t TimeCode) IsDefault() bool {
	return math.IsNaN(float64(t))
}

// Attribute names understood by document sinks.
const (
	AttrPoints            = "points"
	AttrFaceVertexCounts  = "faceVertexCounts"
	AttrFaceVertexIndices = "faceVertexIndices"
	AttrCreaseLengths     = "creaseLengths"
	AttrCreaseIndices     = "creaseIndices"
	AttrCreaseSharpnesses = "creaseSharpnesses"
	AttrDoubleSided       = "doubleSided"
)

// Material describes one material slot's source-side settings.
type Material struct {
	Name string
	// CullBackface is the material's backface-culling flag. The exported
	// mesh is double-sided iff culling is not requested.
	CullBackface bool
}

// Object identifies one exportable scene object.
type Object struct {
	Name string
	Path string // document path the mesh prim is created at
	// Slots are the object's material slots in slot order. A nil entry is
	// an empty slot.
	Slots []*Material
}

// MeshProvider acquires geometry snapshots for objects. Implementations
// vary by object kind; the session depends only on this interface.
type MeshProvider interface {
	// Acquire returns the exportable mesh for obj at time t, or nil when
	// the object has nothing to export at that time. owned reports
	// whether the mesh is a temporary copy that must be passed to Release
	// after use.
	Acquire(obj *Object, t TimeCode) (m *mesh.Mesh, owned bool, err error)

	// Release invalidates a temporary mesh returned by Acquire. Callers
	// release each owned mesh exactly once and never touch it afterward.
	Release(m *mesh.Mesh)
}

// Prim is an opaque handle to a primitive in the output document.
type Prim interface {
	// Path returns the primitive's full document path.
	Path() string
}

// MaterialResolver creates or returns the document representation of a
// material. Resolution must be deterministic for a given material name;
// the session memoizes it per name.
type MaterialResolver interface {
	Resolve(m *Material) (Prim, error)
}

// Document is the output document sink the exporter writes into.
type Document interface {
	// CreateMesh returns the mesh prim at path, creating it on first use.
	CreateMesh(path string) (Prim, error)

	// SetAttribute records value for attr on p at time t. TimeDefault
	// writes the untimed default value.
	SetAttribute(p Prim, attr string, value any, t TimeCode) error

	// BindMaterial binds mat to a mesh or geometry-subset prim.
	BindMaterial(mat, target Prim) error

	// CreateGeometrySubset creates a named subset of meshPrim restricted
	// to the given polygon indices.
	CreateGeometrySubset(meshPrim Prim, name string, faces []int32) (Prim, error)
}
