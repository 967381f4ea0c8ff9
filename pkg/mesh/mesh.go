// Package mesh defines the polygonal mesh snapshot consumed by the
// exporter and the extraction pass that flattens it into write-ready
// attribute buffers.
package mesh

import "github.com/go-gl/mathgl/mgl32"

// SharpnessInfinite is the sharpness value written for a perfectly sharp
// crease (crease weight 255).
const SharpnessInfinite float32 = 1e10

// Polygon is one face of a mesh: a run of LoopTotal consecutive entries in
// the mesh's loop array, starting at LoopStart.
type Polygon struct {
	LoopStart int // index of the first loop
	LoopTotal int // number of loops (boundary vertices)
	Slot      int // 0-based material slot index
}

// Loop references one vertex on a polygon boundary, in winding order.
type Loop struct {
	Vertex int // index into the mesh's point array
}

// Edge connects two vertices. Crease is the subdivision crease weight in
// 0-255, where 0 means no crease and 255 means perfectly sharp.
type Edge struct {
	V1, V2 int
	Crease uint8
}

// Mesh is a read-only geometry snapshot of one object at one export time.
// The exporter never mutates it; ownership of temporary snapshots is
// tracked by the caller.
type Mesh struct {
	Points    []mgl32.Vec3
	Polygons  []Polygon
	Loops     []Loop
	Edges     []Edge
	SlotCount int // material slot count on the owning object
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Points)
}

// PolygonCount returns the number of faces.
func (m *Mesh) PolygonCount() int {
	return len(m.Polygons)
}

// CreasedEdgeCount returns the number of edges with a non-zero crease.
func (m *Mesh) CreasedEdgeCount() int {
	count := 0
	for _, e := range m.Edges {
		if e.Crease != 0 {
			count++
		}
	}
	return count
}

// Data holds the flat, deduplication-free attribute buffers extracted from
// a Mesh, laid out exactly as the output document expects them.
type Data struct {
	// Points are vertex positions in source order. Their indices are the
	// canonical vertex-index space for every other buffer.
	Points []mgl32.Vec3

	// FaceVertexCounts has one entry per polygon: its loop count.
	FaceVertexCounts []int32

	// FaceIndices concatenates each polygon's loop vertex references, in
	// polygon then loop order. sum(FaceVertexCounts) == len(FaceIndices).
	FaceIndices []int32

	// FaceGroups maps a material slot to the polygon indices assigned to
	// it. Only populated when the source mesh has more than one slot.
	FaceGroups map[int][]int32

	// Crease buffers are parallel: CreaseLengths[i] gives the number of
	// vertices in crease run i (always 2, one run per creased edge),
	// CreaseSharpness[i] its sharpness, and CreaseIndices holds the runs'
	// vertex indices back to back.
	CreaseLengths   []int32
	CreaseIndices   []int32
	CreaseSharpness []float32
}

// HasCreases reports whether any creased edges were extracted.
func (d *Data) HasCreases() bool {
	return len(d.CreaseLengths) > 0
}
