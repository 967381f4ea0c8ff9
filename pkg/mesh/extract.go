package mesh

import "github.com/go-gl/mathgl/mgl32"

// ExtractGeometry flattens a mesh snapshot into export buffers. It is a
// pure function of its input: no error paths, no side effects. A mesh with
// no polygons or no creased edges simply yields empty buffers.
func ExtractGeometry(m *Mesh) *Data {
	d := &Data{FaceGroups: make(map[int][]int32)}
	extractVertices(m, d)
	extractLoopsPolys(m, d)
	extractCreases(m, d)
	return d
}

func extractVertices(m *Mesh, d *Data) {
	d.Points = make([]mgl32.Vec3, len(m.Points))
	copy(d.Points, m.Points)
}

func extractLoopsPolys(m *Mesh, d *Data) {
	// Face groups are only needed for material assignment, which only
	// splits the mesh when more than one slot exists.
	groupFaces := m.SlotCount > 1

	d.FaceVertexCounts = make([]int32, 0, len(m.Polygons))
	d.FaceIndices = make([]int32, 0, len(m.Loops))

	for i, poly := range m.Polygons {
		d.FaceVertexCounts = append(d.FaceVertexCounts, int32(poly.LoopTotal))
		for j := 0; j < poly.LoopTotal; j++ {
			d.FaceIndices = append(d.FaceIndices, int32(m.Loops[poly.LoopStart+j].Vertex))
		}

		if groupFaces {
			d.FaceGroups[poly.Slot] = append(d.FaceGroups[poly.Slot], int32(i))
		}
	}
}

func extractCreases(m *Mesh, d *Data) {
	const factor = 1.0 / 255.0

	for _, edge := range m.Edges {
		if edge.Crease == 0 {
			continue
		}

		var sharpness float32
		if edge.Crease == 255 {
			sharpness = SharpnessInfinite
		} else {
			sharpness = float32(edge.Crease) * factor
		}

		// Each creased edge is its own 2-vertex run. Adjacent co-sharp
		// edges are never merged into longer runs; that would need
		// edge-adjacency analysis this pass deliberately avoids.
		d.CreaseIndices = append(d.CreaseIndices, int32(edge.V1), int32(edge.V2))
		d.CreaseLengths = append(d.CreaseLengths, 2)
		d.CreaseSharpness = append(d.CreaseSharpness, sharpness)
	}
}
