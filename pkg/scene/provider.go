package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshport/pkg/export"
	"github.com/Faultbox/meshport/pkg/mesh"
)

// StaticProvider serves meshes straight from a loaded scene. Meshes are
// built per acquisition but are not export-owned, so Release is a no-op.
type StaticProvider struct {
	// IgnoreCreases drops edge crease weights from served meshes.
	IgnoreCreases bool

	objects map[string]*Object
}

// NewStaticProvider creates a provider over the scene's objects.
func NewStaticProvider(s *Scene) *StaticProvider {
	p := &StaticProvider{objects: make(map[string]*Object, len(s.Objects))}
	for i := range s.Objects {
		p.objects[s.Objects[i].Name] = &s.Objects[i]
	}
	return p
}

// Acquire returns the object's mesh at time t, or nil when the object is
// unknown or carries no geometry.
func (p *StaticProvider) Acquire(obj *export.Object, t export.TimeCode) (*mesh.Mesh, bool, error) {
	spec, ok := p.objects[obj.Name]
	if !ok || len(spec.Mesh.Points) == 0 {
		return nil, false, nil
	}
	return p.buildMesh(spec, float64(t)), false, nil
}

// Release is a no-op: static meshes are not export-owned.
func (p *StaticProvider) Release(*mesh.Mesh) {}

func (p *StaticProvider) buildMesh(spec *Object, t float64) *mesh.Mesh {
	m := &mesh.Mesh{SlotCount: len(spec.Materials)}

	m.Points = make([]mgl32.Vec3, len(spec.Mesh.Points))
	for i, pt := range spec.Mesh.Points {
		m.Points[i] = mgl32.Vec3(pt)
	}
	if offsets := spec.offsetsAt(t); offsets != nil {
		for i := range m.Points {
			m.Points[i] = m.Points[i].Add(mgl32.Vec3(offsets[i]))
		}
	}

	for _, poly := range spec.Mesh.Polygons {
		m.Polygons = append(m.Polygons, mesh.Polygon{
			LoopStart: len(m.Loops),
			LoopTotal: len(poly.Vertices),
			Slot:      poly.Material,
		})
		for _, v := range poly.Vertices {
			m.Loops = append(m.Loops, mesh.Loop{Vertex: v})
		}
	}

	for _, e := range spec.Mesh.Edges {
		crease := e.Crease
		if p.IgnoreCreases {
			crease = 0
		}
		m.Edges = append(m.Edges, mesh.Edge{V1: e.V1, V2: e.V2, Crease: crease})
	}

	return m
}

// offsetsAt returns the vertex offsets of the frame recorded at time t, or
// nil when no frame matches.
func (o *Object) offsetsAt(t float64) [][3]float32 {
	for i := range o.Frames {
		if o.Frames[i].Time == t && len(o.Frames[i].Offsets) > 0 {
			return o.Frames[i].Offsets
		}
	}
	return nil
}

// TriangulateProvider wraps another provider and fan-triangulates every
// polygon of the meshes it serves. The triangulated mesh is a temporary,
// export-owned copy: callers must release it after use.
type TriangulateProvider struct {
	Source export.MeshProvider
}

// Acquire fan-triangulates the source mesh into an owned temporary.
func (p *TriangulateProvider) Acquire(obj *export.Object, t export.TimeCode) (*mesh.Mesh, bool, error) {
	m, owned, err := p.Source.Acquire(obj, t)
	if err != nil || m == nil {
		return nil, false, err
	}
	tri := triangulate(m)
	if owned {
		p.Source.Release(m)
	}
	return tri, true, nil
}

// Release invalidates a temporary mesh returned by Acquire.
func (p *TriangulateProvider) Release(m *mesh.Mesh) {
	m.Points = nil
	m.Polygons = nil
	m.Loops = nil
	m.Edges = nil
	m.SlotCount = 0
}

// triangulate builds a copy of m with every n-gon split into a triangle
// fan rooted at its first loop vertex. Degenerate faces with fewer than
// three vertices are dropped. Edges (and their creases) carry over; fan
// diagonals introduce no edges.
func triangulate(m *mesh.Mesh) *mesh.Mesh {
	out := &mesh.Mesh{SlotCount: m.SlotCount}

	out.Points = make([]mgl32.Vec3, len(m.Points))
	copy(out.Points, m.Points)
	out.Edges = make([]mesh.Edge, len(m.Edges))
	copy(out.Edges, m.Edges)

	for _, poly := range m.Polygons {
		if poly.LoopTotal < 3 {
			continue
		}
		root := m.Loops[poly.LoopStart].Vertex
		for j := 1; j < poly.LoopTotal-1; j++ {
			out.Polygons = append(out.Polygons, mesh.Polygon{
				LoopStart: len(out.Loops),
				LoopTotal: 3,
				Slot:      poly.Slot,
			})
			out.Loops = append(out.Loops,
				mesh.Loop{Vertex: root},
				mesh.Loop{Vertex: m.Loops[poly.LoopStart+j].Vertex},
				mesh.Loop{Vertex: m.Loops[poly.LoopStart+j+1].Vertex},
			)
		}
	}

	return out
}
