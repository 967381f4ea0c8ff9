package export

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshport/internal/logger"
	"github.com/Faultbox/meshport/pkg/mesh"
)

// Session carries the state of one export run: the output document, the
// mesh provider, resolved materials, and which objects already have their
// first time sample written. One session per output document; not safe for
// concurrent use.
type Session struct {
	doc      Document
	provider MeshProvider
	resolver MaterialResolver

	written   map[string]bool // object path -> first sample written
	materials map[string]Prim // material name -> resolved prim
}

// NewSession creates an export session writing into doc.
func NewSession(doc Document, provider MeshProvider, resolver MaterialResolver) *Session {
	return &Session{
		doc:       doc,
		provider:  provider,
		resolver:  resolver,
		written:   map[string]bool{},
		materials: map[string]Prim{},
	}
}

// ExportObject writes obj's geometry into the document at time t. Objects
// with no exportable mesh are skipped without error. On the object's first
// written sample, materials and geometry subsets are also assigned; later
// samples only update geometry attributes.
func (s *Session) ExportObject(obj *Object, t TimeCode) error {
	m, owned, err := s.provider.Acquire(obj, t)
	if err != nil {
		return fmt.Errorf("acquiring mesh for %s: %w", obj.Name, err)
	}
	if m == nil {
		logger.Warn("skipping object with no exportable mesh",
			zap.String("object", obj.Name),
			zap.Float64("time", float64(t)))
		return nil
	}

	// A temporary snapshot is owned by this call alone. The deferred
	// release runs on every exit path, so a failed write cannot leak it.
	if owned {
		defer s.provider.Release(m)
	}

	return s.writeMesh(obj, m, t)
}

func (s *Session) writeMesh(obj *Object, m *mesh.Mesh, t TimeCode) error {
	prim, err := s.doc.CreateMesh(obj.Path)
	if err != nil {
		return fmt.Errorf("creating mesh prim %s: %w", obj.Path, err)
	}

	data := mesh.ExtractGeometry(m)

	if err := s.doc.SetAttribute(prim, AttrPoints, data.Points, t); err != nil {
		return fmt.Errorf("writing points for %s: %w", obj.Name, err)
	}
	if err := s.doc.SetAttribute(prim, AttrFaceVertexCounts, data.FaceVertexCounts, t); err != nil {
		return fmt.Errorf("writing face vertex counts for %s: %w", obj.Name, err)
	}
	if err := s.doc.SetAttribute(prim, AttrFaceVertexIndices, data.FaceIndices, t); err != nil {
		return fmt.Errorf("writing face vertex indices for %s: %w", obj.Name, err)
	}

	if data.HasCreases() {
		if err := s.doc.SetAttribute(prim, AttrCreaseLengths, data.CreaseLengths, t); err != nil {
			return fmt.Errorf("writing crease lengths for %s: %w", obj.Name, err)
		}
		if err := s.doc.SetAttribute(prim, AttrCreaseIndices, data.CreaseIndices, t); err != nil {
			return fmt.Errorf("writing crease indices for %s: %w", obj.Name, err)
		}
		if err := s.doc.SetAttribute(prim, AttrCreaseSharpnesses, data.CreaseSharpness, t); err != nil {
			return fmt.Errorf("writing crease sharpnesses for %s: %w", obj.Name, err)
		}
	}

	// Material and subset groupings are frozen after the object's first
	// sample; later frames only overwrite geometry.
	if s.written[obj.Path] {
		return nil
	}

	if err := s.assignMaterials(obj, prim, data.FaceGroups); err != nil {
		return err
	}
	s.written[obj.Path] = true

	logger.Debug("exported first sample",
		zap.String("object", obj.Name),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("polygons", m.PolygonCount()))
	return nil
}

// resolve memoizes material resolution per material name for the lifetime
// of the session.
func (s *Session) resolve(m *Material) (Prim, error) {
	if p, ok := s.materials[m.Name]; ok {
		return p, nil
	}
	p, err := s.resolver.Resolve(m)
	if err != nil {
		return nil, fmt.Errorf("resolving material %s: %w", m.Name, err)
	}
	s.materials[m.Name] = p
	return p, nil
}
