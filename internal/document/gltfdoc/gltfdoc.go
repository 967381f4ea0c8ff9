// Package gltfdoc is an output document sink that renders exported meshes
// as a glTF 2.0 asset via github.com/qmuntal/gltf.
//
// glTF has no time sampling, so the first sample written for each geometry
// attribute wins and later samples are ignored. Crease attributes are
// accepted and dropped: glTF has no subdivision-crease encoding.
package gltfdoc

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshport/pkg/export"
)

// Document sink errors.
var (
	ErrBadPath     = errors.New("gltf: prim path must start with '/'")
	ErrForeignPrim = errors.New("gltf: prim does not belong to this document")
	ErrNotAMesh    = errors.New("gltf: subsets can only be created under a mesh prim")
	ErrBadValue    = errors.New("gltf: unexpected attribute value type")
	ErrNonTriangle = errors.New("gltf: glTF output requires triangulated meshes")
)

type subset struct {
	name     string
	material string // bound material name, empty if none
	faces    []int32
}

type meshPrim struct {
	doc  *Document
	path string
	name string

	points      []mgl32.Vec3
	counts      []int32
	indices     []int32
	doubleSided bool
	binding     string // whole-mesh material name, empty if none
	subsets     []*subset
}

// Path returns the prim's document path.
func (m *meshPrim) Path() string { return m.path }

type matPrim struct {
	doc  *Document
	name string
}

// Path returns the material's document path.
func (m *matPrim) Path() string { return "/_materials/" + m.name }

// Document is a glTF asset under construction. It implements both the
// export sink and the material resolver.
type Document struct {
	meshes   []*meshPrim
	byPath   map[string]*meshPrim
	matOrder []string
	mats     map[string]*matPrim
}

// New creates an empty document.
func New() *Document {
	return &Document{
		byPath: map[string]*meshPrim{},
		mats:   map[string]*matPrim{},
	}
}

// CreateMesh returns the mesh prim at path, creating it on first use.
func (d *Document) CreateMesh(path string) (export.Prim, error) {
	if len(path) == 0 || path[0] != '/' {
		return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	if m, ok := d.byPath[path]; ok {
		return m, nil
	}
	m := &meshPrim{doc: d, path: path, name: primName(path)}
	d.meshes = append(d.meshes, m)
	d.byPath[path] = m
	return m, nil
}

// SetAttribute records value for attr on p. Only the first sample of each
// geometry attribute is kept.
func (d *Document) SetAttribute(p export.Prim, attr string, value any, t export.TimeCode) error {
	m, ok := p.(*meshPrim)
	if !ok || m.doc != d {
		return fmt.Errorf("%w: %s", ErrForeignPrim, p.Path())
	}

	switch attr {
	case export.AttrPoints:
		v, ok := value.([]mgl32.Vec3)
		if !ok {
			return fmt.Errorf("%w: %s is %T", ErrBadValue, attr, value)
		}
		if m.points == nil {
			m.points = v
		}
	case export.AttrFaceVertexCounts:
		v, ok := value.([]int32)
		if !ok {
			return fmt.Errorf("%w: %s is %T", ErrBadValue, attr, value)
		}
		if m.counts == nil {
			m.counts = v
		}
	case export.AttrFaceVertexIndices:
		v, ok := value.([]int32)
		if !ok {
			return fmt.Errorf("%w: %s is %T", ErrBadValue, attr, value)
		}
		if m.indices == nil {
			m.indices = v
		}
	case export.AttrDoubleSided:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s is %T", ErrBadValue, attr, value)
		}
		m.doubleSided = v
	case export.AttrCreaseLengths, export.AttrCreaseIndices, export.AttrCreaseSharpnesses:
		// No crease representation in glTF.
	default:
		return fmt.Errorf("%w: unknown attribute %s", ErrBadValue, attr)
	}
	return nil
}

// BindMaterial binds mat to a mesh or subset prim.
func (d *Document) BindMaterial(mat, target export.Prim) error {
	mp, ok := mat.(*matPrim)
	if !ok || mp.doc != d {
		return fmt.Errorf("%w: %s", ErrForeignPrim, mat.Path())
	}
	switch t := target.(type) {
	case *meshPrim:
		if t.doc != d {
			return fmt.Errorf("%w: %s", ErrForeignPrim, target.Path())
		}
		t.binding = mp.name
	case *subsetPrim:
		if t.doc != d {
			return fmt.Errorf("%w: %s", ErrForeignPrim, target.Path())
		}
		t.sub.material = mp.name
	default:
		return fmt.Errorf("%w: %s", ErrForeignPrim, target.Path())
	}
	return nil
}

type subsetPrim struct {
	doc  *Document
	path string
	sub  *subset
}

// Path returns the subset's document path.
func (s *subsetPrim) Path() string { return s.path }

// CreateGeometrySubset creates a named face subset under meshPrim.
func (d *Document) CreateGeometrySubset(p export.Prim, name string, faces []int32) (export.Prim, error) {
	m, ok := p.(*meshPrim)
	if !ok || m.doc != d {
		return nil, fmt.Errorf("%w: %s", ErrNotAMesh, p.Path())
	}
	sub := &subset{name: name, faces: append([]int32(nil), faces...)}
	m.subsets = append(m.subsets, sub)
	return &subsetPrim{doc: d, path: m.path + "/" + name, sub: sub}, nil
}

// Resolve implements material resolution: one glTF material per name,
// created on first use.
func (d *Document) Resolve(m *export.Material) (export.Prim, error) {
	if p, ok := d.mats[m.Name]; ok {
		return p, nil
	}
	p := &matPrim{doc: d, name: m.Name}
	d.mats[m.Name] = p
	d.matOrder = append(d.matOrder, m.Name)
	return p, nil
}

func primName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
