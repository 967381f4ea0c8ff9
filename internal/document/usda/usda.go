// Package usda is an output document sink that renders exported meshes,
// materials, and geometry subsets as a USD ASCII (.usda) layer.
package usda

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Faultbox/meshport/pkg/export"
)

// Document sink errors.
var (
	ErrBadPath     = errors.New("usda: prim path must start with '/'")
	ErrForeignPrim = errors.New("usda: prim does not belong to this document")
	ErrNotAMesh    = errors.New("usda: subsets can only be created under a mesh prim")
	ErrDupSubset   = errors.New("usda: duplicate geometry subset name")
)

// materialsScope is the scope prim all materials are created under.
const materialsScope = "/_materials"

type sample struct {
	time  float64
	value any
}

// attribute collects the default value and time samples of one prim
// attribute, in write order.
type attribute struct {
	name    string
	def     any
	hasDef  bool
	samples []sample
}

// prim is a mesh, geometry subset, or material in the document.
type prim struct {
	doc     *Document
	path    string
	name    string
	attrs   []*attribute
	byName  map[string]*attribute
	binding string  // bound material path, empty if none
	subsets []*prim // mesh prims only
	indices []int32 // subset prims only
}

// Path returns the prim's full document path.
func (p *prim) Path() string { return p.path }

func (p *prim) attr(name string) *attribute {
	if a, ok := p.byName[name]; ok {
		return a
	}
	a := &attribute{name: name}
	p.attrs = append(p.attrs, a)
	p.byName[name] = a
	return a
}

// Document is an in-memory .usda layer under construction. It implements
// both the export sink and the material resolver: materials are created on
// first resolution under the /_materials scope.
type Document struct {
	meshes    []*prim
	byPath    map[string]*prim
	materials []*prim
	matByName map[string]*prim

	haveRange          bool
	startTime, endTime float64
}

// New creates an empty document.
func New() *Document {
	return &Document{
		byPath:    map[string]*prim{},
		matByName: map[string]*prim{},
	}
}

func newPrim(d *Document, path, name string) *prim {
	return &prim{doc: d, path: path, name: name, byName: map[string]*attribute{}}
}

// CreateMesh returns the mesh prim at path, creating it on first use.
func (d *Document) CreateMesh(path string) (export.Prim, error) {
	if len(path) == 0 || path[0] != '/' {
		return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	if p, ok := d.byPath[path]; ok {
		return p, nil
	}
	p := newPrim(d, path, primName(path))
	d.meshes = append(d.meshes, p)
	d.byPath[path] = p
	return p, nil
}

// SetAttribute records value for attr on p at time t.
func (d *Document) SetAttribute(ph export.Prim, attr string, value any, t export.TimeCode) error {
	p, err := d.own(ph)
	if err != nil {
		return err
	}

	a := p.attr(attr)
	if t.IsDefault() {
		a.def = value
		a.hasDef = true
		return nil
	}

	tc := float64(t)
	// Re-exporting a frame overwrites its sample in place.
	for i := range a.samples {
		if a.samples[i].time == tc {
			a.samples[i].value = value
			return nil
		}
	}
	a.samples = append(a.samples, sample{time: tc, value: value})
	d.growRange(tc)
	return nil
}

// BindMaterial binds mat to a mesh or subset prim.
func (d *Document) BindMaterial(mat, target export.Prim) error {
	m, err := d.own(mat)
	if err != nil {
		return err
	}
	p, err := d.own(target)
	if err != nil {
		return err
	}
	p.binding = m.path
	return nil
}

// CreateGeometrySubset creates a named face subset under meshPrim.
func (d *Document) CreateGeometrySubset(meshPrim export.Prim, name string, faces []int32) (export.Prim, error) {
	p, err := d.own(meshPrim)
	if err != nil {
		return nil, err
	}
	if d.byPath[p.path] == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAMesh, p.path)
	}

	name = sanitizeName(name)
	for _, sub := range p.subsets {
		if sub.name == name {
			return nil, fmt.Errorf("%w: %s on %s", ErrDupSubset, name, p.path)
		}
	}

	sub := newPrim(d, p.path+"/"+name, name)
	sub.indices = append([]int32(nil), faces...)
	p.subsets = append(p.subsets, sub)
	return sub, nil
}

// Resolve implements material resolution: the named material prim under
// /_materials, created on first use.
func (d *Document) Resolve(m *export.Material) (export.Prim, error) {
	name := sanitizeName(m.Name)
	if p, ok := d.matByName[name]; ok {
		return p, nil
	}
	p := newPrim(d, materialsScope+"/"+name, name)
	d.materials = append(d.materials, p)
	d.matByName[name] = p
	return p, nil
}

// own checks that a handle came from this document.
func (d *Document) own(ph export.Prim) (*prim, error) {
	p, ok := ph.(*prim)
	if !ok || p.doc != d {
		return nil, fmt.Errorf("%w: %s", ErrForeignPrim, ph.Path())
	}
	return p, nil
}

func (d *Document) growRange(t float64) {
	if math.IsNaN(t) {
		return
	}
	if !d.haveRange {
		d.startTime, d.endTime = t, t
		d.haveRange = true
		return
	}
	d.startTime = math.Min(d.startTime, t)
	d.endTime = math.Max(d.endTime, t)
}

// primName returns the last path component.
func primName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// sanitizeName maps an arbitrary source name onto a valid prim identifier:
// runs of invalid characters become '_', and a leading digit is prefixed.
func sanitizeName(name string) string {
	if name == "" {
		return "_"
	}
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			out = append(out, c)
		case c >= '0' && c <= '9':
			if i == 0 {
				out = append(out, '_')
			}
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// sortedSamples returns an attribute's samples in time order.
func (a *attribute) sortedSamples() []sample {
	out := append([]sample(nil), a.samples...)
	sort.Slice(out, func(i, j int) bool { return out[i].time < out[j].time })
	return out
}
