package gltfdoc

import (
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Build assembles the recorded meshes and materials into a glTF document.
func (d *Document) Build() (*gltf.Document, error) {
	doc := gltf.NewDocument()

	// Materials first, in resolution order. glTF stores double-sidedness
	// per material, not per mesh, so a mesh's flag lands on the material
	// bound to it.
	matIndex := make(map[string]int, len(d.matOrder))
	for _, name := range d.matOrder {
		matIndex[name] = len(doc.Materials)
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name:                 name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
		})
	}

	for _, m := range d.meshes {
		for _, c := range m.counts {
			if c != 3 {
				return nil, fmt.Errorf("%w: %s has a %d-vertex face", ErrNonTriangle, m.path, c)
			}
		}
		if m.binding != "" && m.doubleSided {
			doc.Materials[matIndex[m.binding]].DoubleSided = true
		}

		pts := make([][3]float32, len(m.points))
		for i, p := range m.points {
			pts[i] = p
		}
		pos := modeler.WritePosition(doc, pts)

		prims, err := d.buildPrimitives(doc, m, pos, matIndex)
		if err != nil {
			return nil, err
		}

		meshIdx := len(doc.Meshes)
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: m.name, Primitives: prims})

		nodeIdx := len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: m.name, Mesh: gltf.Index(meshIdx)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, nodeIdx)
	}

	return doc, nil
}

// buildPrimitives emits one primitive per geometry subset plus a remainder
// primitive for faces no subset claims; a mesh without subsets becomes a
// single primitive carrying the whole-mesh binding.
func (d *Document) buildPrimitives(doc *gltf.Document, m *meshPrim, pos int, matIndex map[string]int) ([]*gltf.Primitive, error) {
	newPrim := func(indices []uint32, material string) *gltf.Primitive {
		p := &gltf.Primitive{
			Attributes: map[string]int{gltf.POSITION: pos},
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
		}
		if material != "" {
			idx := matIndex[material]
			p.Material = gltf.Index(idx)
		}
		return p
	}

	if len(m.subsets) == 0 {
		all := make([]uint32, len(m.indices))
		for i, v := range m.indices {
			all[i] = uint32(v)
		}
		return []*gltf.Primitive{newPrim(all, m.binding)}, nil
	}

	covered := make(map[int32]bool)
	var prims []*gltf.Primitive
	for _, sub := range m.subsets {
		var indices []uint32
		for _, face := range sub.faces {
			if int(face)*3+3 > len(m.indices) {
				return nil, fmt.Errorf("%w: subset %s references face %d out of range on %s",
					ErrBadValue, sub.name, face, m.path)
			}
			for k := int32(0); k < 3; k++ {
				indices = append(indices, uint32(m.indices[face*3+k]))
			}
			covered[face] = true
		}
		prims = append(prims, newPrim(indices, sub.material))
	}

	var rest []uint32
	for face := int32(0); face < int32(len(m.counts)); face++ {
		if covered[face] {
			continue
		}
		for k := int32(0); k < 3; k++ {
			rest = append(rest, uint32(m.indices[face*3+k]))
		}
	}
	if len(rest) > 0 {
		prims = append(prims, newPrim(rest, m.binding))
	}

	return prims, nil
}

// Save builds the document and writes it to path; a .glb extension selects
// the binary container, anything else the JSON form.
func (d *Document) Save(path string) error {
	doc, err := d.Build()
	if err != nil {
		return err
	}
	if strings.HasSuffix(strings.ToLower(path), ".glb") {
		return gltf.SaveBinary(doc, path)
	}
	return gltf.Save(doc, path)
}
