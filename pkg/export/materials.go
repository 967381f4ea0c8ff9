package export

import (
	"fmt"
	"path"
	"sort"
)

// assignMaterials binds materials to the freshly created mesh prim and, when
// at least two face groups discriminate between materials, creates one named
// geometry subset per group. Runs once per object, on its first sample.
func (s *Session) assignMaterials(obj *Object, meshPrim Prim, faceGroups map[int][]int32) error {
	if len(obj.Slots) == 0 {
		return nil
	}

	// Consumers do not reliably honor per-subset material or double-sided
	// overrides, so the first non-empty slot is always bound to the whole
	// mesh and decides the double-sided flag.
	bound := false
	for _, slot := range obj.Slots {
		if slot == nil {
			continue
		}

		mat, err := s.resolve(slot)
		if err != nil {
			return err
		}
		if err := s.doc.BindMaterial(mat, meshPrim); err != nil {
			return fmt.Errorf("binding material %s to %s: %w", slot.Name, obj.Name, err)
		}
		if err := s.doc.SetAttribute(meshPrim, AttrDoubleSided, !slot.CullBackface, TimeDefault); err != nil {
			return fmt.Errorf("writing double-sided flag for %s: %w", obj.Name, err)
		}

		bound = true
		break
	}

	if !bound {
		// The source application defaults to double-sided, the output
		// format to single-sided. Preserve the source's look.
		if err := s.doc.SetAttribute(meshPrim, AttrDoubleSided, true, TimeDefault); err != nil {
			return fmt.Errorf("writing double-sided flag for %s: %w", obj.Name, err)
		}
	}

	if !bound || len(faceGroups) < 2 {
		// Either every slot was empty or a single material covers the
		// whole mesh. Subsets only earn their keep when they discriminate
		// between at least two materials.
		return nil
	}

	slots := make([]int, 0, len(faceGroups))
	for slot := range faceGroups {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	for _, slot := range slots {
		if slot < 0 || slot >= len(obj.Slots) || obj.Slots[slot] == nil {
			// An empty slot referenced by polygons: no subset. Those
			// polygons stay covered by the whole-mesh binding.
			continue
		}

		mat, err := s.resolve(obj.Slots[slot])
		if err != nil {
			return err
		}

		subset, err := s.doc.CreateGeometrySubset(meshPrim, path.Base(mat.Path()), faceGroups[slot])
		if err != nil {
			return fmt.Errorf("creating subset for material %s on %s: %w", obj.Slots[slot].Name, obj.Name, err)
		}
		if err := s.doc.BindMaterial(mat, subset); err != nil {
			return fmt.Errorf("binding material %s to subset on %s: %w", obj.Slots[slot].Name, obj.Name, err)
		}
	}

	return nil
}
