package export

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshport/pkg/mesh"
)

type fakePrim struct{ path string }

func (p *fakePrim) Path() string { return p.path }

type attrWrite struct {
	prim  string
	attr  string
	value any
	time  TimeCode
}

type bindCall struct{ mat, target string }

type subsetCall struct {
	mesh  string
	name  string
	faces []int32
}

var errInjected = errors.New("injected sink failure")

// fakeDoc records sink calls; setting failAttr makes SetAttribute fail
// when that attribute is written.
type fakeDoc struct {
	attrs    []attrWrite
	binds    []bindCall
	subsets  []subsetCall
	created  []string
	failAttr string
}

func (d *fakeDoc) CreateMesh(path string) (Prim, error) {
	d.created = append(d.created, path)
	return &fakePrim{path: path}, nil
}

func (d *fakeDoc) SetAttribute(p Prim, attr string, value any, t TimeCode) error {
	if attr == d.failAttr {
		return errInjected
	}
	d.attrs = append(d.attrs, attrWrite{prim: p.Path(), attr: attr, value: value, time: t})
	return nil
}

func (d *fakeDoc) BindMaterial(mat, target Prim) error {
	d.binds = append(d.binds, bindCall{mat: mat.Path(), target: target.Path()})
	return nil
}

func (d *fakeDoc) CreateGeometrySubset(meshPrim Prim, name string, faces []int32) (Prim, error) {
	d.subsets = append(d.subsets, subsetCall{mesh: meshPrim.Path(), name: name, faces: faces})
	return &fakePrim{path: meshPrim.Path() + "/" + name}, nil
}

func (d *fakeDoc) writesOf(attr string) []attrWrite {
	var out []attrWrite
	for _, w := range d.attrs {
		if w.attr == attr {
			out = append(out, w)
		}
	}
	return out
}

// fakeProvider serves one configured mesh and counts releases.
type fakeProvider struct {
	mesh     *mesh.Mesh
	owned    bool
	acquires int
	releases int
}

func (p *fakeProvider) Acquire(obj *Object, t TimeCode) (*mesh.Mesh, bool, error) {
	p.acquires++
	return p.mesh, p.owned, nil
}

func (p *fakeProvider) Release(*mesh.Mesh) { p.releases++ }

// fakeResolver counts resolutions per material name.
type fakeResolver struct {
	calls map[string]int
}

func (r *fakeResolver) Resolve(m *Material) (Prim, error) {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[m.Name]++
	return &fakePrim{path: "/_materials/" + m.Name}, nil
}

func quadMesh(slots int) *mesh.Mesh {
	return &mesh.Mesh{
		Points:    []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Polygons:  []mesh.Polygon{{LoopStart: 0, LoopTotal: 4, Slot: 0}},
		Loops:     []mesh.Loop{{Vertex: 0}, {Vertex: 1}, {Vertex: 2}, {Vertex: 3}},
		SlotCount: slots,
	}
}

func TestExportObject_SkipsMissingMesh(t *testing.T) {
	doc := &fakeDoc{}
	s := NewSession(doc, &fakeProvider{mesh: nil}, &fakeResolver{})

	obj := &Object{Name: "empty", Path: "/empty"}
	if err := s.ExportObject(obj, 1); err != nil {
		t.Fatalf("skip should not error: %v", err)
	}

	if len(doc.created) != 0 || len(doc.attrs) != 0 {
		t.Errorf("skipped object mutated document: created=%v attrs=%v", doc.created, doc.attrs)
	}
	if s.written[obj.Path] {
		t.Error("skipped object marked as written")
	}
}

func TestExportObject_QuadEndToEnd(t *testing.T) {
	doc := &fakeDoc{}
	s := NewSession(doc, &fakeProvider{mesh: quadMesh(1)}, &fakeResolver{})

	obj := &Object{
		Name:  "quad",
		Path:  "/quad",
		Slots: []*Material{{Name: "wood", CullBackface: true}},
	}
	if err := s.ExportObject(obj, 1); err != nil {
		t.Fatal(err)
	}

	points := doc.writesOf(AttrPoints)
	if len(points) != 1 || len(points[0].value.([]mgl32.Vec3)) != 4 {
		t.Errorf("points writes = %+v, want one write of 4 points", points)
	}
	counts := doc.writesOf(AttrFaceVertexCounts)
	if len(counts) != 1 {
		t.Fatalf("faceVertexCounts writes = %d, want 1", len(counts))
	}
	if got := counts[0].value.([]int32); len(got) != 1 || got[0] != 4 {
		t.Errorf("faceVertexCounts = %v, want [4]", got)
	}
	if got := doc.writesOf(AttrFaceVertexIndices)[0].value.([]int32); len(got) != 4 {
		t.Errorf("faceVertexIndices = %v, want 4 entries", got)
	}

	if len(doc.writesOf(AttrCreaseLengths)) != 0 {
		t.Error("crease attributes written for mesh without creases")
	}

	if len(doc.binds) != 1 || doc.binds[0] != (bindCall{mat: "/_materials/wood", target: "/quad"}) {
		t.Errorf("binds = %+v, want whole-mesh wood binding", doc.binds)
	}
	if len(doc.subsets) != 0 {
		t.Errorf("subsets = %+v, want none for a single slot", doc.subsets)
	}

	ds := doc.writesOf(AttrDoubleSided)
	if len(ds) != 1 || ds[0].value != false {
		t.Errorf("doubleSided writes = %+v, want one write of false (culling on)", ds)
	}
	if !ds[0].time.IsDefault() {
		t.Error("doubleSided should be written at the default time")
	}
}

func TestExportObject_WritesCreases(t *testing.T) {
	m := quadMesh(1)
	m.Edges = []mesh.Edge{{V1: 0, V2: 1, Crease: 255}}

	doc := &fakeDoc{}
	s := NewSession(doc, &fakeProvider{mesh: m}, &fakeResolver{})

	if err := s.ExportObject(&Object{Name: "q", Path: "/q"}, 1); err != nil {
		t.Fatal(err)
	}

	for _, attr := range []string{AttrCreaseLengths, AttrCreaseIndices, AttrCreaseSharpnesses} {
		if len(doc.writesOf(attr)) != 1 {
			t.Errorf("%s writes = %d, want 1", attr, len(doc.writesOf(attr)))
		}
	}
	sharp := doc.writesOf(AttrCreaseSharpnesses)[0].value.([]float32)
	if len(sharp) != 1 || sharp[0] != mesh.SharpnessInfinite {
		t.Errorf("creaseSharpnesses = %v, want [SharpnessInfinite]", sharp)
	}
}

func TestExportObject_ReleasesOwnedMesh(t *testing.T) {
	tests := []struct {
		name     string
		owned    bool
		failAttr string
		wantErr  bool
		wantRel  int
	}{
		{"owned, success", true, "", false, 1},
		{"owned, write fails midway", true, AttrFaceVertexIndices, true, 1},
		{"unowned, success", false, "", false, 0},
		{"unowned, write fails midway", false, AttrFaceVertexIndices, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{mesh: quadMesh(1), owned: tt.owned}
			doc := &fakeDoc{failAttr: tt.failAttr}
			s := NewSession(doc, provider, &fakeResolver{})

			err := s.ExportObject(&Object{Name: "q", Path: "/q"}, 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errInjected) {
				t.Errorf("error %v should wrap the sink failure", err)
			}
			if provider.releases != tt.wantRel {
				t.Errorf("releases = %d, want %d", provider.releases, tt.wantRel)
			}
		})
	}
}

func TestExportObject_FirstFrameOnlyMaterials(t *testing.T) {
	resolver := &fakeResolver{}
	doc := &fakeDoc{}
	s := NewSession(doc, &fakeProvider{mesh: quadMesh(1)}, resolver)

	obj := &Object{Name: "q", Path: "/q", Slots: []*Material{{Name: "wood"}}}

	for frame := 1; frame <= 3; frame++ {
		if err := s.ExportObject(obj, TimeCode(frame)); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(doc.writesOf(AttrPoints)); got != 3 {
		t.Errorf("points writes = %d, want one per frame", got)
	}
	if len(doc.binds) != 1 {
		t.Errorf("binds = %d, want material bound once", len(doc.binds))
	}
	if got := len(doc.writesOf(AttrDoubleSided)); got != 1 {
		t.Errorf("doubleSided writes = %d, want 1", got)
	}
	if resolver.calls["wood"] != 1 {
		t.Errorf("resolver calls = %d, want 1", resolver.calls["wood"])
	}
	if !s.written[obj.Path] {
		t.Error("object not marked written after first sample")
	}
}

func TestExportObject_FailedFirstFrameRetriesMaterials(t *testing.T) {
	provider := &fakeProvider{mesh: quadMesh(1), owned: true}
	doc := &fakeDoc{failAttr: AttrFaceVertexIndices}
	s := NewSession(doc, provider, &fakeResolver{})

	obj := &Object{Name: "q", Path: "/q", Slots: []*Material{{Name: "wood"}}}

	if err := s.ExportObject(obj, 1); err == nil {
		t.Fatal("expected injected failure")
	}
	if s.written[obj.Path] {
		t.Fatal("failed write must not mark the object written")
	}

	doc.failAttr = ""
	if err := s.ExportObject(obj, 1); err != nil {
		t.Fatal(err)
	}
	if len(doc.binds) != 1 {
		t.Errorf("binds = %d, want material bound on the retried first frame", len(doc.binds))
	}
	if provider.releases != 2 {
		t.Errorf("releases = %d, want one per acquisition", provider.releases)
	}
}

// threeSlotMesh splits 8 polygons 5/0/3 across slots 0/1/2.
func threeSlotMesh() *mesh.Mesh {
	m := &mesh.Mesh{SlotCount: 3}
	m.Points = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	slotOf := func(i int) int {
		if i < 5 {
			return 0
		}
		return 2
	}
	for i := 0; i < 8; i++ {
		m.Polygons = append(m.Polygons, mesh.Polygon{
			LoopStart: len(m.Loops), LoopTotal: 3, Slot: slotOf(i),
		})
		m.Loops = append(m.Loops, mesh.Loop{Vertex: 0}, mesh.Loop{Vertex: 1}, mesh.Loop{Vertex: 2})
	}
	return m
}

func TestAssignMaterials_SubsetsPerGroup(t *testing.T) {
	resolver := &fakeResolver{}
	doc := &fakeDoc{}
	s := NewSession(doc, &fakeProvider{mesh: threeSlotMesh()}, resolver)

	obj := &Object{
		Name: "multi",
		Path: "/multi",
		Slots: []*Material{
			{Name: "red", CullBackface: true},
			nil, // empty slot
			{Name: "blue"},
		},
	}
	if err := s.ExportObject(obj, 1); err != nil {
		t.Fatal(err)
	}

	// Whole-mesh binding goes to the first non-empty slot.
	if len(doc.binds) < 1 || doc.binds[0] != (bindCall{mat: "/_materials/red", target: "/multi"}) {
		t.Fatalf("binds = %+v, want whole-mesh red binding first", doc.binds)
	}

	if len(doc.subsets) != 2 {
		t.Fatalf("subsets = %+v, want one per non-empty group", doc.subsets)
	}
	if doc.subsets[0].name != "red" || len(doc.subsets[0].faces) != 5 {
		t.Errorf("first subset = %+v, want red with 5 faces", doc.subsets[0])
	}
	if doc.subsets[1].name != "blue" || len(doc.subsets[1].faces) != 3 {
		t.Errorf("second subset = %+v, want blue with 3 faces", doc.subsets[1])
	}

	// Each subset gets its own binding on top of the whole-mesh one.
	wantBinds := []bindCall{
		{mat: "/_materials/red", target: "/multi"},
		{mat: "/_materials/red", target: "/multi/red"},
		{mat: "/_materials/blue", target: "/multi/blue"},
	}
	if len(doc.binds) != len(wantBinds) {
		t.Fatalf("binds = %+v, want %+v", doc.binds, wantBinds)
	}
	for i, want := range wantBinds {
		if doc.binds[i] != want {
			t.Errorf("binds[%d] = %+v, want %+v", i, doc.binds[i], want)
		}
	}

	// Double-sided comes from red's culling flag.
	ds := doc.writesOf(AttrDoubleSided)
	if len(ds) != 1 || ds[0].value != false {
		t.Errorf("doubleSided writes = %+v, want false from red", ds)
	}

	// red resolved once despite mesh and subset bindings.
	if resolver.calls["red"] != 1 || resolver.calls["blue"] != 1 {
		t.Errorf("resolver calls = %v, want one per material", resolver.calls)
	}
}

func TestAssignMaterials_GroupOnEmptySlotSkipped(t *testing.T) {
	m := threeSlotMesh()
	m.SlotCount = 2
	for i := range m.Polygons {
		if m.Polygons[i].Slot == 2 {
			m.Polygons[i].Slot = 1
		}
	}

	doc := &fakeDoc{}
	s := NewSession(doc, &fakeProvider{mesh: m}, &fakeResolver{})

	obj := &Object{
		Name:  "halfempty",
		Path:  "/halfempty",
		Slots: []*Material{{Name: "red"}, nil},
	}
	if err := s.ExportObject(obj, 1); err != nil {
		t.Fatal(err)
	}

	// Two face groups exist, but the empty slot's group produces no
	// subset; its polygons stay under the whole-mesh binding.
	if len(doc.subsets) != 1 || doc.subsets[0].name != "red" {
		t.Errorf("subsets = %+v, want only red", doc.subsets)
	}
}

func TestAssignMaterials_EdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		slots       []*Material
		slotCount   int
		wantBinds   int
		wantDS      []any // expected doubleSided writes, in order
		wantSubsets int
	}{
		{
			name:        "no slots at all",
			slots:       nil,
			slotCount:   0,
			wantBinds:   0,
			wantDS:      nil,
			wantSubsets: 0,
		},
		{
			name:        "all slots empty",
			slots:       []*Material{nil, nil},
			slotCount:   2,
			wantBinds:   0,
			wantDS:      []any{true},
			wantSubsets: 0,
		},
		{
			name:        "single group never subsets",
			slots:       []*Material{{Name: "only"}},
			slotCount:   1,
			wantBinds:   1,
			wantDS:      []any{true},
			wantSubsets: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &fakeDoc{}
			s := NewSession(doc, &fakeProvider{mesh: quadMesh(tt.slotCount)}, &fakeResolver{})

			obj := &Object{Name: "o", Path: "/o", Slots: tt.slots}
			if err := s.ExportObject(obj, 1); err != nil {
				t.Fatal(err)
			}

			if len(doc.binds) != tt.wantBinds {
				t.Errorf("binds = %+v, want %d", doc.binds, tt.wantBinds)
			}
			ds := doc.writesOf(AttrDoubleSided)
			if len(ds) != len(tt.wantDS) {
				t.Fatalf("doubleSided writes = %+v, want %v", ds, tt.wantDS)
			}
			for i, want := range tt.wantDS {
				if ds[i].value != want {
					t.Errorf("doubleSided[%d] = %v, want %v", i, ds[i].value, want)
				}
			}
			if len(doc.subsets) != tt.wantSubsets {
				t.Errorf("subsets = %+v, want %d", doc.subsets, tt.wantSubsets)
			}
		})
	}
}

func TestSession_MemoizesMaterialsAcrossObjects(t *testing.T) {
	resolver := &fakeResolver{}
	doc := &fakeDoc{}
	s := NewSession(doc, &fakeProvider{mesh: quadMesh(1)}, resolver)

	shared := &Material{Name: "shared"}
	for i := 0; i < 3; i++ {
		obj := &Object{
			Name:  fmt.Sprintf("obj%d", i),
			Path:  fmt.Sprintf("/obj%d", i),
			Slots: []*Material{shared},
		}
		if err := s.ExportObject(obj, 1); err != nil {
			t.Fatal(err)
		}
	}

	if resolver.calls["shared"] != 1 {
		t.Errorf("resolver calls = %d, want 1 across all objects", resolver.calls["shared"])
	}
	if len(doc.binds) != 3 {
		t.Errorf("binds = %d, want one per object", len(doc.binds))
	}
}
