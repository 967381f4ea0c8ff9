package usda

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrValueType is returned when an attribute holds a value the encoder
// cannot render.
var ErrValueType = errors.New("usda: unsupported attribute value type")

// Save renders the document to a .usda file.
func (d *Document) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := d.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode renders the document as USD ASCII text.
func (d *Document) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "#usda 1.0")
	fmt.Fprintln(bw, "(")
	if d.haveRange {
		fmt.Fprintf(bw, "    startTimeCode = %g\n", d.startTime)
		fmt.Fprintf(bw, "    endTimeCode = %g\n", d.endTime)
	}
	fmt.Fprintln(bw, "    metersPerUnit = 1")
	fmt.Fprintln(bw, "    upAxis = \"Z\"")
	fmt.Fprintln(bw, ")")

	for _, m := range d.meshes {
		fmt.Fprintln(bw)
		if err := encodeMesh(bw, m); err != nil {
			return err
		}
	}

	if len(d.materials) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "def Scope \"%s\"\n{\n", primName(materialsScope))
		for _, m := range d.materials {
			fmt.Fprintf(bw, "    def Material \"%s\"\n    {\n    }\n", m.name)
		}
		fmt.Fprintln(bw, "}")
	}

	return bw.Flush()
}

func encodeMesh(w io.Writer, m *prim) error {
	fmt.Fprintf(w, "def Mesh \"%s\"\n{\n", m.name)
	if err := encodeAttrs(w, m, "    "); err != nil {
		return err
	}
	encodeBinding(w, m, "    ")

	for _, sub := range m.subsets {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    def GeomSubset \"%s\"\n    {\n", sub.name)
		fmt.Fprintln(w, "        uniform token elementType = \"face\"")
		fmt.Fprintln(w, "        uniform token familyName = \"materialBind\"")
		fmt.Fprintf(w, "        int[] indices = %s\n", formatInts(sub.indices))
		encodeBinding(w, sub, "        ")
		fmt.Fprintln(w, "    }")
	}

	fmt.Fprintln(w, "}")
	return nil
}

func encodeAttrs(w io.Writer, p *prim, indent string) error {
	for _, a := range p.attrs {
		typ, err := attrType(a)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", p.path, a.name, err)
		}

		if a.hasDef {
			v, err := formatValue(a.def)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", p.path, a.name, err)
			}
			fmt.Fprintf(w, "%s%s %s = %s\n", indent, typ, a.name, v)
		}

		if len(a.samples) > 0 {
			fmt.Fprintf(w, "%s%s %s.timeSamples = {\n", indent, typ, a.name)
			for _, s := range a.sortedSamples() {
				v, err := formatValue(s.value)
				if err != nil {
					return fmt.Errorf("%s.%s: %w", p.path, a.name, err)
				}
				fmt.Fprintf(w, "%s    %g: %s,\n", indent, s.time, v)
			}
			fmt.Fprintf(w, "%s}\n", indent)
		}
	}
	return nil
}

func encodeBinding(w io.Writer, p *prim, indent string) {
	if p.binding != "" {
		fmt.Fprintf(w, "%srel material:binding = <%s>\n", indent, p.binding)
	}
}

// attrType maps an attribute's Go value onto its USD type declaration.
func attrType(a *attribute) (string, error) {
	var v any
	switch {
	case a.hasDef:
		v = a.def
	case len(a.samples) > 0:
		v = a.samples[0].value
	default:
		return "", ErrValueType
	}

	switch v.(type) {
	case []mgl32.Vec3:
		return "point3f[]", nil
	case []int32:
		return "int[]", nil
	case []float32:
		return "float[]", nil
	case bool:
		return "uniform bool", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrValueType, v)
	}
}

func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case []mgl32.Vec3:
		var b strings.Builder
		b.WriteByte('[')
		for i, p := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "(%g, %g, %g)", p[0], p[1], p[2])
		}
		b.WriteByte(']')
		return b.String(), nil
	case []int32:
		return formatInts(v), nil
	case []float32:
		var b strings.Builder
		b.WriteByte('[')
		for i, f := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%g", f)
		}
		b.WriteByte(']')
		return b.String(), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrValueType, v)
	}
}

func formatInts(v []int32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, n := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", n)
	}
	b.WriteByte(']')
	return b.String()
}
