package classfile

import "fmt"

// Annotation is a decoded RuntimeVisibleAnnotations or
// RuntimeInvisibleAnnotations entry.
type Annotation struct {
	// Type is the field descriptor of the annotation type,
	// e.g. "Ljavax/annotation/CheckReturnValue;".
	Type string

	// Visible is false for annotations with class retention.
	Visible bool

	Elements map[string]ElementValue
}

// ClassName returns the dotted name of the annotation type.
func (a *Annotation) ClassName() string {
	return DottedName(ClassFromDescriptor(a.Type))
}

// Element returns the named element value.
func (a *Annotation) Element(name string) (ElementValue, bool) {
	v, ok := a.Elements[name]
	return v, ok
}

// ElementValue is one annotation element value. Tag follows the classfile
// element_value tag ('s', 'I', 'e', 'c', '@', '[' ...).
type ElementValue struct {
	Tag byte

	// Const holds the value of string and primitive constants. Primitive
	// constants are rendered in decimal.
	Const string

	// EnumType and EnumConst are set for 'e' values.
	EnumType  string
	EnumConst string

	// Class is set for 'c' values (a return descriptor).
	Class string

	Annotation *Annotation
	Array      []ElementValue
}

func parseAnnotations(r *reader, cp *ConstantPool, visible bool) ([]Annotation, error) {
	n, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading annotation count: %w", err)
	}
	out := make([]Annotation, 0, n)
	for i := 0; i < int(n); i++ {
		a, err := parseAnnotation(r, cp, visible)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out = append(out, *a)
	}
	return out, nil
}

func parseAnnotation(r *reader, cp *ConstantPool, visible bool) (*Annotation, error) {
	typeIndex, err := r.u2()
	if err != nil {
		return nil, err
	}
	typ, err := cp.Utf8(typeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving annotation type: %w", err)
	}
	pairs, err := r.u2()
	if err != nil {
		return nil, err
	}
	a := &Annotation{Type: typ, Visible: visible}
	if pairs > 0 {
		a.Elements = make(map[string]ElementValue, pairs)
	}
	for i := 0; i < int(pairs); i++ {
		nameIndex, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := cp.Utf8(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving element name: %w", err)
		}
		v, err := parseElementValue(r, cp, visible)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", name, err)
		}
		a.Elements[name] = v
	}
	return a, nil
}

func parseElementValue(r *reader, cp *ConstantPool, visible bool) (ElementValue, error) {
	tag, err := r.u1()
	if err != nil {
		return ElementValue{}, err
	}
	v := ElementValue{Tag: tag}
	switch tag {
	case 's':
		idx, err := r.u2()
		if err != nil {
			return v, err
		}
		if v.Const, err = cp.Utf8(idx); err != nil {
			return v, err
		}
	case 'B', 'C', 'I', 'S', 'Z', 'J', 'F', 'D':
		idx, err := r.u2()
		if err != nil {
			return v, err
		}
		c, err := cp.entry(idx, TagInteger, TagLong, TagFloat, TagDouble)
		if err != nil {
			return v, err
		}
		switch c.tag {
		case TagInteger:
			v.Const = fmt.Sprint(int32(uint32(c.value)))
		case TagLong:
			v.Const = fmt.Sprint(int64(c.value))
		default:
			v.Const = fmt.Sprint(c.value)
		}
	case 'e':
		typeIdx, err := r.u2()
		if err != nil {
			return v, err
		}
		constIdx, err := r.u2()
		if err != nil {
			return v, err
		}
		if v.EnumType, err = cp.Utf8(typeIdx); err != nil {
			return v, err
		}
		if v.EnumConst, err = cp.Utf8(constIdx); err != nil {
			return v, err
		}
	case 'c':
		idx, err := r.u2()
		if err != nil {
			return v, err
		}
		if v.Class, err = cp.Utf8(idx); err != nil {
			return v, err
		}
	case '@':
		if v.Annotation, err = parseAnnotation(r, cp, visible); err != nil {
			return v, err
		}
	case '[':
		n, err := r.u2()
		if err != nil {
			return v, err
		}
		v.Array = make([]ElementValue, 0, n)
		for i := 0; i < int(n); i++ {
			elem, err := parseElementValue(r, cp, visible)
			if err != nil {
				return v, err
			}
			v.Array = append(v.Array, elem)
		}
	default:
		return v, fmt.Errorf("unknown element value tag %q", tag)
	}
	return v, nil
}

// FindAnnotation returns the first annotation whose dotted type name is name.
func FindAnnotation(annotations []Annotation, name string) (*Annotation, bool) {
	for i := range annotations {
		if annotations[i].ClassName() == name {
			return &annotations[i], true
		}
	}
	return nil, false
}
