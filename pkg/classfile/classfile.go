// Package classfile decodes JVM classfiles into the structures the detectors
// consume: the class hierarchy edges, method bodies as PC-ordered
// instruction streams, exception tables and annotations.
//
// The format is described in chapter 4 of the JVM specification:
// https://docs.oracle.com/javase/specs/jvms/se21/html/jvms-4.html
package classfile

import (
	"fmt"
)

const magic = 0xcafebabe

// Access flags shared by classes, fields and methods.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccBridge     = 0x0040
	AccNative     = 0x0100
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

// Class is a parsed classfile. Names are dotted (java.lang.Object).
type Class struct {
	MajorVersion int
	MinorVersion int
	AccessFlags  uint16
	Name         string

	// Super is empty for java.lang.Object and module-info.
	Super      string
	Interfaces []string

	Fields      []*Field
	Methods     []*Method
	Annotations []Annotation
	SourceFile  string

	Pool *ConstantPool
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.AccessFlags&AccInterface != 0
}

// Method returns the method with the given name and descriptor.
func (c *Class) Method(name, descriptor string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return nil, false
}

// Field is a declared field.
type Field struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Annotations []Annotation
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool {
	return f.AccessFlags&AccStatic != 0
}

// Method is a declared method. Code is nil for abstract and native methods.
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Annotations []Annotation
	Code        *Code
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// HasBody reports whether the method carries bytecode.
func (m *Method) HasBody() bool {
	return m.Code != nil && len(m.Code.Instructions) > 0
}

type attribute struct {
	name string
	info []byte
}

// Parse decodes a classfile.
func Parse(data []byte) (*Class, error) {
	r := newReader(data)
	m, err := r.u4()
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if m != magic {
		return nil, fmt.Errorf("bad magic 0x%08x", m)
	}
	minor, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	major, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}
	cp, err := parseConstantPool(r)
	if err != nil {
		return nil, fmt.Errorf("reading constant pool: %w", err)
	}
	c := &Class{
		MajorVersion: int(major),
		MinorVersion: int(minor),
		Pool:         cp,
	}
	if c.AccessFlags, err = r.u2(); err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	this, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading this class: %w", err)
	}
	name, err := cp.ClassName(this)
	if err != nil {
		return nil, fmt.Errorf("resolving this class: %w", err)
	}
	c.Name = DottedName(name)

	super, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading super class: %w", err)
	}
	if super != 0 {
		superName, err := cp.ClassName(super)
		if err != nil {
			return nil, fmt.Errorf("resolving super class of %s: %w", c.Name, err)
		}
		c.Super = DottedName(superName)
	}

	count, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading interface count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		idx, err := r.u2()
		if err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
		iface, err := cp.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("resolving interface %d of %s: %w", i, c.Name, err)
		}
		c.Interfaces = append(c.Interfaces, DottedName(iface))
	}

	if c.Fields, err = parseFields(r, cp); err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	if c.Methods, err = parseMethods(r, cp); err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}

	attrs, err := parseAttributes(r, cp)
	if err != nil {
		return nil, fmt.Errorf("%s: reading class attributes: %w", c.Name, err)
	}
	for _, attr := range attrs {
		switch attr.name {
		case "SourceFile":
			ar := newReader(attr.info)
			idx, err := ar.u2()
			if err != nil {
				return nil, fmt.Errorf("%s: reading source file: %w", c.Name, err)
			}
			if c.SourceFile, err = cp.Utf8(idx); err != nil {
				return nil, fmt.Errorf("%s: resolving source file: %w", c.Name, err)
			}
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			anns, err := parseAnnotations(newReader(attr.info), cp, attr.name == "RuntimeVisibleAnnotations")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c.Name, err)
			}
			c.Annotations = append(c.Annotations, anns...)
		}
	}
	return c, nil
}

func parseAttributes(r *reader, cp *ConstantPool) ([]attribute, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	attrs := make([]attribute, 0, count)
	for i := 0; i < int(count); i++ {
		nameIndex, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := cp.Utf8(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute name: %w", err)
		}
		length, err := r.u4()
		if err != nil {
			return nil, err
		}
		info, err := r.bytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("reading attribute %s: %w", name, err)
		}
		attrs = append(attrs, attribute{name: name, info: info})
	}
	return attrs, nil
}

type member struct {
	access      uint16
	name        string
	descriptor  string
	annotations []Annotation
	attrs       []attribute
}

func parseMember(r *reader, cp *ConstantPool) (*member, error) {
	var idx [3]uint16
	var err error
	for i := range idx {
		if idx[i], err = r.u2(); err != nil {
			return nil, err
		}
	}
	m := &member{access: idx[0]}
	if m.name, err = cp.Utf8(idx[1]); err != nil {
		return nil, fmt.Errorf("resolving member name: %w", err)
	}
	if m.descriptor, err = cp.Utf8(idx[2]); err != nil {
		return nil, fmt.Errorf("resolving descriptor of %s: %w", m.name, err)
	}
	if m.attrs, err = parseAttributes(r, cp); err != nil {
		return nil, fmt.Errorf("reading attributes of %s: %w", m.name, err)
	}
	for _, attr := range m.attrs {
		if attr.name != "RuntimeVisibleAnnotations" && attr.name != "RuntimeInvisibleAnnotations" {
			continue
		}
		anns, err := parseAnnotations(newReader(attr.info), cp, attr.name == "RuntimeVisibleAnnotations")
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", m.name, m.descriptor, err)
		}
		m.annotations = append(m.annotations, anns...)
	}
	return m, nil
}

func parseFields(r *reader, cp *ConstantPool) ([]*Field, error) {
	count, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading field count: %w", err)
	}
	fields := make([]*Field, 0, count)
	for i := 0; i < int(count); i++ {
		m, err := parseMember(r, cp)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		fields = append(fields, &Field{
			AccessFlags: m.access,
			Name:        m.name,
			Descriptor:  m.descriptor,
			Annotations: m.annotations,
		})
	}
	return fields, nil
}

func parseMethods(r *reader, cp *ConstantPool) ([]*Method, error) {
	count, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading method count: %w", err)
	}
	methods := make([]*Method, 0, count)
	for i := 0; i < int(count); i++ {
		m, err := parseMember(r, cp)
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		method := &Method{
			AccessFlags: m.access,
			Name:        m.name,
			Descriptor:  m.descriptor,
			Annotations: m.annotations,
		}
		for _, attr := range m.attrs {
			if attr.name != "Code" {
				continue
			}
			if method.Code, err = parseCode(attr.info, cp); err != nil {
				return nil, fmt.Errorf("method %s%s: %w", m.name, m.descriptor, err)
			}
		}
		methods = append(methods, method)
	}
	return methods, nil
}
