// Package classfiletest encodes small classfiles from a declarative
// description so tests can exercise the parser and detectors on real bytes.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/sarang1991/findbugs/pkg/classfile"
)

// Class describes a classfile. Names are dotted.
type Class struct {
	Name string `yaml:"name"`

	// Super defaults to java.lang.Object.
	Super       string       `yaml:"super,omitempty"`
	Interfaces  []string     `yaml:"interfaces,omitempty"`
	Interface   bool         `yaml:"interface,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty"`
	Fields      []Field      `yaml:"fields,omitempty"`
	Methods     []Method     `yaml:"methods,omitempty"`
}

// Field describes a field.
type Field struct {
	Name       string `yaml:"name"`
	Descriptor string `yaml:"descriptor"`
	Static     bool   `yaml:"static,omitempty"`
}

// Method describes a method. Code holds one assembler line per instruction,
// e.g. "invokevirtual com/example/Foo.bar()I" or "bipush 7". A method without
// code is emitted abstract (or native when Native is set).
type Method struct {
	Name        string       `yaml:"name"`
	Descriptor  string       `yaml:"descriptor"`
	Static      bool         `yaml:"static,omitempty"`
	Native      bool         `yaml:"native,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty"`
	Code        []string     `yaml:"code,omitempty"`
	Try         []Try        `yaml:"try,omitempty"`

	// FirstLine, when positive, emits a LineNumberTable assigning
	// consecutive lines to consecutive instructions.
	FirstLine int `yaml:"first_line,omitempty"`
}

// Try is an exception table entry. Catch is a dotted class name or empty
// for a catch-all handler.
type Try struct {
	Start   int    `yaml:"start"`
	End     int    `yaml:"end"`
	Handler int    `yaml:"handler"`
	Catch   string `yaml:"catch,omitempty"`
}

// Annotation describes an annotation with string, string array and enum
// elements.
type Annotation struct {
	Type      string              `yaml:"type"`
	Invisible bool                `yaml:"invisible,omitempty"`
	Strings   map[string]string   `yaml:"strings,omitempty"`
	Arrays    map[string][]string `yaml:"arrays,omitempty"`
	Enums     map[string]Enum     `yaml:"enums,omitempty"`
}

// Enum is an enum constant element value. Type is dotted.
type Enum struct {
	Type  string `yaml:"type"`
	Const string `yaml:"const"`
}

// MustBuild encodes c and fails the test on error.
func MustBuild(t testing.TB, c Class) []byte {
	t.Helper()
	data, err := Build(c)
	if err != nil {
		t.Fatalf("building class %s: %v", c.Name, err)
	}
	return data
}

// MustParse encodes c and decodes it back with classfile.Parse.
func MustParse(t testing.TB, c Class) *classfile.Class {
	t.Helper()
	parsed, err := classfile.Parse(MustBuild(t, c))
	if err != nil {
		t.Fatalf("parsing class %s: %v", c.Name, err)
	}
	return parsed
}

// Build encodes c as a version 52 classfile.
func Build(c Class) ([]byte, error) {
	p := newPool()
	var body bytes.Buffer

	access := uint16(classfile.AccPublic | classfile.AccSuper)
	if c.Interface {
		access = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract
	}
	super := c.Super
	if super == "" && c.Name != "java.lang.Object" {
		super = "java.lang.Object"
	}
	u2(&body, access)
	u2(&body, p.class(c.Name))
	if super == "" {
		u2(&body, 0)
	} else {
		u2(&body, p.class(super))
	}
	u2(&body, uint16(len(c.Interfaces)))
	for _, iface := range c.Interfaces {
		u2(&body, p.class(iface))
	}

	u2(&body, uint16(len(c.Fields)))
	for _, f := range c.Fields {
		fa := uint16(classfile.AccPublic)
		if f.Static {
			fa |= classfile.AccStatic
		}
		u2(&body, fa)
		u2(&body, p.utf8(f.Name))
		u2(&body, p.utf8(f.Descriptor))
		u2(&body, 0)
	}

	u2(&body, uint16(len(c.Methods)))
	for _, m := range c.Methods {
		if err := writeMethod(&body, p, m); err != nil {
			return nil, fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
		}
	}

	attrs := annotationAttributes(p, c.Annotations)
	u2(&body, uint16(len(attrs)))
	for _, a := range attrs {
		body.Write(a)
	}

	var out bytes.Buffer
	u4(&out, 0xcafebabe)
	u2(&out, 0)
	u2(&out, 52)
	u2(&out, uint16(len(p.entries)+1))
	for _, e := range p.entries {
		out.Write(e)
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func writeMethod(w *bytes.Buffer, p *Pool, m Method) error {
	access := uint16(classfile.AccPublic)
	if m.Static {
		access |= classfile.AccStatic
	}
	switch {
	case len(m.Code) > 0:
	case m.Native:
		access |= classfile.AccNative
	default:
		access |= classfile.AccAbstract
	}
	u2(w, access)
	u2(w, p.utf8(m.Name))
	u2(w, p.utf8(m.Descriptor))

	var attrs [][]byte
	if len(m.Code) > 0 {
		code, pcs, err := Assemble(p, m.Code)
		if err != nil {
			return err
		}
		attrs = append(attrs, codeAttribute(p, code, pcs, m))
	}
	attrs = append(attrs, annotationAttributes(p, m.Annotations)...)
	u2(w, uint16(len(attrs)))
	for _, a := range attrs {
		w.Write(a)
	}
	return nil
}

func codeAttribute(p *Pool, code []byte, pcs []int, m Method) []byte {
	var b bytes.Buffer
	u2(&b, 16)
	u2(&b, 16)
	u4(&b, uint32(len(code)))
	b.Write(code)
	u2(&b, uint16(len(m.Try)))
	for _, t := range m.Try {
		u2(&b, uint16(t.Start))
		u2(&b, uint16(t.End))
		u2(&b, uint16(t.Handler))
		if t.Catch == "" {
			u2(&b, 0)
		} else {
			u2(&b, p.class(t.Catch))
		}
	}
	if m.FirstLine > 0 {
		var lines bytes.Buffer
		u2(&lines, uint16(len(pcs)))
		for i, pc := range pcs {
			u2(&lines, uint16(pc))
			u2(&lines, uint16(m.FirstLine+i))
		}
		u2(&b, 1)
		b.Write(attribute(p, "LineNumberTable", lines.Bytes()))
	} else {
		u2(&b, 0)
	}
	return attribute(p, "Code", b.Bytes())
}

func annotationAttributes(p *Pool, anns []Annotation) [][]byte {
	var visible, invisible []Annotation
	for _, a := range anns {
		if a.Invisible {
			invisible = append(invisible, a)
		} else {
			visible = append(visible, a)
		}
	}
	var attrs [][]byte
	if len(visible) > 0 {
		attrs = append(attrs, attribute(p, "RuntimeVisibleAnnotations", encodeAnnotations(p, visible)))
	}
	if len(invisible) > 0 {
		attrs = append(attrs, attribute(p, "RuntimeInvisibleAnnotations", encodeAnnotations(p, invisible)))
	}
	return attrs
}

func encodeAnnotations(p *Pool, anns []Annotation) []byte {
	var b bytes.Buffer
	u2(&b, uint16(len(anns)))
	for _, a := range anns {
		u2(&b, p.utf8(descriptorOf(a.Type)))
		u2(&b, uint16(len(a.Strings)+len(a.Arrays)+len(a.Enums)))
		for _, k := range sortedKeys(a.Strings) {
			u2(&b, p.utf8(k))
			b.WriteByte('s')
			u2(&b, p.utf8(a.Strings[k]))
		}
		for _, k := range sortedKeys(a.Arrays) {
			u2(&b, p.utf8(k))
			b.WriteByte('[')
			u2(&b, uint16(len(a.Arrays[k])))
			for _, v := range a.Arrays[k] {
				b.WriteByte('s')
				u2(&b, p.utf8(v))
			}
		}
		for _, k := range sortedKeys(a.Enums) {
			e := a.Enums[k]
			u2(&b, p.utf8(k))
			b.WriteByte('e')
			u2(&b, p.utf8(descriptorOf(e.Type)))
			u2(&b, p.utf8(e.Const))
		}
	}
	return b.Bytes()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func descriptorOf(dotted string) string {
	return "L" + classfile.SlashedName(dotted) + ";"
}

func attribute(p *Pool, name string, info []byte) []byte {
	var b bytes.Buffer
	u2(&b, p.utf8(name))
	u4(&b, uint32(len(info)))
	b.Write(info)
	return b.Bytes()
}

// Assemble encodes assembler lines into a code array and returns the PC of
// every instruction. Switch instructions and wide are not supported.
func Assemble(p *Pool, lines []string) ([]byte, []int, error) {
	var code bytes.Buffer
	pcs := make([]int, 0, len(lines))
	for i, line := range lines {
		pcs = append(pcs, code.Len())
		if err := assembleLine(&code, p, line); err != nil {
			return nil, nil, fmt.Errorf("line %d %q: %w", i+1, line, err)
		}
	}
	return code.Bytes(), pcs, nil
}

func assembleLine(w *bytes.Buffer, p *Pool, line string) error {
	mnemonic, operand, _ := strings.Cut(strings.TrimSpace(line), " ")
	operand = strings.TrimSpace(operand)
	op, ok := classfile.LookupOpcode(mnemonic)
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	w.WriteByte(byte(op))
	switch {
	case op == classfile.Invokevirtual, op == classfile.Invokespecial, op == classfile.Invokestatic, op == classfile.Invokeinterface:
		owner, name, desc, err := splitMethod(operand)
		if err != nil {
			return err
		}
		tag := uint8(classfile.TagMethodref)
		if op == classfile.Invokeinterface {
			tag = classfile.TagInterfaceMethodref
		}
		u2(w, p.member(tag, owner, name, desc))
		if op == classfile.Invokeinterface {
			w.WriteByte(byte(1 + classfile.ArgSlots(desc)))
			w.WriteByte(0)
		}
	case op >= classfile.Getstatic && op <= classfile.Putfield:
		ownerName, desc, ok := strings.Cut(operand, ":")
		dot := strings.LastIndexByte(ownerName, '.')
		if !ok || dot < 0 {
			return fmt.Errorf("field operand %q is not owner.name:descriptor", operand)
		}
		u2(w, p.member(classfile.TagFieldref, ownerName[:dot], ownerName[dot+1:], desc))
	case op.HasClassOperand():
		if operand == "" {
			return fmt.Errorf("%s needs a class operand", mnemonic)
		}
		u2(w, p.class(operand))
		if op == classfile.Multianewarray {
			w.WriteByte(1)
		}
	case op == classfile.Ldc:
		if unquoted, err := strconv.Unquote(operand); err == nil {
			w.WriteByte(byte(p.str(unquoted)))
			return nil
		}
		v, err := strconv.ParseInt(operand, 10, 32)
		if err != nil {
			return fmt.Errorf("ldc operand %q: %w", operand, err)
		}
		w.WriteByte(byte(p.integer(int32(v))))
	case op == classfile.Iinc:
		var local, delta int
		if _, err := fmt.Sscanf(operand, "%d %d", &local, &delta); err != nil {
			return fmt.Errorf("iinc operand %q: %w", operand, err)
		}
		w.WriteByte(byte(local))
		w.WriteByte(byte(int8(delta)))
	case op == classfile.Tableswitch, op == classfile.Lookupswitch, op == classfile.Wide, op == classfile.Invokedynamic:
		return fmt.Errorf("%s is not supported", mnemonic)
	default:
		n := operandBytes(op)
		if n == 0 {
			if operand != "" {
				return fmt.Errorf("%s takes no operand", mnemonic)
			}
			return nil
		}
		v, err := strconv.Atoi(operand)
		if err != nil {
			return fmt.Errorf("%s operand %q: %w", mnemonic, operand, err)
		}
		switch n {
		case 1:
			w.WriteByte(byte(v))
		case 2:
			u2(w, uint16(int16(v)))
		case 4:
			u4(w, uint32(int32(v)))
		}
	}
	return nil
}

// operandBytes returns the fixed operand length of the simple instructions
// the assembler handles in its default branch.
func operandBytes(op classfile.Opcode) int {
	insns, err := classfile.Decode(append([]byte{byte(op)}, make([]byte, 4)...), nil)
	if err != nil || len(insns) == 0 {
		return 0
	}
	return insns[0].Length - 1
}

func splitMethod(operand string) (owner, name, desc string, err error) {
	paren := strings.IndexByte(operand, '(')
	if paren < 0 {
		return "", "", "", fmt.Errorf("method operand %q has no descriptor", operand)
	}
	dot := strings.LastIndexByte(operand[:paren], '.')
	if dot < 0 {
		return "", "", "", fmt.Errorf("method operand %q has no owner", operand)
	}
	return operand[:dot], operand[dot+1 : paren], operand[paren:], nil
}

// Pool accumulates constant pool entries, deduplicating identical ones.
type Pool struct {
	entries [][]byte
	index   map[string]uint16
}

// NewPool returns an empty constant pool for use with Assemble.
func NewPool() *Pool {
	return newPool()
}

func newPool() *Pool {
	return &Pool{index: make(map[string]uint16)}
}

func (p *Pool) add(key string, entry []byte) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	p.entries = append(p.entries, entry)
	idx := uint16(len(p.entries))
	p.index[key] = idx
	return idx
}

func (p *Pool) utf8(s string) uint16 {
	var b bytes.Buffer
	b.WriteByte(classfile.TagUtf8)
	u2(&b, uint16(len(s)))
	b.WriteString(s)
	return p.add("U:"+s, b.Bytes())
}

func (p *Pool) class(name string) uint16 {
	internal := classfile.SlashedName(name)
	ref := p.utf8(internal)
	return p.add("C:"+internal, []byte{classfile.TagClass, byte(ref >> 8), byte(ref)})
}

func (p *Pool) str(s string) uint16 {
	ref := p.utf8(s)
	return p.add("S:"+s, []byte{classfile.TagString, byte(ref >> 8), byte(ref)})
}

func (p *Pool) integer(v int32) uint16 {
	var b bytes.Buffer
	b.WriteByte(classfile.TagInteger)
	u4(&b, uint32(v))
	return p.add("I:"+strconv.Itoa(int(v)), b.Bytes())
}

func (p *Pool) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	return p.add("N:"+name+":"+desc, []byte{classfile.TagNameAndType, byte(n >> 8), byte(n), byte(d >> 8), byte(d)})
}

func (p *Pool) member(tag uint8, owner, name, desc string) uint16 {
	c := p.class(owner)
	nt := p.nameAndType(name, desc)
	key := fmt.Sprintf("M%d:%s.%s:%s", tag, classfile.SlashedName(owner), name, desc)
	return p.add(key, []byte{tag, byte(c >> 8), byte(c), byte(nt >> 8), byte(nt)})
}

func u2(w *bytes.Buffer, v uint16) {
	_ = binary.Write(w, binary.BigEndian, v)
}

func u4(w *bytes.Buffer, v uint32) {
	_ = binary.Write(w, binary.BigEndian, v)
}
