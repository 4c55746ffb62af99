// Package symbol interns method and field references so that call targets
// compare by identity for the lifetime of one analysis run.
package symbol

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/sarang1991/findbugs/pkg/classfile"
)

type key struct {
	owner     string
	name      string
	signature string
	isStatic  bool
}

// MethodRef is a canonical method reference. Owner is a dotted class name.
// Two refs obtained from the same Table for the same fields are the same
// pointer.
type MethodRef struct {
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	Signature string `json:"signature"`
	IsStatic  bool   `json:"static,omitempty"`
}

// ReturnType returns the return descriptor of the method.
func (m *MethodRef) ReturnType() string {
	return classfile.ReturnType(m.Signature)
}

// ReturnsOwner reports whether the method returns an instance of its own
// declaring class, as builders and fluent setters do.
func (m *MethodRef) ReturnsOwner() bool {
	return m.ReturnType() == "L"+classfile.SlashedName(m.Owner)+";"
}

// IsConstructor reports whether the method is an instance or static initializer.
func (m *MethodRef) IsConstructor() bool {
	return m.Name == "<init>" || m.Name == "<clinit>"
}

func (m *MethodRef) String() string {
	var b strings.Builder
	b.Grow(len(m.Owner) + len(m.Name) + len(m.Signature) + 8)
	if m.IsStatic {
		b.WriteString("static ")
	}
	b.WriteString(m.Owner)
	b.WriteByte('.')
	b.WriteString(m.Name)
	b.WriteString(m.Signature)
	return b.String()
}

// FieldRef is a canonical field reference.
type FieldRef struct {
	Owner     string
	Name      string
	Signature string
	IsStatic  bool
}

func (f *FieldRef) String() string {
	return f.Owner + "." + f.Name + ":" + f.Signature
}

// Table interns references. It is safe for concurrent use; concurrent first
// lookups of the same key agree on a single instance.
type Table struct {
	methods *xsync.Map[key, *MethodRef]
	fields  *xsync.Map[key, *FieldRef]
}

func NewTable() *Table {
	return &Table{
		methods: xsync.NewMap[key, *MethodRef](),
		fields:  xsync.NewMap[key, *FieldRef](),
	}
}

// MethodRef returns the canonical reference for the given method.
func (t *Table) MethodRef(owner, name, signature string, isStatic bool) *MethodRef {
	k := key{owner: owner, name: name, signature: signature, isStatic: isStatic}
	if ref, ok := t.methods.Load(k); ok {
		return ref
	}
	ref, _ := t.methods.LoadOrStore(k, &MethodRef{
		Owner:     owner,
		Name:      name,
		Signature: signature,
		IsStatic:  isStatic,
	})
	return ref
}

// FieldRef returns the canonical reference for the given field.
func (t *Table) FieldRef(owner, name, signature string, isStatic bool) *FieldRef {
	k := key{owner: owner, name: name, signature: signature, isStatic: isStatic}
	if ref, ok := t.fields.Load(k); ok {
		return ref
	}
	ref, _ := t.fields.LoadOrStore(k, &FieldRef{
		Owner:     owner,
		Name:      name,
		Signature: signature,
		IsStatic:  isStatic,
	})
	return ref
}

// Invoked returns the canonical reference for the target of an invoke
// instruction, or nil when the instruction carries no resolved method.
func (t *Table) Invoked(insn classfile.Instruction) *MethodRef {
	if insn.Member == nil || insn.Member.Owner == "" {
		return nil
	}
	return t.MethodRef(
		classfile.DottedName(insn.Member.Owner),
		insn.Member.Name,
		insn.Member.Descriptor,
		insn.Opcode == classfile.Invokestatic,
	)
}

// Declared returns the canonical reference for a method declared by class.
func (t *Table) Declared(class *classfile.Class, m *classfile.Method) *MethodRef {
	return t.MethodRef(class.Name, m.Name, m.Descriptor, m.IsStatic())
}

// Len returns the number of interned methods and fields.
func (t *Table) Len() int {
	return t.methods.Size() + t.fields.Size()
}

// Clear drops every interned reference. References handed out earlier stay
// valid but are no longer canonical.
func (t *Table) Clear() {
	t.methods.Clear()
	t.fields.Clear()
}
