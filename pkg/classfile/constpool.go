package classfile

import "fmt"

// Constant pool tags.
// See https://docs.oracle.com/javase/specs/jvms/se21/html/jvms-4.html#jvms-4.4
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// constant is one constant pool slot. Only the fields relevant to the tag are
// set; refs holds the raw indexes into the pool.
type constant struct {
	tag   uint8
	utf8  string
	value uint64
	refs  [2]uint16
}

// ConstantPool is the decoded constant pool of a class. Index 0 and the slot
// following every long/double are unusable, as in the classfile format.
type ConstantPool struct {
	entries []constant
}

func parseConstantPool(r *reader) (*ConstantPool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	cp := &ConstantPool{entries: make([]constant, count)}
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, fmt.Errorf("reading tag of constant %d: %w", i, err)
		}
		c := constant{tag: tag}
		switch tag {
		case TagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("reading utf8 length of constant %d: %w", i, err)
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, fmt.Errorf("reading utf8 constant %d: %w", i, err)
			}
			c.utf8 = string(b)
		case TagInteger, TagFloat:
			v, err := r.u4()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			c.value = uint64(v)
		case TagLong, TagDouble:
			hi, err := r.u4()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			lo, err := r.u4()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			c.value = uint64(hi)<<32 | uint64(lo)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			ref, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			c.refs[0] = ref
		case TagMethodHandle:
			kind, err := r.u1()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			ref, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			c.value = uint64(kind)
			c.refs[0] = ref
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			first, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			second, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", i, err)
			}
			c.refs = [2]uint16{first, second}
		default:
			return nil, fmt.Errorf("constant %d: unknown tag %d", i, tag)
		}
		cp.entries[i] = c
		if tag == TagLong || tag == TagDouble {
			// Long and double constants take two slots.
			i++
		}
	}
	return cp, nil
}

// Len returns the constant_pool_count of the class.
func (cp *ConstantPool) Len() int {
	return len(cp.entries)
}

func (cp *ConstantPool) entry(index uint16, tags ...uint8) (constant, error) {
	if index == 0 || int(index) >= len(cp.entries) {
		return constant{}, fmt.Errorf("constant index %d out of range", index)
	}
	c := cp.entries[index]
	for _, tag := range tags {
		if c.tag == tag {
			return c, nil
		}
	}
	return constant{}, fmt.Errorf("constant %d has tag %d, want one of %v", index, c.tag, tags)
}

// Utf8 returns the string stored in a CONSTANT_Utf8 entry.
func (cp *ConstantPool) Utf8(index uint16) (string, error) {
	c, err := cp.entry(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.utf8, nil
}

// ClassName returns the internal (slash separated) name of a CONSTANT_Class entry.
func (cp *ConstantPool) ClassName(index uint16) (string, error) {
	c, err := cp.entry(index, TagClass)
	if err != nil {
		return "", err
	}
	return cp.Utf8(c.refs[0])
}

// NameAndType returns the name and descriptor of a CONSTANT_NameAndType entry.
func (cp *ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	c, err := cp.entry(index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = cp.Utf8(c.refs[0]); err != nil {
		return "", "", err
	}
	if descriptor, err = cp.Utf8(c.refs[1]); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// Member resolves a field, method or interface-method reference, or an
// invokedynamic call site (which has no owner).
func (cp *ConstantPool) Member(index uint16) (*MemberRef, error) {
	c, err := cp.entry(index, TagFieldref, TagMethodref, TagInterfaceMethodref, TagInvokeDynamic, TagDynamic)
	if err != nil {
		return nil, err
	}
	m := &MemberRef{Interface: c.tag == TagInterfaceMethodref}
	if c.tag != TagInvokeDynamic && c.tag != TagDynamic {
		if m.Owner, err = cp.ClassName(c.refs[0]); err != nil {
			return nil, fmt.Errorf("resolving owner of member %d: %w", index, err)
		}
	}
	if m.Name, m.Descriptor, err = cp.NameAndType(c.refs[1]); err != nil {
		return nil, fmt.Errorf("resolving name of member %d: %w", index, err)
	}
	return m, nil
}

// MemberRef is a resolved field or method operand. Owner is the internal class
// name and is empty for invokedynamic call sites.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

// String renders the reference as Owner.name:descriptor.
func (m *MemberRef) String() string {
	if m.Owner == "" {
		return m.Name + ":" + m.Descriptor
	}
	return m.Owner + "." + m.Name + ":" + m.Descriptor
}
