package classfile

import (
	"fmt"
	"sort"
)

// Code is a decoded Code attribute.
type Code struct {
	MaxStack     int
	MaxLocals    int
	Bytes        []byte
	Instructions []Instruction

	// ExceptionTable holds the handler ranges in classfile order.
	ExceptionTable []ExceptionRange

	// Lines maps start PCs to source lines, sorted by PC.
	Lines []LineNumber
}

// ExceptionRange is one exception table entry. The protected range is the
// half-open interval [StartPC, EndPC). CatchType is the dotted name of the
// caught class, or "" for a catch-all handler.
type ExceptionRange struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType string
}

// Contains reports whether pc lies inside the protected range.
func (e ExceptionRange) Contains(pc int) bool {
	return e.StartPC <= pc && pc < e.EndPC
}

// Width returns the size of the protected range in bytes.
func (e ExceptionRange) Width() int {
	return e.EndPC - e.StartPC
}

// LineNumber is one LineNumberTable entry.
type LineNumber struct {
	StartPC int
	Line    int
}

// Instruction is one decoded instruction.
type Instruction struct {
	PC     int
	Opcode Opcode
	Length int

	// Operand holds the immediate operand of instructions that have a single
	// numeric one: local variable indexes, bipush/sipush values, branch
	// offsets and constant pool indexes of ldc.
	Operand int

	// Member is set for field access and invoke instructions.
	Member *MemberRef

	// Class is the internal class name operand of new, anewarray, checkcast,
	// instanceof and multianewarray.
	Class string
}

// LineAt returns the source line for pc, or 0 if the method has no line
// number information covering it.
func (c *Code) LineAt(pc int) int {
	i := sort.Search(len(c.Lines), func(i int) bool { return c.Lines[i].StartPC > pc })
	if i == 0 {
		return 0
	}
	return c.Lines[i-1].Line
}

func parseCode(data []byte, cp *ConstantPool) (*Code, error) {
	r := newReader(data)
	maxStack, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading max stack: %w", err)
	}
	maxLocals, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading max locals: %w", err)
	}
	codeLength, err := r.u4()
	if err != nil {
		return nil, fmt.Errorf("reading code length: %w", err)
	}
	bytecode, err := r.bytes(int(codeLength))
	if err != nil {
		return nil, fmt.Errorf("reading code: %w", err)
	}
	c := &Code{
		MaxStack:  int(maxStack),
		MaxLocals: int(maxLocals),
		Bytes:     bytecode,
	}

	tableLength, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading exception table length: %w", err)
	}
	for i := 0; i < int(tableLength); i++ {
		var fields [4]uint16
		for j := range fields {
			if fields[j], err = r.u2(); err != nil {
				return nil, fmt.Errorf("reading exception table entry %d: %w", i, err)
			}
		}
		e := ExceptionRange{
			StartPC:   int(fields[0]),
			EndPC:     int(fields[1]),
			HandlerPC: int(fields[2]),
		}
		if fields[3] != 0 {
			name, err := cp.ClassName(fields[3])
			if err != nil {
				return nil, fmt.Errorf("resolving catch type of entry %d: %w", i, err)
			}
			e.CatchType = DottedName(name)
		}
		c.ExceptionTable = append(c.ExceptionTable, e)
	}

	attrs, err := parseAttributes(r, cp)
	if err != nil {
		return nil, fmt.Errorf("reading code attributes: %w", err)
	}
	for _, attr := range attrs {
		if attr.name != "LineNumberTable" {
			continue
		}
		lines, err := parseLineNumbers(attr.info)
		if err != nil {
			return nil, fmt.Errorf("reading line numbers: %w", err)
		}
		c.Lines = append(c.Lines, lines...)
	}
	sort.SliceStable(c.Lines, func(i, j int) bool { return c.Lines[i].StartPC < c.Lines[j].StartPC })

	if c.Instructions, err = Decode(bytecode, cp); err != nil {
		return nil, err
	}
	return c, nil
}

func parseLineNumbers(data []byte) ([]LineNumber, error) {
	r := newReader(data)
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	lines := make([]LineNumber, 0, n)
	for i := 0; i < int(n); i++ {
		pc, err := r.u2()
		if err != nil {
			return nil, err
		}
		line, err := r.u2()
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineNumber{StartPC: int(pc), Line: int(line)})
	}
	return lines, nil
}

// Decode decodes a code array into instructions in PC order, resolving
// member and class operands through cp. cp may be nil, in which case
// reference operands are left unresolved.
func Decode(code []byte, cp *ConstantPool) ([]Instruction, error) {
	var out []Instruction
	r := newReader(code)
	for r.remaining() > 0 {
		pc := r.offset
		b, _ := r.u1()
		op := Opcode(b)
		insn := Instruction{PC: pc, Opcode: op}
		if err := decodeOperands(r, cp, &insn); err != nil {
			return nil, fmt.Errorf("decoding %s at pc %d: %w", op, pc, err)
		}
		insn.Length = r.offset - pc
		out = append(out, insn)
	}
	return out, nil
}

func decodeOperands(r *reader, cp *ConstantPool, insn *Instruction) error {
	op := insn.Opcode
	switch n := operandLength(op); {
	case n == -2:
		return fmt.Errorf("invalid opcode 0x%02x", uint8(op))
	case op == Tableswitch, op == Lookupswitch:
		return decodeSwitch(r, insn)
	case op == Wide:
		return decodeWide(r, insn)
	case op.HasMemberOperand():
		idx, err := r.u2()
		if err != nil {
			return err
		}
		if op == Invokeinterface || op == Invokedynamic {
			// count and zero bytes
			if err := r.skip(2); err != nil {
				return err
			}
		}
		insn.Operand = int(idx)
		if cp != nil {
			if insn.Member, err = cp.Member(idx); err != nil {
				return err
			}
		}
	case op.HasClassOperand():
		idx, err := r.u2()
		if err != nil {
			return err
		}
		if op == Multianewarray {
			if err := r.skip(1); err != nil {
				return err
			}
		}
		insn.Operand = int(idx)
		if cp != nil {
			name, err := cp.ClassName(idx)
			if err != nil {
				return err
			}
			insn.Class = name
		}
	case n == 1:
		v, err := r.u1()
		if err != nil {
			return err
		}
		if op == Bipush {
			insn.Operand = int(int8(v))
		} else {
			insn.Operand = int(v)
		}
	case n == 2:
		if op == Iinc {
			local, err := r.u1()
			if err != nil {
				return err
			}
			if _, err := r.u1(); err != nil {
				return err
			}
			insn.Operand = int(local)
			return nil
		}
		v, err := r.u2()
		if err != nil {
			return err
		}
		insn.Operand = int(int16(v))
		if op == 0x13 || op == 0x14 {
			// ldc_w and ldc2_w carry an unsigned pool index.
			insn.Operand = int(v)
		}
	case n == 4:
		v, err := r.s4()
		if err != nil {
			return err
		}
		insn.Operand = int(v)
	}
	return nil
}

// decodeSwitch skips the padding and jump table of tableswitch and
// lookupswitch. Padding aligns the operands to a multiple of four bytes
// from the start of the code array.
func decodeSwitch(r *reader, insn *Instruction) error {
	pad := (4 - (insn.PC+1)%4) % 4
	if err := r.skip(pad); err != nil {
		return err
	}
	def, err := r.s4()
	if err != nil {
		return err
	}
	insn.Operand = int(def)
	if insn.Opcode == Tableswitch {
		low, err := r.s4()
		if err != nil {
			return err
		}
		high, err := r.s4()
		if err != nil {
			return err
		}
		if high < low {
			return fmt.Errorf("tableswitch high %d below low %d", high, low)
		}
		return r.skip(int(int64(high)-int64(low)+1) * 4)
	}
	pairs, err := r.s4()
	if err != nil {
		return err
	}
	if pairs < 0 {
		return fmt.Errorf("negative lookupswitch pair count %d", pairs)
	}
	return r.skip(int(pairs) * 8)
}

func decodeWide(r *reader, insn *Instruction) error {
	b, err := r.u1()
	if err != nil {
		return err
	}
	inner := Opcode(b)
	local, err := r.u2()
	if err != nil {
		return err
	}
	insn.Operand = int(local)
	switch {
	case inner == Iinc:
		return r.skip(2)
	case inner >= Iload && inner <= Aload, inner >= Istore && inner <= Astore, inner == Ret:
		return nil
	}
	return fmt.Errorf("wide applied to %s", inner)
}
