package classfile

import (
	"math/bits"
	"strconv"
)

// Opcode is a JVM instruction opcode.
type Opcode uint8

// Opcodes referenced by name outside the decoder.
const (
	Nop             Opcode = 0x00
	AconstNull      Opcode = 0x01
	Iconst0         Opcode = 0x03
	Iconst1         Opcode = 0x04
	Bipush          Opcode = 0x10
	Sipush          Opcode = 0x11
	Ldc             Opcode = 0x12
	Iload           Opcode = 0x15
	Aload           Opcode = 0x19
	Aload0          Opcode = 0x2a
	Istore          Opcode = 0x36
	Astore          Opcode = 0x3a
	Pop             Opcode = 0x57
	Pop2            Opcode = 0x58
	Dup             Opcode = 0x59
	Iinc            Opcode = 0x84
	Ifeq            Opcode = 0x99
	Goto            Opcode = 0xa7
	Ret             Opcode = 0xa9
	Tableswitch     Opcode = 0xaa
	Lookupswitch    Opcode = 0xab
	Ireturn         Opcode = 0xac
	Areturn         Opcode = 0xb0
	Return          Opcode = 0xb1
	Getstatic       Opcode = 0xb2
	Putstatic       Opcode = 0xb3
	Getfield        Opcode = 0xb4
	Putfield        Opcode = 0xb5
	Invokevirtual   Opcode = 0xb6
	Invokespecial   Opcode = 0xb7
	Invokestatic    Opcode = 0xb8
	Invokeinterface Opcode = 0xb9
	Invokedynamic   Opcode = 0xba
	New             Opcode = 0xbb
	Newarray        Opcode = 0xbc
	Anewarray       Opcode = 0xbd
	Athrow          Opcode = 0xbf
	Checkcast       Opcode = 0xc0
	Instanceof      Opcode = 0xc1
	Wide            Opcode = 0xc4
	Multianewarray  Opcode = 0xc5
	Ifnull          Opcode = 0xc6
	GotoW           Opcode = 0xc8
	JsrW            Opcode = 0xc9
)

var opcodeNames = [...]string{
	// 0x00
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4",
	"iconst_5", "lconst_0", "lconst_1", "fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1",
	// 0x10
	"bipush", "sipush", "ldc", "ldc_w", "ldc2_w", "iload", "lload", "fload",
	"dload", "aload", "iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1",
	// 0x20
	"lload_2", "lload_3", "fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1",
	"dload_2", "dload_3", "aload_0", "aload_1", "aload_2", "aload_3", "iaload", "laload",
	// 0x30
	"faload", "daload", "aaload", "baload", "caload", "saload", "istore", "lstore",
	"fstore", "dstore", "astore", "istore_0", "istore_1", "istore_2", "istore_3", "lstore_0",
	// 0x40
	"lstore_1", "lstore_2", "lstore_3", "fstore_0", "fstore_1", "fstore_2", "fstore_3", "dstore_0",
	"dstore_1", "dstore_2", "dstore_3", "astore_0", "astore_1", "astore_2", "astore_3", "iastore",
	// 0x50
	"lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore", "pop",
	"pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	// 0x60
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	// 0x70
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land",
	// 0x80
	"ior", "lor", "ixor", "lxor", "iinc", "i2l", "i2f", "i2d",
	"l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l",
	// 0x90
	"d2f", "i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl",
	"dcmpg", "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle", "if_icmpeq",
	// 0xa0
	"if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne", "goto",
	"jsr", "ret", "tableswitch", "lookupswitch", "ireturn", "lreturn", "freturn", "dreturn",
	// 0xb0
	"areturn", "return", "getstatic", "putstatic", "getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new", "newarray", "anewarray", "arraylength", "athrow",
	// 0xc0
	"checkcast", "instanceof", "monitorenter", "monitorexit", "wide", "multianewarray", "ifnull", "ifnonnull",
	"goto_w", "jsr_w",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for i, name := range opcodeNames {
		m[name] = Opcode(i)
	}
	return m
}()

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "opcode_0x" + strconv.FormatUint(uint64(op), 16)
}

// Valid reports whether op is a defined JVM opcode.
func (op Opcode) Valid() bool {
	return int(op) < len(opcodeNames)
}

// LookupOpcode returns the opcode for a mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// IsInvoke reports whether op belongs to the invoke family that can produce a
// discardable result. invokedynamic is excluded.
func (op Opcode) IsInvoke() bool {
	return InvokeOpcodes.Has(op)
}

// IsDiscard reports whether op only pops one or two stack slots.
func (op Opcode) IsDiscard() bool {
	return op == Pop || op == Pop2
}

// HasMemberOperand reports whether op references a field or method through
// the constant pool.
func (op Opcode) HasMemberOperand() bool {
	return op >= Getstatic && op <= Invokedynamic
}

// HasClassOperand reports whether op references a class through the
// constant pool.
func (op Opcode) HasClassOperand() bool {
	switch op {
	case New, Anewarray, Checkcast, Instanceof, Multianewarray:
		return true
	}
	return false
}

// operandLength returns the number of operand bytes that follow op, or -1
// for the variable-length instructions (tableswitch, lookupswitch, wide).
func operandLength(op Opcode) int {
	switch {
	case op <= 0x0f:
		return 0
	case op == Bipush, op == Ldc:
		return 1
	case op == Sipush, op == 0x13, op == 0x14:
		return 2
	case op >= Iload && op <= Aload:
		return 1
	case op >= 0x1a && op <= 0x35:
		return 0
	case op >= Istore && op <= Astore:
		return 1
	case op >= 0x3b && op <= 0x83:
		return 0
	case op == Iinc:
		return 2
	case op >= 0x85 && op <= 0x98:
		return 0
	case op >= Ifeq && op <= 0xa8:
		return 2
	case op == Ret:
		return 1
	case op == Tableswitch, op == Lookupswitch, op == Wide:
		return -1
	case op >= Ireturn && op <= Return:
		return 0
	case op >= Getstatic && op <= Invokestatic:
		return 2
	case op == Invokeinterface, op == Invokedynamic:
		return 4
	case op == New, op == Anewarray, op == Checkcast, op == Instanceof:
		return 2
	case op == Newarray:
		return 1
	case op == 0xbe, op == Athrow, op == 0xc2, op == 0xc3:
		return 0
	case op == Multianewarray:
		return 3
	case op == Ifnull, op == 0xc7:
		return 2
	case op == GotoW, op == JsrW:
		return 4
	}
	return -2
}

// OpcodeSet is an exact set of opcodes.
type OpcodeSet [4]uint64

// Opcode families used for prescreening.
var (
	DiscardOpcodes = NewOpcodeSet(Pop, Pop2)
	InvokeOpcodes  = NewOpcodeSet(Invokeinterface, Invokespecial, Invokestatic, Invokevirtual)
)

// NewOpcodeSet returns a set holding ops.
func NewOpcodeSet(ops ...Opcode) OpcodeSet {
	var s OpcodeSet
	for _, op := range ops {
		s.Add(op)
	}
	return s
}

// Add inserts op.
func (s *OpcodeSet) Add(op Opcode) {
	s[op>>6] |= 1 << (op & 63)
}

// Has reports whether op is in the set.
func (s OpcodeSet) Has(op Opcode) bool {
	return s[op>>6]&(1<<(op&63)) != 0
}

// Intersects reports whether s and other share at least one opcode.
func (s OpcodeSet) Intersects(other OpcodeSet) bool {
	for i := range s {
		if s[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

// Len returns the number of opcodes in the set.
func (s OpcodeSet) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether the set has no opcodes.
func (s OpcodeSet) Empty() bool {
	return s == OpcodeSet{}
}
