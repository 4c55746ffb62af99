package scan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/pkg/classfile"
)

func TestRunOrder(t *testing.T) {
	code := []classfile.Instruction{
		{PC: 0, Opcode: classfile.Aload0},
		{PC: 1, Opcode: classfile.Invokevirtual},
		{PC: 4, Opcode: classfile.Pop},
		{PC: 5, Opcode: classfile.Return},
	}

	var seen []int
	Run(code, &seen, func(state *[]int, insn classfile.Instruction) {
		*state = append(*state, insn.PC)
	})
	require.Equal(t, []int{0, 1, 4, 5}, seen)
}

func TestRunEmpty(t *testing.T) {
	calls := 0
	Run(nil, &calls, func(state *int, _ classfile.Instruction) { *state++ })
	require.Zero(t, calls)
}

func TestMethodPrescreen(t *testing.T) {
	body := &classfile.Method{
		Name:       "f",
		Descriptor: "()V",
		Code: &classfile.Code{Instructions: []classfile.Instruction{
			{PC: 0, Opcode: classfile.Invokestatic},
			{PC: 3, Opcode: classfile.Pop},
			{PC: 4, Opcode: classfile.Return},
		}},
	}
	ops := classfile.NewOpcodeSet(classfile.Invokestatic, classfile.Pop, classfile.Return)
	pass := RequireAll(classfile.DiscardOpcodes, classfile.InvokeOpcodes)

	tests := []struct {
		name    string
		method  *classfile.Method
		ops     classfile.OpcodeSet
		pass    Prescreen
		scanned bool
	}{
		{name: "passes", method: body, ops: ops, pass: pass, scanned: true},
		{name: "no prescreen", method: body, ops: ops, scanned: true},
		{name: "no discard", method: body, ops: classfile.NewOpcodeSet(classfile.Invokestatic, classfile.Return), pass: pass},
		{name: "no invoke", method: body, ops: classfile.NewOpcodeSet(classfile.Pop, classfile.Return), pass: pass},
		{name: "abstract", method: &classfile.Method{Name: "g", Descriptor: "()I"}, pass: pass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			scanned := Method(tt.method, tt.ops, tt.pass, &calls, func(state *int, _ classfile.Instruction) { *state++ })
			require.Equal(t, tt.scanned, scanned)
			if tt.scanned {
				require.Equal(t, 3, calls)
			} else {
				require.Zero(t, calls)
			}
		})
	}
}
