// Package scan replays a method's instructions in program counter order
// through a caller supplied handler.
package scan

import (
	"github.com/sarang1991/findbugs/pkg/classfile"
)

// Handler is called once per instruction with the caller owned state.
type Handler[S any] func(state *S, insn classfile.Instruction)

// Run calls h for every instruction of code in order. code must be sorted by
// PC, as classfile.Decode produces it. Run never reorders, retries or
// reenters h.
func Run[S any](code []classfile.Instruction, state *S, h Handler[S]) {
	for _, insn := range code {
		h(state, insn)
	}
}

// Prescreen decides from a method's opcode set whether scanning it can
// possibly produce a result.
type Prescreen func(ops classfile.OpcodeSet) bool

// RequireAll returns a prescreen that passes when the opcode set intersects
// every one of the given families.
func RequireAll(families ...classfile.OpcodeSet) Prescreen {
	return func(ops classfile.OpcodeSet) bool {
		for _, f := range families {
			if !ops.Intersects(f) {
				return false
			}
		}
		return true
	}
}

// Method runs h over the body of m when it has one and ops passes the
// prescreen. It reports whether the method was scanned.
func Method[S any](m *classfile.Method, ops classfile.OpcodeSet, pass Prescreen, state *S, h Handler[S]) bool {
	if !m.HasBody() || ops.Empty() {
		return false
	}
	if pass != nil && !pass(ops) {
		return false
	}
	Run(m.Code.Instructions, state, h)
	return true
}
