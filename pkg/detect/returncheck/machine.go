package returncheck

import (
	"github.com/sarang1991/findbugs/internal/annotation"
	"github.com/sarang1991/findbugs/internal/symbol"
	"github.com/sarang1991/findbugs/pkg/classfile"
)

// Machine is the state of the return check automaton.
type Machine uint8

const (
	// Scan waits for an invocation.
	Scan Machine = iota
	// SawInvoke holds a call whose result has not been consumed yet.
	SawInvoke
)

func (m Machine) String() string {
	if m == SawInvoke {
		return "saw-invoke"
	}
	return "scan"
}

// ScanState is the per-method state threaded through the scanner.
type ScanState struct {
	Machine   Machine
	Pending   *symbol.MethodRef
	PendingPC int
}

// Discard is a call whose result was popped by the very next instruction.
type Discard struct {
	Call   *symbol.MethodRef
	CallPC int

	// PC is the program counter of the pop or pop2.
	PC int
}

// Transition advances s over the instruction op at pc. call is the resolved
// target when op is an invoke, nil otherwise. A non-nil Discard is returned
// when op pops the result of the pending call.
//
//	Scan,      invoke      -> SawInvoke (pending = call)
//	Scan,      other       -> Scan
//	SawInvoke, pop/pop2    -> Scan, discard of pending
//	SawInvoke, invoke      -> SawInvoke (pending = call)
//	SawInvoke, other       -> Scan
//
// An invoke whose target could not be resolved behaves like any other
// instruction.
func Transition(s ScanState, op classfile.Opcode, pc int, call *symbol.MethodRef) (ScanState, *Discard) {
	switch {
	case s.Machine == SawInvoke && op.IsDiscard():
		return ScanState{}, &Discard{Call: s.Pending, CallPC: s.PendingPC, PC: pc}
	case op.IsInvoke() && call != nil:
		return ScanState{Machine: SawInvoke, Pending: call, PendingPC: pc}, nil
	default:
		return ScanState{}, nil
	}
}

// Score computes the priority of a discarded call. guarded reports whether a
// try block encloses the discard and tryRange is the narrowest one.
//
// A try block no wider than one byte adds two, no wider than two bytes adds
// one; an unguarded discard adds nothing. An inherited obligation adds one
// more unless the callee returns its own class, as builders do.
func Score(a annotation.Annotation, tryRange classfile.ExceptionRange, guarded bool, call *symbol.MethodRef) int {
	priority := a.Priority
	if guarded {
		switch w := tryRange.Width(); {
		case w <= 1:
			priority += 2
		case w <= 2:
			priority++
		}
	}
	if !a.Direct && !call.ReturnsOwner() {
		priority++
	}
	return priority
}
