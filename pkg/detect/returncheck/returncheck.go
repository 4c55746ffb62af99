// Package returncheck finds calls whose return value is popped straight
// off the operand stack although the callee requires it to be checked.
package returncheck

import (
	"log/slog"

	"github.com/sarang1991/findbugs/internal/analysis"
	"github.com/sarang1991/findbugs/internal/scan"
	"github.com/sarang1991/findbugs/internal/symbol"
	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/detect"
	"github.com/sarang1991/findbugs/pkg/report"
)

const (
	// Name is the registry name of the detector.
	Name = "MethodReturnCheck"

	// Pattern is the bug pattern code of the findings.
	Pattern = "RV_RETURN_VALUE_IGNORED"

	// NoteMethodCalled describes the Called method of a finding.
	NoteMethodCalled = "METHOD_CALLED"
)

func init() {
	detect.Register(Name, func() detect.Detector { return New() })
}

// prescreen passes methods that contain both a pop and an invoke; no
// other method can hold a discarded call.
var prescreen = scan.RequireAll(classfile.DiscardOpcodes, classfile.InvokeOpcodes)

// Detector is the return value check. It holds no mutable state and is safe
// for concurrent use.
type Detector struct{}

func New() *Detector {
	return &Detector{}
}

func (d *Detector) Name() string {
	return Name
}

func (d *Detector) Patterns() []string {
	return []string{Pattern}
}

// VisitClass scans every method of class that passes the prescreen.
func (d *Detector) VisitClass(actx *analysis.Context, class *classfile.Class, sink report.Sink) int {
	scanned := 0
	for _, mi := range actx.Methods(class) {
		if !mi.ShouldScan() {
			continue
		}
		ops := actx.Metadata.OpcodeSet(class, mi.Method)
		var state ScanState
		ok := scan.Method(mi.Method, ops, prescreen, &state, func(s *ScanState, insn classfile.Instruction) {
			var call *symbol.MethodRef
			if insn.Opcode.IsInvoke() {
				call = actx.Symbols.Invoked(insn)
			}
			next, discard := Transition(*s, insn.Opcode, insn.PC, call)
			*s = next
			if discard != nil {
				d.discarded(actx, mi, discard, sink)
			}
		})
		if ok {
			scanned++
			slog.Debug("scanned method", slog.String("method", mi.Ref.String()))
		}
	}
	return scanned
}

func (d *Detector) discarded(actx *analysis.Context, mi *analysis.MethodInfo, discard *Discard, sink report.Sink) {
	a := actx.Annotations.Resolve(discard.Call)
	if !a.IsCheck() {
		return
	}
	tryRange, guarded := actx.Metadata.NarrowestEnclosingTry(mi.Class, mi.Method, discard.PC)
	priority := Score(a, tryRange, guarded, discard.Call)
	slog.Debug("discarded return value",
		slog.String("method", mi.Ref.String()),
		slog.Int("pc", discard.PC),
		slog.String("called", discard.Call.String()),
		slog.String("annotation", a.String()),
		slog.Bool("guarded", guarded),
		slog.Int("priority", priority))

	sink.Report(report.Finding{
		Pattern:  Pattern,
		Priority: priority,
		Class:    mi.Class.Name,
		Method:   mi.Ref,
		PC:       discard.PC,
		Line:     mi.Method.Code.LineAt(discard.CallPC),
		Called:   discard.Call,
		Note:     NoteMethodCalled,
	})
}
