// Package analysis owns the per-run state shared by detectors: interned
// symbols, the hierarchy snapshot and the metadata and annotation caches.
package analysis

import (
	"github.com/sarang1991/findbugs/internal/symbol"
	"github.com/sarang1991/findbugs/pkg/classfile"
)

// MethodInfo describes a declared method of an application class.
type MethodInfo struct {
	Class  *classfile.Class
	Method *classfile.Method

	// Ref is the canonical reference of the method in the run's symbol table.
	Ref *symbol.MethodRef

	// IsSynthetic is set for compiler generated methods such as lambda
	// bodies and accessors.
	IsSynthetic bool

	// IsBridge is set for the generic bridge methods javac emits.
	IsBridge bool

	// HasBody is false for abstract and native methods.
	HasBody bool
}

// NewMethodInfo creates a MethodInfo for m declared by class.
func NewMethodInfo(class *classfile.Class, m *classfile.Method, symbols *symbol.Table) *MethodInfo {
	return &MethodInfo{
		Class:       class,
		Method:      m,
		Ref:         symbols.Declared(class, m),
		IsSynthetic: m.AccessFlags&classfile.AccSynthetic != 0,
		IsBridge:    m.AccessFlags&classfile.AccBridge != 0,
		HasBody:     m.HasBody(),
	}
}

// ShouldScan reports whether detectors should look at the method body.
// Bridge methods only forward their arguments and are skipped.
func (mi *MethodInfo) ShouldScan() bool {
	return mi.HasBody && !mi.IsBridge
}
