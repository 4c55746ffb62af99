// Package metadata caches per-method facts derived from parsed classfiles:
// the exact set of opcodes in a body and its exception table geometry.
package metadata

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/sarang1991/findbugs/internal/symbol"
	"github.com/sarang1991/findbugs/pkg/classfile"
)

type entry struct {
	opcodes classfile.OpcodeSet
	tries   []classfile.ExceptionRange
}

var empty = &entry{}

// Cache memoizes method metadata by canonical method reference. Concurrent
// first computations of the same method may both run; the first stored
// value wins and both callers observe it.
type Cache struct {
	symbols *symbol.Table
	methods *xsync.Map[*symbol.MethodRef, *entry]
}

func NewCache(symbols *symbol.Table) *Cache {
	return &Cache{
		symbols: symbols,
		methods: xsync.NewMap[*symbol.MethodRef, *entry](),
	}
}

func (c *Cache) lookup(class *classfile.Class, m *classfile.Method) *entry {
	ref := c.symbols.Declared(class, m)
	if e, ok := c.methods.Load(ref); ok {
		return e
	}
	e := build(m)
	actual, _ := c.methods.LoadOrStore(ref, e)
	return actual
}

func build(m *classfile.Method) *entry {
	if !m.HasBody() {
		return empty
	}
	e := &entry{tries: m.Code.ExceptionTable}
	for _, insn := range m.Code.Instructions {
		e.opcodes.Add(insn.Opcode)
	}
	return e
}

// OpcodeSet returns the exact set of opcodes occurring in the body of m.
// Abstract and native methods yield an empty set.
func (c *Cache) OpcodeSet(class *classfile.Class, m *classfile.Method) classfile.OpcodeSet {
	return c.lookup(class, m).opcodes
}

// NarrowestEnclosingTry returns the smallest exception table entry whose
// protected range contains pc. Ranges are half-open, so a pc equal to EndPC
// is outside. Among entries of equal width the first in table order wins.
func (c *Cache) NarrowestEnclosingTry(class *classfile.Class, m *classfile.Method, pc int) (classfile.ExceptionRange, bool) {
	var (
		best  classfile.ExceptionRange
		found bool
	)
	for _, r := range c.lookup(class, m).tries {
		if !r.Contains(pc) {
			continue
		}
		if !found || r.Width() < best.Width() {
			best, found = r, true
		}
	}
	return best, found
}

// Len returns the number of cached methods.
func (c *Cache) Len() int {
	return c.methods.Size()
}

// Clear drops all cached entries.
func (c *Cache) Clear() {
	c.methods.Clear()
}
