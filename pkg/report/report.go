// Package report defines bug findings and the sinks that receive them.
package report

import (
	"cmp"
	"slices"
	"strconv"
	"sync"

	"github.com/sarang1991/findbugs/internal/symbol"
)

// Finding is one reported bug instance. Findings are values; a sink may keep
// them but nobody changes a finding after it has been reported.
type Finding struct {
	Pattern  string `json:"pattern"`
	Priority int    `json:"priority"`

	// Class and Method locate the code containing the bug.
	Class  string            `json:"class"`
	Method *symbol.MethodRef `json:"method"`

	// PC is the program counter of the offending instruction and Line its
	// source line, or 0 when the class has no line numbers.
	PC   int `json:"pc"`
	Line int `json:"line,omitempty"`

	// Called is the method whose result was discarded.
	Called *symbol.MethodRef `json:"called,omitempty"`
	Note   string            `json:"note,omitempty"`

	InstanceHash   string `json:"instance_hash,omitempty"`
	Suppressed     bool   `json:"suppressed,omitempty"`
	SuppressReason string `json:"suppress_reason,omitempty"`
}

func (f Finding) String() string {
	s := f.Pattern + " " + f.Class
	if f.Method != nil {
		s += "." + f.Method.Name + f.Method.Signature
	}
	s += " pc " + strconv.Itoa(f.PC)
	if f.Line > 0 {
		s += " line " + strconv.Itoa(f.Line)
	}
	if f.Called != nil {
		s += " calls " + f.Called.String()
	}
	return s + " priority " + strconv.Itoa(f.Priority)
}

// Sink receives findings. Implementations must be safe for concurrent use
// when shared between workers.
type Sink interface {
	Report(f Finding)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Finding)

func (fn SinkFunc) Report(f Finding) {
	fn(f)
}

// Collector accumulates findings from concurrent workers.
type Collector struct {
	mu       sync.Mutex
	findings []Finding
}

func (c *Collector) Report(f Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = append(c.findings, f)
}

// Findings returns a copy of everything reported so far.
func (c *Collector) Findings() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.findings)
}

// Len returns the number of findings reported.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.findings)
}

// Sort orders findings by class, method, pc and pattern.
func Sort(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.Class, b.Class),
			cmp.Compare(methodKey(a.Method), methodKey(b.Method)),
			cmp.Compare(a.PC, b.PC),
			cmp.Compare(a.Pattern, b.Pattern),
		)
	})
}

func methodKey(m *symbol.MethodRef) string {
	if m == nil {
		return ""
	}
	return m.Name + m.Signature
}
