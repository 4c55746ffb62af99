// Package annotation resolves check-return-value obligations for method
// references against an immutable class hierarchy snapshot.
package annotation

import (
	"strconv"
)

// Kind is the resolution outcome.
type Kind uint8

const (
	// Unset means nothing is known about the method.
	Unset Kind = iota
	// Check means the caller is expected to use the return value.
	Check
	// Ignore means discarding the return value is explicitly allowed.
	Ignore
)

func (k Kind) String() string {
	switch k {
	case Unset:
		return "unset"
	case Check:
		return "check"
	case Ignore:
		return "ignore"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Priorities attached to Check. Higher is more severe.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Annotation is a resolved obligation. It is a comparable value; two
// resolutions of the same reference against the same snapshot are equal.
type Annotation struct {
	Kind     Kind
	Priority int

	// Direct is true when the obligation is declared on the exact method
	// that was called rather than inherited from an ancestor.
	Direct bool
}

// CheckWith returns a Check annotation.
func CheckWith(priority int, direct bool) Annotation {
	return Annotation{Kind: Check, Priority: priority, Direct: direct}
}

// IgnoreValue is the Ignore annotation.
var IgnoreValue = Annotation{Kind: Ignore}

// IsCheck reports whether the annotation requires the value to be used.
func (a Annotation) IsCheck() bool {
	return a.Kind == Check
}

func (a Annotation) String() string {
	if a.Kind != Check {
		return a.Kind.String()
	}
	s := "check(" + strconv.Itoa(a.Priority)
	if a.Direct {
		s += ", direct"
	}
	return s + ")"
}
