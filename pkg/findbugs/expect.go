package findbugs

import (
	"fmt"
	"strings"

	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/report"
)

// Test annotations used by annotated regression classes.
const (
	ExpectWarningAnnotation = "fbtest.annotations.ExpectWarning"
	NoWarningAnnotation     = "fbtest.annotations.NoWarning"
)

// Expectation is a claim, carried by the class itself, about which findings a
// method (or a whole class, when Method is empty) should produce.
type Expectation struct {
	Class  string
	Method string // name + descriptor

	// Pattern is a bug pattern prefix; RV matches RV_RETURN_VALUE_IGNORED.
	Pattern string
	Want    bool
}

func (e Expectation) String() string {
	where := e.Class
	if e.Method != "" {
		where += "." + e.Method
	}
	verb := "no warning"
	if e.Want {
		verb = "warning"
	}
	return fmt.Sprintf("%s: expected %s %s", where, verb, e.Pattern)
}

// Expectations extracts the test annotations of classes and their methods.
func Expectations(classes []*classfile.Class) []Expectation {
	var out []Expectation
	for _, c := range classes {
		out = append(out, expectations(c.Annotations, c.Name, "")...)
		for _, m := range c.Methods {
			out = append(out, expectations(m.Annotations, c.Name, m.Name+m.Descriptor)...)
		}
	}
	return out
}

func expectations(anns []classfile.Annotation, class, method string) []Expectation {
	var out []Expectation
	for _, want := range []bool{true, false} {
		name := NoWarningAnnotation
		if want {
			name = ExpectWarningAnnotation
		}
		ann, ok := classfile.FindAnnotation(anns, name)
		if !ok {
			continue
		}
		v, _ := ann.Element("value")
		for _, p := range strings.Split(v.Const, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, Expectation{Class: class, Method: method, Pattern: p, Want: want})
			}
		}
	}
	return out
}

// Verify checks findings against expectations and returns one message per
// violated expectation. Suppressed findings do not count.
func Verify(expectations []Expectation, findings []report.Finding) []string {
	var failures []string
	for _, e := range expectations {
		got := 0
		for _, f := range findings {
			if f.Suppressed || f.Class != e.Class || !strings.HasPrefix(f.Pattern, e.Pattern) {
				continue
			}
			if e.Method != "" && (f.Method == nil || f.Method.Name+f.Method.Signature != e.Method) {
				continue
			}
			got++
		}
		if (got > 0) != e.Want {
			failures = append(failures, fmt.Sprintf("%s, got %d", e, got))
		}
	}
	return failures
}
