package findbugs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/pkg/classfile/classfiletest"
)

func expect(want bool, pattern string) classfiletest.Annotation {
	typ := NoWarningAnnotation
	if want {
		typ = ExpectWarningAnnotation
	}
	return classfiletest.Annotation{Type: typ, Strings: map[string]string{"value": pattern}}
}

func TestExpectations(t *testing.T) {
	c := ignoring("com.example.A", expect(true, "RV, NP"))
	c.Annotations = []classfiletest.Annotation{expect(false, "DM")}
	got := Expectations(parseAll(t, c))
	require.Equal(t, []Expectation{
		{Class: "com.example.A", Pattern: "DM"},
		{Class: "com.example.A", Method: "run(Lcom/example/Library;)V", Pattern: "RV", Want: true},
		{Class: "com.example.A", Method: "run(Lcom/example/Library;)V", Pattern: "NP", Want: true},
	}, got)
}

func TestVerify(t *testing.T) {
	aux := parseAll(t, library)
	tests := []struct {
		name     string
		class    classfiletest.Class
		failures int
	}{
		{name: "expected and found", class: ignoring("com.example.A", expect(true, "RV"))},
		{name: "unexpected", class: ignoring("com.example.A", expect(false, "RV")), failures: 1},
		{name: "other pattern", class: ignoring("com.example.A", expect(false, "NP"))},
		{name: "expected but absent", class: callsPlain("com.example.A", expect(true, "RV")), failures: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := parseAll(t, tt.class)
			result, err := NewAnalyzer(AnalyzerOptions{}).Analyze(t.Context(), app, aux)
			require.NoError(t, err)
			require.Len(t, Verify(Expectations(app), result.Findings), tt.failures)
		})
	}
}
