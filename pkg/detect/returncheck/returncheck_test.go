package returncheck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/internal/analysis"
	"github.com/sarang1991/findbugs/internal/annotation"
	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/classfile/classfiletest"
	"github.com/sarang1991/findbugs/pkg/detect"
	"github.com/sarang1991/findbugs/pkg/report"
)

func check(priority string) classfiletest.Annotation {
	return classfiletest.Annotation{
		Type:      annotation.FindBugsCheckReturnValue,
		Invisible: true,
		Enums: map[string]classfiletest.Enum{
			"priority": {Type: "edu.umd.cs.findbugs.annotations.Priority", Const: priority},
		},
	}
}

var foo = classfiletest.Class{
	Name: "com.example.Foo",
	Methods: []classfiletest.Method{
		{Name: "bar", Descriptor: "()I", Annotations: []classfiletest.Annotation{check("LOW")}},
		{Name: "make", Descriptor: "()I", Static: true, Annotations: []classfiletest.Annotation{check("LOW")}},
		{Name: "big", Descriptor: "()J", Static: true, Annotations: []classfiletest.Annotation{check("MEDIUM")}},
		{Name: "free", Descriptor: "()I"},
	},
}

func caller(methods ...classfiletest.Method) classfiletest.Class {
	return classfiletest.Class{Name: "com.example.Caller", Methods: methods}
}

// analyze runs the detector over the first class with all classes on the
// classpath.
func analyze(t *testing.T, classes ...classfiletest.Class) ([]report.Finding, int) {
	t.Helper()
	parsed := make([]*classfile.Class, 0, len(classes))
	for _, c := range classes {
		parsed = append(parsed, classfiletest.MustParse(t, c))
	}
	actx := analysis.NewContext(parsed, analysis.Options{})
	defer actx.Close()

	var sink report.Collector
	scanned := New().VisitClass(actx, parsed[0], &sink)
	return sink.Findings(), scanned
}

func TestUnguardedDirectCheck(t *testing.T) {
	findings, scanned := analyze(t, caller(classfiletest.Method{
		Name:       "run",
		Descriptor: "(Lcom/example/Foo;)V",
		FirstLine:  20,
		Code: []string{
			"aload_1",                              // 0
			"invokevirtual com.example.Foo.bar()I", // 1
			"pop",                                  // 4
			"return",                               // 5
		},
	}), foo)

	require.Equal(t, 1, scanned)
	require.Len(t, findings, 1)
	f := findings[0]
	require.Equal(t, Pattern, f.Pattern)
	require.Equal(t, 1, f.Priority)
	require.Equal(t, "com.example.Caller", f.Class)
	require.Equal(t, "run", f.Method.Name)
	require.Equal(t, "(Lcom/example/Foo;)V", f.Method.Signature)
	require.Equal(t, 4, f.PC)
	require.Equal(t, 21, f.Line)
	require.Equal(t, "com.example.Foo", f.Called.Owner)
	require.Equal(t, "bar", f.Called.Name)
	require.Equal(t, "()I", f.Called.Signature)
	require.False(t, f.Called.IsStatic)
	require.Equal(t, NoteMethodCalled, f.Note)
}

func TestTryWidth(t *testing.T) {
	code := []string{
		"aload_1",                              // 0
		"invokevirtual com.example.Foo.bar()I", // 1
		"pop",                                  // 4
		"nop",                                  // 5
		"return",                               // 6
	}
	tests := []struct {
		name     string
		try      []classfiletest.Try
		priority int
	}{
		{name: "width one", try: []classfiletest.Try{{Start: 4, End: 5, Handler: 6}}, priority: 3},
		{name: "width two", try: []classfiletest.Try{{Start: 4, End: 6, Handler: 6}}, priority: 2},
		{name: "wide", try: []classfiletest.Try{{Start: 0, End: 6, Handler: 6}}, priority: 1},
		{name: "discard at end pc", try: []classfiletest.Try{{Start: 1, End: 4, Handler: 6}}, priority: 1},
		{
			name: "narrowest wins",
			try: []classfiletest.Try{
				{Start: 0, End: 6, Handler: 6, Catch: "java.lang.Exception"},
				{Start: 4, End: 5, Handler: 6, Catch: "java.lang.RuntimeException"},
			},
			priority: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, _ := analyze(t, caller(classfiletest.Method{
				Name:       "run",
				Descriptor: "(Lcom/example/Foo;)V",
				Code:       code,
				Try:        tt.try,
			}), foo)
			require.Len(t, findings, 1)
			require.Equal(t, tt.priority, findings[0].Priority)
			require.Equal(t, 4, findings[0].PC)
		})
	}
}

func TestInheritedAnnotation(t *testing.T) {
	c := classfiletest.Class{
		Name:       "com.example.C",
		Interfaces: []string{"com.example.I"},
		Methods:    []classfiletest.Method{{Name: "method", Descriptor: "()Ljava/lang/String;"}},
	}
	i := classfiletest.Class{
		Name:      "com.example.I",
		Interface: true,
		Methods: []classfiletest.Method{{
			Name:        "method",
			Descriptor:  "()Ljava/lang/String;",
			Annotations: []classfiletest.Annotation{check("MEDIUM")},
		}},
	}
	findings, _ := analyze(t, caller(classfiletest.Method{
		Name:       "run",
		Descriptor: "(Lcom/example/C;)V",
		Code: []string{
			"aload_1",
			"invokevirtual com.example.C.method()Ljava/lang/String;",
			"pop",
			"return",
		},
	}), c, i)

	require.Len(t, findings, 1)
	require.Equal(t, 3, findings[0].Priority)
}

func TestInheritedBuilder(t *testing.T) {
	builder := classfiletest.Class{
		Name:  "com.example.Builder",
		Super: "com.example.BaseBuilder",
	}
	base := classfiletest.Class{
		Name: "com.example.BaseBuilder",
		Methods: []classfiletest.Method{{
			Name:        "with",
			Descriptor:  "(I)Lcom/example/Builder;",
			Annotations: []classfiletest.Annotation{check("MEDIUM")},
		}},
	}
	findings, _ := analyze(t, caller(classfiletest.Method{
		Name:       "run",
		Descriptor: "(Lcom/example/Builder;)V",
		Code: []string{
			"aload_1",
			"iconst_1",
			"invokevirtual com.example.Builder.with(I)Lcom/example/Builder;",
			"pop",
			"return",
		},
	}), builder, base)

	require.Len(t, findings, 1)
	require.Equal(t, 2, findings[0].Priority)
}

func TestNoFinding(t *testing.T) {
	tests := []struct {
		name string
		code []string
	}{
		{
			name: "intervening dup",
			code: []string{"invokestatic com.example.Foo.make()I", "dup", "pop", "istore_1", "return"},
		},
		{
			name: "result stored",
			code: []string{"invokestatic com.example.Foo.make()I", "istore_1", "aload_0", "pop", "return"},
		},
		{
			name: "unannotated callee",
			code: []string{"aload_1", "invokevirtual com.example.Foo.free()I", "pop", "return"},
		},
		{
			name: "unknown callee",
			code: []string{"invokestatic com.example.Elsewhere.compute()I", "pop", "return"},
		},
		{
			name: "pop before call",
			code: []string{"aload_1", "pop", "invokestatic com.example.Foo.make()I", "istore_1", "return"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, _ := analyze(t, caller(classfiletest.Method{
				Name:       "run",
				Descriptor: "(Lcom/example/Foo;)V",
				Code:       tt.code,
			}), foo)
			require.Empty(t, findings)
		})
	}
}

func TestLastCallWins(t *testing.T) {
	findings, _ := analyze(t, caller(classfiletest.Method{
		Name:       "run",
		Descriptor: "()V",
		Static:     true,
		Code: []string{
			"invokestatic com.example.Foo.make()I", // 0
			"invokestatic com.example.Foo.big()J",  // 3
			"pop2",                                 // 6
			"pop",                                  // 7
			"return",                               // 8
		},
	}), foo)

	require.Len(t, findings, 1)
	require.Equal(t, 6, findings[0].PC)
	require.Equal(t, "big", findings[0].Called.Name)
	require.True(t, findings[0].Called.IsStatic)
	require.Equal(t, 2, findings[0].Priority)
}

func TestPrescreen(t *testing.T) {
	tests := []struct {
		name    string
		code    []string
		scanned int
	}{
		{name: "no discard", code: []string{"invokestatic com.example.Foo.make()I", "istore_0", "return"}},
		{name: "no invoke", code: []string{"iconst_1", "pop", "return"}},
		{name: "both", code: []string{"invokestatic com.example.Foo.make()I", "pop", "return"}, scanned: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, scanned := analyze(t, caller(
				classfiletest.Method{Name: "run", Descriptor: "()V", Static: true, Code: tt.code},
				classfiletest.Method{Name: "abstract", Descriptor: "()I"},
			), foo)
			require.Equal(t, tt.scanned, scanned)
			require.Len(t, findings, tt.scanned)
		})
	}
}

func TestIdempotent(t *testing.T) {
	classes := []classfiletest.Class{
		caller(
			classfiletest.Method{
				Name:       "a",
				Descriptor: "(Lcom/example/Foo;)V",
				Code:       []string{"aload_1", "invokevirtual com.example.Foo.bar()I", "pop", "return"},
			},
			classfiletest.Method{
				Name:       "b",
				Descriptor: "()V",
				Static:     true,
				Code:       []string{"invokestatic com.example.Foo.big()J", "pop2", "return"},
			},
		),
		foo,
	}
	first, _ := analyze(t, classes...)
	second, _ := analyze(t, classes...)

	require.Len(t, first, 2)
	require.Equal(t, findingKeys(first), findingKeys(second))
}

func findingKeys(findings []report.Finding) []string {
	keys := make([]string, 0, len(findings))
	for _, f := range findings {
		keys = append(keys, f.String())
	}
	return keys
}

func TestRegistered(t *testing.T) {
	require.Contains(t, detect.Names(), Name)
	detectors, err := detect.New(Name)
	require.NoError(t, err)
	require.Len(t, detectors, 1)
	require.Equal(t, []string{Pattern}, detectors[0].Patterns())

	_, err = detect.New("NoSuchDetector")
	require.Error(t, err)
}
