package findbugs

import (
	"testing"

	"github.com/sarang1991/findbugs/internal/annotation"
	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/classfile/classfiletest"
)

func checked(name, desc string) classfiletest.Method {
	return classfiletest.Method{
		Name:       name,
		Descriptor: desc,
		Annotations: []classfiletest.Annotation{{
			Type:      annotation.JSR305CheckReturnValue,
			Invisible: true,
		}},
	}
}

var library = classfiletest.Class{
	Name: "com.example.Library",
	Methods: []classfiletest.Method{
		checked("compute", "()I"),
		{Name: "plain", Descriptor: "()I"},
	},
}

// ignoring returns a class whose run method discards Library.compute.
func ignoring(name string, anns ...classfiletest.Annotation) classfiletest.Class {
	return classfiletest.Class{
		Name: name,
		Methods: []classfiletest.Method{{
			Name:        "run",
			Descriptor:  "(Lcom/example/Library;)V",
			Annotations: anns,
			FirstLine:   10,
			Code: []string{
				"aload_1",
				"invokevirtual com.example.Library.compute()I",
				"pop",
				"return",
			},
		}},
	}
}

func parseAll(t *testing.T, classes ...classfiletest.Class) []*classfile.Class {
	t.Helper()
	out := make([]*classfile.Class, 0, len(classes))
	for _, c := range classes {
		out = append(out, classfiletest.MustParse(t, c))
	}
	return out
}

// callsPlain returns a class whose run method discards the unannotated
// Library.plain.
func callsPlain(name string, anns ...classfiletest.Annotation) classfiletest.Class {
	c := ignoring(name, anns...)
	c.Methods[0].Code = []string{
		"aload_1",
		"invokevirtual com.example.Library.plain()I",
		"pop",
		"return",
	}
	return c
}
