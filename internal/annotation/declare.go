package annotation

import (
	"github.com/sarang1991/findbugs/pkg/classfile"
)

// Annotation types understood in classfiles.
const (
	JSR305CheckReturnValue     = "javax.annotation.CheckReturnValue"
	FindBugsCheckReturnValue   = "edu.umd.cs.findbugs.annotations.CheckReturnValue"
	ErrorProneCheckReturnValue = "com.google.errorprone.annotations.CheckReturnValue"
	ErrorProneCanIgnore        = "com.google.errorprone.annotations.CanIgnoreReturnValue"
)

// fromAnnotations returns the obligation expressed by the first recognized
// annotation in anns, with Direct set.
func fromAnnotations(anns []classfile.Annotation) (Annotation, bool) {
	for i := range anns {
		ann := &anns[i]
		switch ann.ClassName() {
		case JSR305CheckReturnValue:
			if when, ok := ann.Element("when"); ok && when.EnumConst == "NEVER" {
				return IgnoreValue, true
			}
			return CheckWith(PriorityMedium, true), true
		case FindBugsCheckReturnValue:
			level, ok := ann.Element("priority")
			if !ok {
				level, ok = ann.Element("confidence")
			}
			if !ok {
				return CheckWith(PriorityMedium, true), true
			}
			switch level.EnumConst {
			case "IGNORE":
				return IgnoreValue, true
			case "HIGH":
				return CheckWith(PriorityHigh, true), true
			case "LOW":
				return CheckWith(PriorityLow, true), true
			}
			return CheckWith(PriorityMedium, true), true
		case ErrorProneCheckReturnValue:
			return CheckWith(PriorityMedium, true), true
		case ErrorProneCanIgnore:
			return IgnoreValue, true
		}
	}
	return Annotation{}, false
}

// declared returns the obligation class declares for the method name+sig.
// A class-level annotation covers every non-void method other than
// initializers that carries no annotation of its own.
func declared(class *classfile.Class, name, signature string) (Annotation, bool) {
	if class == nil {
		return Annotation{}, false
	}
	m, ok := class.Method(name, signature)
	if !ok {
		return Annotation{}, false
	}
	if a, ok := fromAnnotations(m.Annotations); ok {
		return a, true
	}
	if name == "<init>" || name == "<clinit>" || classfile.ReturnType(signature) == "V" {
		return Annotation{}, false
	}
	return fromAnnotations(class.Annotations)
}
