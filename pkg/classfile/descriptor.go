package classfile

import "strings"

// DottedName converts an internal class name (java/lang/String) to its
// dotted form (java.lang.String).
func DottedName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// SlashedName converts a dotted class name to its internal form.
func SlashedName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}

// ReturnType returns the return descriptor of a method descriptor, e.g. "I"
// for "(Ljava/lang/String;)I". It returns "" for malformed descriptors.
func ReturnType(methodDescriptor string) string {
	i := strings.LastIndexByte(methodDescriptor, ')')
	if i < 0 {
		return ""
	}
	return methodDescriptor[i+1:]
}

// ClassFromDescriptor returns the internal class name of an object field
// descriptor ("Lpkg/Name;" -> "pkg/Name"), or desc unchanged otherwise.
func ClassFromDescriptor(desc string) string {
	if len(desc) >= 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return desc[1 : len(desc)-1]
	}
	return desc
}

// ArgSlots returns the number of local-variable slots taken by the arguments
// of a method descriptor, not counting the receiver.
func ArgSlots(methodDescriptor string) int {
	if len(methodDescriptor) == 0 || methodDescriptor[0] != '(' {
		return 0
	}
	slots := 0
	for i := 1; i < len(methodDescriptor) && methodDescriptor[i] != ')'; i++ {
		switch methodDescriptor[i] {
		case 'J', 'D':
			slots += 2
		case 'L':
			slots++
			for i < len(methodDescriptor) && methodDescriptor[i] != ';' {
				i++
			}
		case '[':
			slots++
			for i < len(methodDescriptor) && methodDescriptor[i] == '[' {
				i++
			}
			if i < len(methodDescriptor) && methodDescriptor[i] == 'L' {
				for i < len(methodDescriptor) && methodDescriptor[i] != ';' {
					i++
				}
			}
		default:
			slots++
		}
	}
	return slots
}
