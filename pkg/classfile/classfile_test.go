package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/classfile/classfiletest"
)

func TestParseClassHeader(t *testing.T) {
	c := classfiletest.MustParse(t, classfiletest.Class{
		Name:       "com.example.Widget",
		Super:      "com.example.Base",
		Interfaces: []string{"com.example.Shape", "java.io.Serializable"},
		Fields: []classfiletest.Field{
			{Name: "COUNT", Descriptor: "I", Static: true},
			{Name: "name", Descriptor: "Ljava/lang/String;"},
		},
		Methods: []classfiletest.Method{
			{Name: "area", Descriptor: "()D"},
			{Name: "load", Descriptor: "(J)V", Native: true, Static: true},
		},
	})

	require.Equal(t, 52, c.MajorVersion)
	require.Equal(t, "com.example.Widget", c.Name)
	require.Equal(t, "com.example.Base", c.Super)
	require.Equal(t, []string{"com.example.Shape", "java.io.Serializable"}, c.Interfaces)
	require.False(t, c.IsInterface())

	require.Len(t, c.Fields, 2)
	require.True(t, c.Fields[0].IsStatic())
	require.False(t, c.Fields[1].IsStatic())

	area, ok := c.Method("area", "()D")
	require.True(t, ok)
	require.False(t, area.HasBody())
	require.Nil(t, area.Code)

	load, ok := c.Method("load", "(J)V")
	require.True(t, ok)
	require.True(t, load.IsStatic())
	require.Zero(t, load.AccessFlags&classfile.AccAbstract)
	require.NotZero(t, load.AccessFlags&classfile.AccNative)

	_, ok = c.Method("area", "()I")
	require.False(t, ok)
}

func TestParseInterface(t *testing.T) {
	c := classfiletest.MustParse(t, classfiletest.Class{
		Name:       "com.example.Shape",
		Interface:  true,
		Interfaces: []string{"java.lang.Comparable"},
	})
	require.True(t, c.IsInterface())
	require.Equal(t, "java.lang.Object", c.Super)
}

func TestParseObjectHasNoSuper(t *testing.T) {
	c := classfiletest.MustParse(t, classfiletest.Class{Name: "java.lang.Object"})
	require.Empty(t, c.Super)
}

func TestParseCode(t *testing.T) {
	c := classfiletest.MustParse(t, classfiletest.Class{
		Name: "com.example.Caller",
		Methods: []classfiletest.Method{{
			Name:       "run",
			Descriptor: "(Ljava/util/List;)V",
			FirstLine:  10,
			Code: []string{
				"aload_0",                              // 0
				"invokevirtual com.example.Foo.bar()I", // 1
				"pop",                                  // 4
				"aload_1",                              // 5
				"ldc \"x\"",                            // 6
				"invokeinterface java.util.List.add(Ljava/lang/Object;)Z", // 8
				"pop", // 13
				"getstatic java.lang.System.out:Ljava/io/PrintStream;", // 14
				"checkcast java.io.PrintStream",                        // 17
				"bipush -3",                                            // 20
				"iinc 2 -1",                                            // 22
				"goto -22",                                             // 25
				"return",                                               // 28
			},
			Try: []classfiletest.Try{
				{Start: 1, End: 5, Handler: 28, Catch: "java.io.IOException"},
				{Start: 0, End: 14, Handler: 28},
			},
		}},
	})

	m, ok := c.Method("run", "(Ljava/util/List;)V")
	require.True(t, ok)
	require.True(t, m.HasBody())

	var pcs []int
	for _, insn := range m.Code.Instructions {
		pcs = append(pcs, insn.PC)
	}
	require.Equal(t, []int{0, 1, 4, 5, 6, 8, 13, 14, 17, 20, 22, 25, 28}, pcs)

	insns := m.Code.Instructions
	require.Equal(t, classfile.Invokevirtual, insns[1].Opcode)
	require.Equal(t, &classfile.MemberRef{Owner: "com/example/Foo", Name: "bar", Descriptor: "()I"}, insns[1].Member)
	require.Equal(t, classfile.Pop, insns[2].Opcode)

	require.Equal(t, classfile.Invokeinterface, insns[5].Opcode)
	require.Equal(t, 5, insns[5].Length)
	require.True(t, insns[5].Member.Interface)
	require.Equal(t, "java/util/List", insns[5].Member.Owner)

	require.Equal(t, classfile.Getstatic, insns[7].Opcode)
	require.Equal(t, "out", insns[7].Member.Name)
	require.Equal(t, "java/io/PrintStream", insns[8].Class)
	require.Equal(t, -3, insns[9].Operand)
	require.Equal(t, 2, insns[10].Operand)
	require.Equal(t, -22, insns[11].Operand)

	require.Equal(t, []classfile.ExceptionRange{
		{StartPC: 1, EndPC: 5, HandlerPC: 28, CatchType: "java.io.IOException"},
		{StartPC: 0, EndPC: 14, HandlerPC: 28},
	}, m.Code.ExceptionTable)

	require.Equal(t, 10, m.Code.LineAt(0))
	require.Equal(t, 12, m.Code.LineAt(4))
	require.Equal(t, 15, m.Code.LineAt(9))
	require.Equal(t, 22, m.Code.LineAt(100))
}

func TestParseAnnotations(t *testing.T) {
	c := classfiletest.MustParse(t, classfiletest.Class{
		Name: "com.example.Api",
		Annotations: []classfiletest.Annotation{
			{Type: "javax.annotation.CheckReturnValue"},
		},
		Methods: []classfiletest.Method{{
			Name:       "create",
			Descriptor: "()Lcom/example/Api;",
			Annotations: []classfiletest.Annotation{
				{
					Type:      "edu.umd.cs.findbugs.annotations.CheckReturnValue",
					Invisible: true,
					Strings:   map[string]string{"explanation": "allocates"},
					Enums: map[string]classfiletest.Enum{
						"priority": {Type: "edu.umd.cs.findbugs.annotations.Priority", Const: "HIGH"},
					},
				},
			},
		}},
	})

	ann, ok := classfile.FindAnnotation(c.Annotations, "javax.annotation.CheckReturnValue")
	require.True(t, ok)
	require.True(t, ann.Visible)
	require.Empty(t, ann.Elements)

	m, ok := c.Method("create", "()Lcom/example/Api;")
	require.True(t, ok)
	ann, ok = classfile.FindAnnotation(m.Annotations, "edu.umd.cs.findbugs.annotations.CheckReturnValue")
	require.True(t, ok)
	require.False(t, ann.Visible)

	explanation, ok := ann.Element("explanation")
	require.True(t, ok)
	require.Equal(t, byte('s'), explanation.Tag)
	require.Equal(t, "allocates", explanation.Const)

	priority, ok := ann.Element("priority")
	require.True(t, ok)
	require.Equal(t, byte('e'), priority.Tag)
	require.Equal(t, "Ledu/umd/cs/findbugs/annotations/Priority;", priority.EnumType)
	require.Equal(t, "HIGH", priority.EnumConst)

	_, ok = classfile.FindAnnotation(m.Annotations, "javax.annotation.CheckReturnValue")
	require.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	valid := classfiletest.MustBuild(t, classfiletest.Class{
		Name: "com.example.Small",
		Methods: []classfiletest.Method{{
			Name:       "f",
			Descriptor: "()V",
			Code:       []string{"return"},
		}},
	})

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "bad magic", data: append([]byte{0xca, 0xfe, 0xd0, 0x0d}, valid[4:]...)},
		{name: "truncated pool", data: valid[:12]},
		{name: "truncated body", data: valid[:len(valid)-3]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classfile.Parse(tt.data)
			require.Error(t, err)
		})
	}
}

func TestDecodeVariableLength(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		pcs     []int
		at      int
		operand int
	}{
		{
			name: "tableswitch after one byte",
			code: []byte{
				0x1a,       // iload_0
				0xaa, 0, 0, // tableswitch, two bytes of padding
				0, 0, 0, 20, // default
				0, 0, 0, 0, // low
				0, 0, 0, 1, // high
				0, 0, 0, 20,
				0, 0, 0, 22,
				0xb1, // return
			},
			pcs:     []int{0, 1, 24},
			at:      1,
			operand: 20,
		},
		{
			name: "lookupswitch at zero",
			code: []byte{
				0xab, 0, 0, 0, // lookupswitch, three bytes of padding
				0, 0, 0, 20, // default
				0, 0, 0, 1, // npairs
				0, 0, 0, 7, 0, 0, 0, 20,
				0x00, // nop
			},
			pcs:     []int{0, 20},
			operand: 20,
		},
		{
			name:    "wide iinc",
			code:    []byte{0xc4, 0x84, 0x01, 0x00, 0x00, 0x05, 0xb1},
			pcs:     []int{0, 6},
			operand: 256,
		},
		{
			name:    "wide iload",
			code:    []byte{0xc4, 0x15, 0x00, 0x03, 0xac},
			pcs:     []int{0, 4},
			operand: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insns, err := classfile.Decode(tt.code, nil)
			require.NoError(t, err)
			var pcs []int
			for _, insn := range insns {
				pcs = append(pcs, insn.PC)
			}
			require.Equal(t, tt.pcs, pcs)
			require.Equal(t, tt.operand, insns[tt.at].Operand)
		})
	}
}

func TestDecodeRejectsInvalidOpcode(t *testing.T) {
	_, err := classfile.Decode([]byte{0x00, 0xfe}, nil)
	require.Error(t, err)

	_, err = classfile.Decode([]byte{0xb6, 0x00}, nil)
	require.Error(t, err)
}

func TestOpcodeSet(t *testing.T) {
	s := classfile.NewOpcodeSet(classfile.Aload0, classfile.Invokestatic, classfile.Pop2, classfile.JsrW)
	require.Equal(t, 4, s.Len())
	require.True(t, s.Has(classfile.Invokestatic))
	require.True(t, s.Has(classfile.JsrW))
	require.False(t, s.Has(classfile.Pop))
	require.True(t, s.Intersects(classfile.DiscardOpcodes))
	require.True(t, s.Intersects(classfile.InvokeOpcodes))
	require.False(t, s.Intersects(classfile.NewOpcodeSet(classfile.Dup)))

	var empty classfile.OpcodeSet
	require.True(t, empty.Empty())
	empty.Add(classfile.Dup)
	require.False(t, empty.Empty())

	require.False(t, classfile.Invokedynamic.IsInvoke())
	require.True(t, classfile.Invokespecial.IsInvoke())
	require.True(t, classfile.Pop2.IsDiscard())
	require.False(t, classfile.Dup.IsDiscard())
}

func TestOpcodeNames(t *testing.T) {
	for _, name := range []string{"nop", "iload_0", "pop", "invokeinterface", "jsr_w"} {
		op, ok := classfile.LookupOpcode(name)
		require.True(t, ok, name)
		require.Equal(t, name, op.String())
		require.True(t, op.Valid())
	}
	_, ok := classfile.LookupOpcode("frobnicate")
	require.False(t, ok)
	require.False(t, classfile.Opcode(0xfe).Valid())
}

func TestDescriptors(t *testing.T) {
	require.Equal(t, "I", classfile.ReturnType("(Ljava/lang/String;)I"))
	require.Equal(t, "Lcom/example/Foo;", classfile.ReturnType("()Lcom/example/Foo;"))
	require.Empty(t, classfile.ReturnType("I"))

	require.Equal(t, "com/example/Foo", classfile.ClassFromDescriptor("Lcom/example/Foo;"))
	require.Equal(t, "[I", classfile.ClassFromDescriptor("[I"))

	require.Equal(t, 0, classfile.ArgSlots("()V"))
	require.Equal(t, 5, classfile.ArgSlots("(IJLjava/lang/String;[[Ljava/lang/Object;)V"))
	require.Equal(t, 3, classfile.ArgSlots("(D[J)Z"))

	require.Equal(t, "java.util.Map$Entry", classfile.DottedName("java/util/Map$Entry"))
	require.Equal(t, "java/util/Map$Entry", classfile.SlashedName("java.util.Map$Entry"))
}
