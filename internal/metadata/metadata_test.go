package metadata

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/internal/symbol"
	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/classfile/classfiletest"
)

func parse(t *testing.T, methods ...classfiletest.Method) *classfile.Class {
	t.Helper()
	return classfiletest.MustParse(t, classfiletest.Class{Name: "com.example.Subject", Methods: methods})
}

func TestOpcodeSet(t *testing.T) {
	c := parse(t,
		classfiletest.Method{
			Name:       "call",
			Descriptor: "()V",
			Code:       []string{"invokestatic com.example.Foo.bar()I", "pop", "return"},
		},
		classfiletest.Method{Name: "abstract", Descriptor: "()I"},
		classfiletest.Method{Name: "native", Descriptor: "()I", Native: true},
	)
	cache := NewCache(symbol.NewTable())

	call, _ := c.Method("call", "()V")
	set := cache.OpcodeSet(c, call)
	require.Equal(t, classfile.NewOpcodeSet(classfile.Invokestatic, classfile.Pop, classfile.Return), set)
	require.True(t, set.Intersects(classfile.DiscardOpcodes))
	require.True(t, set.Intersects(classfile.InvokeOpcodes))

	for _, name := range []string{"abstract", "native"} {
		m, _ := c.Method(name, "()I")
		require.True(t, cache.OpcodeSet(c, m).Empty(), name)
		_, ok := cache.NarrowestEnclosingTry(c, m, 0)
		require.False(t, ok, name)
	}
	require.Equal(t, 3, cache.Len())
}

func TestOpcodeSetMemoized(t *testing.T) {
	c := parse(t, classfiletest.Method{
		Name:       "f",
		Descriptor: "()V",
		Code:       []string{"aload_0", "pop", "return"},
	})
	m, _ := c.Method("f", "()V")
	cache := NewCache(symbol.NewTable())

	var wg sync.WaitGroup
	sets := make([]classfile.OpcodeSet, 16)
	for i := range sets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sets[i] = cache.OpcodeSet(c, m)
		}()
	}
	wg.Wait()
	for _, s := range sets {
		require.Equal(t, sets[0], s)
	}
	require.Equal(t, 1, cache.Len())

	// Later changes to the method do not leak into the cached set.
	m.Code.Instructions = m.Code.Instructions[:1]
	require.True(t, cache.OpcodeSet(c, m).Has(classfile.Pop))

	cache.Clear()
	require.False(t, cache.OpcodeSet(c, m).Has(classfile.Pop))
}

func TestNarrowestEnclosingTry(t *testing.T) {
	c := parse(t, classfiletest.Method{
		Name:       "guarded",
		Descriptor: "()V",
		Code: []string{
			"nop",    // 0
			"nop",    // 1
			"nop",    // 2
			"nop",    // 3
			"nop",    // 4
			"nop",    // 5
			"nop",    // 6
			"return", // 7
		},
		Try: []classfiletest.Try{
			{Start: 0, End: 6, Handler: 7},
			{Start: 2, End: 4, Handler: 7, Catch: "java.io.IOException"},
			{Start: 3, End: 4, Handler: 7, Catch: "java.lang.RuntimeException"},
		},
	})
	m, _ := c.Method("guarded", "()V")
	cache := NewCache(symbol.NewTable())

	tests := []struct {
		pc    int
		want  classfile.ExceptionRange
		found bool
	}{
		{pc: 0, want: classfile.ExceptionRange{StartPC: 0, EndPC: 6, HandlerPC: 7}, found: true},
		{pc: 2, want: classfile.ExceptionRange{StartPC: 2, EndPC: 4, HandlerPC: 7, CatchType: "java.io.IOException"}, found: true},
		{pc: 3, want: classfile.ExceptionRange{StartPC: 3, EndPC: 4, HandlerPC: 7, CatchType: "java.lang.RuntimeException"}, found: true},
		{pc: 4, want: classfile.ExceptionRange{StartPC: 0, EndPC: 6, HandlerPC: 7}, found: true},
		{pc: 6},
		{pc: 7},
	}
	for _, tt := range tests {
		got, ok := cache.NarrowestEnclosingTry(c, m, tt.pc)
		require.Equal(t, tt.found, ok, "pc %d", tt.pc)
		require.Equal(t, tt.want, got, "pc %d", tt.pc)
	}
}
